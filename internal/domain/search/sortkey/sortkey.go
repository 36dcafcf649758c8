package sortkey

// Key selects the ranking order of search results.
type Key string

// Sort key constants.
const (
	// Distance orders nearest first; stores without a distance go last.
	Distance Key = "distance"
	// Name orders alphabetically, case-insensitive.
	Name Key = "name"
	// Rating orders best rated first; unrated stores go last.
	Rating Key = "rating"
	// Popularity orders most clicked first; no clicks counts as zero.
	Popularity Key = "popularity"
)

// Default is used when the caller does not pick a key.
const Default = Distance

// IsValid checks if the key is one of the supported values.
func (k Key) IsValid() bool {
	return k == Distance || k == Name || k == Rating || k == Popularity
}

// NeedsEnrichment reports whether ordering by this key requires third-party ratings.
func (k Key) NeedsEnrichment() bool {
	return k == Rating
}
