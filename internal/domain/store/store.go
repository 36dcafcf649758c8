package store

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kailas-cloud/ebtlocator/internal/domain"
	"github.com/kailas-cloud/ebtlocator/internal/domain/geo"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

// Field size limits.
const (
	MaxIDLength    = 128
	MaxNameLength  = 256
	MaxHoursLength = 8192
)

// Attrs carries the raw fields of a store record.
type Attrs struct {
	ID        string
	Name      string
	Address   string
	City      string
	State     string
	Zip       string
	StoreType string
	Incentive string
	Location  *geo.Point
	Hours     json.RawMessage
}

// Record is an EBT-accepting retailer (immutable value object).
type Record struct {
	id        string
	name      string
	address   string
	city      string
	state     string
	zip       string
	storeType string
	incentive string
	location  *geo.Point
	hours     json.RawMessage
}

// New validates and creates a Record. Missing id or name yields ErrMalformedRecord.
func New(a Attrs) (Record, error) {
	id := strings.TrimSpace(a.ID)
	name := strings.TrimSpace(a.Name)
	if id == "" {
		return Record{}, fmt.Errorf("store id is required: %w", domain.ErrMalformedRecord)
	}
	if name == "" {
		return Record{}, fmt.Errorf("store %q: name is required: %w", id, domain.ErrMalformedRecord)
	}
	if len(id) > MaxIDLength {
		return Record{}, fmt.Errorf("store id too long (max %d): %w", MaxIDLength, domain.ErrInvalidRequest)
	}
	if !idRegex.MatchString(id) {
		return Record{}, fmt.Errorf("store id %q has invalid characters: %w", id, domain.ErrInvalidRequest)
	}
	if len(name) > MaxNameLength {
		return Record{}, fmt.Errorf("store name too long (max %d): %w", MaxNameLength, domain.ErrInvalidRequest)
	}
	if a.Location != nil && !geo.ValidateCoordinates(a.Location.Lat, a.Location.Lon) {
		return Record{}, fmt.Errorf("store %q: coordinates out of range: %w", id, domain.ErrInvalidRequest)
	}
	if len(a.Hours) > MaxHoursLength {
		return Record{}, fmt.Errorf("store %q: hours payload too large: %w", id, domain.ErrInvalidRequest)
	}
	if len(a.Hours) > 0 && !json.Valid(a.Hours) {
		return Record{}, fmt.Errorf("store %q: hours must be valid JSON: %w", id, domain.ErrInvalidRequest)
	}

	a.ID = id
	a.Name = name
	a.Zip = strings.TrimSpace(a.Zip)
	return Reconstruct(a), nil
}

// Reconstruct creates a Record without validation (storage hydration).
func Reconstruct(a Attrs) Record {
	var loc *geo.Point
	if a.Location != nil {
		p := *a.Location
		loc = &p
	}
	return Record{
		id:        a.ID,
		name:      a.Name,
		address:   a.Address,
		city:      a.City,
		state:     a.State,
		zip:       a.Zip,
		storeType: a.StoreType,
		incentive: a.Incentive,
		location:  loc,
		hours:     cloneRaw(a.Hours),
	}
}

// ID returns the store identifier.
func (r Record) ID() string { return r.id }

// Name returns the store name.
func (r Record) Name() string { return r.name }

// Address returns the street address.
func (r Record) Address() string { return r.address }

// City returns the city.
func (r Record) City() string { return r.city }

// State returns the state code.
func (r Record) State() string { return r.state }

// Zip returns the zip code.
func (r Record) Zip() string { return r.zip }

// StoreType returns the store type tag.
func (r Record) StoreType() string { return r.storeType }

// Incentive returns the incentive program tag (e.g. RMP), if any.
func (r Record) Incentive() string { return r.incentive }

// Location returns the coordinate and whether it is present.
func (r Record) Location() (geo.Point, bool) {
	if r.location == nil {
		return geo.Point{}, false
	}
	return *r.location, true
}

// Hours returns the opening hours payload (nil if absent).
func (r Record) Hours() json.RawMessage { return cloneRaw(r.hours) }

// HasIdentity reports whether the record carries its required id and name.
func (r Record) HasIdentity() bool {
	return strings.TrimSpace(r.id) != "" && strings.TrimSpace(r.name) != ""
}

// Attrs returns the record fields.
func (r Record) Attrs() Attrs {
	var loc *geo.Point
	if r.location != nil {
		p := *r.location
		loc = &p
	}
	return Attrs{
		ID: r.id, Name: r.name, Address: r.address, City: r.city, State: r.state,
		Zip: r.zip, StoreType: r.storeType, Incentive: r.incentive,
		Location: loc, Hours: cloneRaw(r.hours),
	}
}

// Zip5 returns the first five characters of a zip or zip+4 code.
func Zip5(zip string) string {
	zip = strings.TrimSpace(zip)
	if len(zip) > 5 {
		return zip[:5]
	}
	return zip
}

func cloneRaw(b json.RawMessage) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	out := make(json.RawMessage, len(b))
	copy(out, b)
	return out
}

// Query selects candidate records from a record source.
// A nil Center or non-positive radius selects every record.
type Query struct {
	Center      *geo.Point
	RadiusMiles float64
	Limit       int // cap on geo hits; 0 means no cap
}
