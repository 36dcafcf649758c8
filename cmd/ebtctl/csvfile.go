package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kailas-cloud/ebtlocator/pkg/locator"
)

// column identifies a retailer field in a CSV header.
type column int

const (
	colID column = iota
	colName
	colStoreType
	colStreetNumber
	colStreetName
	colAddress
	colAdditionalAddress
	colCity
	colState
	colZip
	colLat
	colLon
	colIncentive
	numColumns
)

// headerAliases maps normalized header names to columns. It accepts the USDA
// SNAP retailer export (Record_ID, Store_Name, Street_Number, ...) and plain
// lowercase exports (id, name, address, lat, lng).
var headerAliases = map[string]column{
	"recordid":          colID,
	"id":                colID,
	"storeid":           colID,
	"storename":         colName,
	"name":              colName,
	"storetype":         colStoreType,
	"type":              colStoreType,
	"streetnumber":      colStreetNumber,
	"streetname":        colStreetName,
	"address":           colAddress,
	"additionaladdress": colAdditionalAddress,
	"city":              colCity,
	"state":             colState,
	"zipcode":           colZip,
	"zip":               colZip,
	"zip5":              colZip,
	"latitude":          colLat,
	"lat":               colLat,
	"longitude":         colLon,
	"lon":               colLon,
	"lng":               colLon,
	"incentive":         colIncentive,
	"incentiveprogram":  colIncentive,
}

// csvStats counts rows the reader could not use as-is.
type csvStats struct {
	Rows       int
	NoLocation int // rows with a missing or unparseable coordinate
}

// readStoresFile opens path and parses it with readStores.
func readStoresFile(path string) ([]locator.Store, csvStats, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, csvStats{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return readStores(f)
}

// readStores parses a retailer CSV. Rows keep their file order. Rows missing
// an id or name are returned as-is; the pipeline and the catalog skip them.
func readStores(r io.Reader) ([]locator.Store, csvStats, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, csvStats{}, errors.New("empty file")
		}
		return nil, csvStats{}, fmt.Errorf("read header: %w", err)
	}

	idx, err := mapHeader(header)
	if err != nil {
		return nil, csvStats{}, err
	}

	var (
		stores []locator.Store
		stats  csvStats
	)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read row %d: %w", stats.Rows+2, err)
		}
		stats.Rows++

		st := rowToStore(row, idx)
		if st.Lat == nil {
			stats.NoLocation++
		}
		stores = append(stores, st)
	}
	return stores, stats, nil
}

func mapHeader(header []string) ([numColumns]int, error) {
	var idx [numColumns]int
	for i := range idx {
		idx[i] = -1
	}
	for i, h := range header {
		key := normalizeHeader(h)
		if c, ok := headerAliases[key]; ok && idx[c] < 0 {
			idx[c] = i
		}
	}
	if idx[colName] < 0 {
		return idx, errors.New("header has no store name column")
	}
	return idx, nil
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer("_", "", " ", "", "-", "").Replace(h)
}

func rowToStore(row []string, idx [numColumns]int) locator.Store {
	get := func(c column) string {
		i := idx[c]
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	address := get(colAddress)
	if address == "" {
		address = joinNonEmpty(" ", get(colStreetNumber), get(colStreetName))
	}
	address = joinNonEmpty(", ", address, get(colAdditionalAddress))

	st := locator.Store{
		ID:        get(colID),
		Name:      get(colName),
		Address:   address,
		City:      get(colCity),
		State:     get(colState),
		Zip:       get(colZip),
		StoreType: get(colStoreType),
		Incentive: get(colIncentive),
	}

	lat, latErr := strconv.ParseFloat(get(colLat), 64)
	lon, lonErr := strconv.ParseFloat(get(colLon), 64)
	if latErr == nil && lonErr == nil {
		st.Lat, st.Lon = &lat, &lon
	}
	return st
}

func joinNonEmpty(sep string, parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
