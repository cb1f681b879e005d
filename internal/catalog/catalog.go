// Package catalog loads astronomical reference catalogs and resolves
// image filenames to catalog object identities.
package catalog

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/tphakala/deepsky-go/internal/errors"
)

// Catalog identifies a reference catalog.
type Catalog string

const (
	Messier     Catalog = "Messier"
	NGC         Catalog = "NGC"
	IC          Catalog = "IC"
	Caldwell    Catalog = "Caldwell"
	SolarSystem Catalog = "Solar System"
)

// Prefix returns the canonical object ID prefix for the catalog.
// Solar System objects carry no prefix; they are resolved by name.
func (c Catalog) Prefix() string {
	switch c {
	case Messier:
		return "M"
	case NGC:
		return "NGC"
	case IC:
		return "IC"
	case Caldwell:
		return "C"
	default:
		return ""
	}
}

// FromName maps a configured catalog name to a Catalog. Unknown names are
// passed through so user-defined catalogs keep working without prefixes.
func FromName(name string) Catalog {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "messier":
		return Messier
	case "ngc":
		return NGC
	case "ic":
		return IC
	case "caldwell":
		return Caldwell
	case "solar system", "solarsystem":
		return SolarSystem
	}
	return Catalog(name)
}

// prefixPriority orders catalogs for auto-sort when a filename carries IDs
// from several catalogs.
var prefixPriority = []string{"M", "NGC", "IC", "C"}

// Object is one immutable catalog reference record.
type Object struct {
	ID         string   // canonical object ID, e.g. "M31", "NGC7000"
	Catalog    Catalog  // owning catalog
	Name       string   // display name, may be empty
	Type       string   // object type, e.g. "Galaxy"
	RADeg      *float64 // right ascension in degrees [0, 360), nil when unknown
	DecDeg     *float64 // declination in degrees [-90, 90], nil when unknown
	Magnitude  *float64 // apparent magnitude, optional
	SizeArcmin *float64 // apparent size, optional
	BestMonths string   // catalog-provided month override, e.g. "SepOctNov"
}

// DisplayName returns "ID - Name" or just the ID when no name is known.
func (o *Object) DisplayName() string {
	if o.Name != "" {
		return o.ID + " - " + o.Name
	}
	return o.ID
}

// HasCoordinates reports whether the object can participate in visibility
// evaluation.
func (o *Object) HasCoordinates() bool {
	return o.RADeg != nil && o.DecDeg != nil
}

// rawObject is the on-disk JSON shape of a catalog record. Only reference
// fields are decoded here; notes and unknown fields belong to the metadata
// store.
type rawObject struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	RA         json.RawMessage `json:"ra"`
	RAHours    json.RawMessage `json:"ra_hours"`
	Dec        json.RawMessage `json:"dec"`
	Magnitude  *float64        `json:"magnitude"`
	SizeArcmin *float64        `json:"size_arcmin"`
	BestMonths string          `json:"best_months"`
}

// Index holds the loaded objects of one or more catalogs, keyed by
// canonical object ID. Immutable once built; safe for concurrent readers.
type Index struct {
	objects map[string]*Object
	names   map[string]*Object // upper-cased display names, Solar System resolution
}

// NewIndex builds an index over the given objects. Later duplicates of an ID
// are ignored; the first loaded record wins.
func NewIndex(objects []*Object) *Index {
	idx := &Index{
		objects: make(map[string]*Object, len(objects)),
		names:   make(map[string]*Object),
	}
	for _, obj := range objects {
		key := strings.ToUpper(obj.ID)
		if _, exists := idx.objects[key]; exists {
			continue
		}
		idx.objects[key] = obj
		if obj.Catalog == SolarSystem && obj.Name != "" {
			idx.names[strings.ToUpper(obj.Name)] = obj
		}
	}
	return idx
}

// Get returns the object with the given canonical ID.
func (idx *Index) Get(id string) (*Object, bool) {
	obj, ok := idx.objects[strings.ToUpper(id)]
	return obj, ok
}

// Has reports whether the canonical ID is a member of the index.
func (idx *Index) Has(id string) bool {
	_, ok := idx.objects[strings.ToUpper(id)]
	return ok
}

// Len returns the number of indexed objects.
func (idx *Index) Len() int {
	return len(idx.objects)
}

// IDs returns all object IDs in sorted order.
func (idx *Index) IDs() []string {
	ids := make([]string, 0, len(idx.objects))
	for _, obj := range idx.objects {
		ids = append(ids, obj.ID)
	}
	sort.Strings(ids)
	return ids
}

// Objects returns all indexed objects in ID order.
func (idx *Index) Objects() []*Object {
	objs := make([]*Object, 0, len(idx.objects))
	for _, id := range idx.IDs() {
		objs = append(objs, idx.objects[strings.ToUpper(id)])
	}
	return objs
}

// LoadFile reads one catalog reference file: a JSON array of object records.
// Malformed files yield an empty object list and a catalog-load error so
// startup can continue with the anomaly flagged, never a crash.
func LoadFile(path string, cat Catalog) ([]*Object, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryCatalogLoad).
			Context("catalog", string(cat)).
			Context("path", path).
			Build()
	}

	var raw []rawObject
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Newf("malformed catalog file %s: %w", path, err).
			Category(errors.CategoryCatalogLoad).
			Context("catalog", string(cat)).
			Build()
	}

	objects := make([]*Object, 0, len(raw))
	for i := range raw {
		r := &raw[i]
		if r.ID == "" {
			continue
		}
		obj := &Object{
			ID:         CanonicalID(r.ID),
			Catalog:    cat,
			Name:       r.Name,
			Type:       r.Type,
			Magnitude:  r.Magnitude,
			SizeArcmin: r.SizeArcmin,
			BestMonths: r.BestMonths,
		}
		obj.RADeg = parseRARaw(r.RA)
		if obj.RADeg == nil {
			obj.RADeg = parseRAHoursRaw(r.RAHours)
		}
		obj.DecDeg = parseDecRaw(r.Dec)
		objects = append(objects, obj)
	}
	return objects, nil
}

// CanonicalID normalizes an object ID: upper case, separators removed,
// zero padding stripped ("ngc 0070" -> "NGC70"). IDs that do not look like
// prefix+digits are only upper-cased and trimmed.
func CanonicalID(id string) string {
	trimmed := strings.ToUpper(strings.TrimSpace(id))
	if m := idPattern.FindStringSubmatchIndex(trimmed); m != nil && m[0] == 0 && m[1] == len(trimmed) {
		prefix := trimmed[m[2]:m[3]]
		digits := strings.TrimLeft(trimmed[m[4]:m[5]], "0")
		if digits == "" {
			digits = "0"
		}
		return prefix + digits
	}
	return trimmed
}
