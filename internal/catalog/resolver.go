// resolver.go - maps image filenames to catalog object identities.
package catalog

import (
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// idPattern matches a catalog prefix token followed by up to five digits,
// with an optional single separator and optional zero padding. Word
// boundaries are enforced manually in extractMatches because RE2 has no
// lookaround: the character before the prefix must not be a letter or digit,
// and the digit run must not continue past five digits.
var idPattern = regexp.MustCompile(`(?i)(NGC|IC|M|C)[ _-]?0*([0-9]{1,5})`)

// Resolver maps filenames to object IDs against a catalog index scope.
// It is pure: no I/O, no mutation, safe for concurrent use.
type Resolver struct {
	index *Index
	log   *slog.Logger
}

// NewResolver returns a resolver scoped to the given index. The logger may
// be nil.
func NewResolver(index *Index, log *slog.Logger) *Resolver {
	return &Resolver{index: index, log: log}
}

// Resolve maps a file path to the canonical ID of a catalog object. Only the
// base filename is inspected, never the directory part. The leftmost
// ID-shaped substring that is a member of the index wins; ID-shaped
// substrings that are not catalog members are skipped. Files that resolve to
// nothing return ok=false and must be reported as unresolved by the caller.
func (r *Resolver) Resolve(path string) (string, bool) {
	stem := stemOf(path)

	candidates := ExtractObjectIDs(stem)
	for i, id := range candidates {
		if r.index.Has(id) {
			if i > 0 || len(candidates) > 1 {
				// Ambiguous filename; deterministic leftmost-member policy
				r.debugf("ambiguous filename", "file", filepath.Base(path), "candidates", candidates, "resolved", id)
			}
			return id, true
		}
	}

	// Solar System objects carry no ID prefix; match by name token.
	if obj, ok := r.resolveByName(stem); ok {
		return obj.ID, true
	}

	return "", false
}

// resolveByName scans the filename for a Solar System object name as a
// whole word.
func (r *Resolver) resolveByName(stem string) (*Object, bool) {
	if len(r.index.names) == 0 {
		return nil, false
	}
	upper := strings.ToUpper(stem)
	for name, obj := range r.index.names {
		pos := strings.Index(upper, name)
		if pos < 0 {
			continue
		}
		if pos > 0 && isWordChar(upper[pos-1]) {
			continue
		}
		end := pos + len(name)
		if end < len(upper) && isWordChar(upper[end]) {
			continue
		}
		return obj, true
	}
	return nil, false
}

func (r *Resolver) debugf(msg string, args ...any) {
	if r.log != nil {
		r.log.Debug(msg, args...)
	}
}

// ExtractObjectIDs returns every canonical ID-shaped substring of the given
// filename stem, leftmost first. Zero padding is stripped ("NGC 0070" ->
// "NGC70"). Membership in a catalog is not checked here.
func ExtractObjectIDs(stem string) []string {
	var ids []string
	for _, m := range idPattern.FindAllStringSubmatchIndex(stem, -1) {
		start, end := m[0], m[1]

		// Reject matches glued to a preceding letter or digit ("MUSIC12")
		if start > 0 && isAlphaNum(stem[start-1]) {
			continue
		}
		// Reject digit runs longer than five ("NGC123456")
		if end < len(stem) && isDigit(stem[end]) {
			continue
		}

		prefix := strings.ToUpper(stem[m[2]:m[3]])
		number, err := strconv.Atoi(stem[m[4]:m[5]])
		if err != nil {
			continue
		}
		ids = append(ids, prefix+strconv.Itoa(number))
	}
	return ids
}

// stemOf returns the base filename without its extension.
func stemOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isAlphaNum(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isWordChar(b byte) bool {
	return isAlphaNum(b) || b == '_'
}

// PickCatalogPrefix chooses the catalog prefix to sort a file under when its
// name carries IDs from several catalogs, in priority order M, NGC, IC, C.
func PickCatalogPrefix(ids []string) (string, bool) {
	for _, prefix := range prefixPriority {
		for _, id := range ids {
			if prefixOf(id) == prefix {
				return prefix, true
			}
		}
	}
	return "", false
}

// prefixOf splits the alphabetic prefix off a canonical object ID.
func prefixOf(id string) string {
	for i := range len(id) {
		if isDigit(id[i]) {
			return id[:i]
		}
	}
	return id
}

// CatalogForPrefix maps a canonical ID prefix back to its catalog.
func CatalogForPrefix(prefix string) (Catalog, bool) {
	switch prefix {
	case "M":
		return Messier, true
	case "NGC":
		return NGC, true
	case "IC":
		return IC, true
	case "C":
		return Caldwell, true
	}
	return "", false
}
