// report.go - duplicate scan report rendering.
package duplicates

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Report is the full outcome of a duplicate scan, consumable by a UI or
// written to disk for the user.
type Report struct {
	GeneratedAt time.Time    `json:"generated_at"`
	RunID       string       `json:"run_id"`
	Groups      []GroupEntry `json:"groups"`
	Archive     *MoveReport  `json:"archive,omitempty"`
}

// GroupEntry is the serializable form of one duplicate group.
type GroupEntry struct {
	Hash   string   `json:"hash"`
	Keeper string   `json:"keeper"`
	Files  []string `json:"files"`
}

// NewReport builds a Report from detector output. archive may be nil when no
// archive run was performed.
func NewReport(runID string, groups []*Group, archive *MoveReport) *Report {
	report := &Report{
		GeneratedAt: time.Now().UTC(),
		RunID:       runID,
		Archive:     archive,
	}
	for _, group := range groups {
		entry := GroupEntry{Hash: group.Hash, Keeper: group.Keeper.Path}
		for _, rec := range group.Records {
			entry.Files = append(entry.Files, rec.Path)
		}
		report.Groups = append(report.Groups, entry)
	}
	return report
}

// Format renders the report as human-readable text.
func (r *Report) Format() string {
	var b strings.Builder
	totalFiles := 0
	for _, g := range r.Groups {
		totalFiles += len(g.Files)
	}
	fmt.Fprintf(&b, "Duplicate groups: %d\n", len(r.Groups))
	fmt.Fprintf(&b, "Duplicate files: %d\n\n", totalFiles)

	for _, g := range r.Groups {
		fmt.Fprintf(&b, "SHA-256: %s\n", g.Hash)
		for _, file := range g.Files {
			marker := "  - "
			if file == g.Keeper {
				marker = "  * "
			}
			fmt.Fprintf(&b, "%s%s\n", marker, file)
		}
		b.WriteString("\n")
	}

	if r.Archive != nil {
		fmt.Fprintf(&b, "Archived: %d moved, %d skipped, %d failed\n",
			r.Archive.Moved, r.Archive.Skipped, r.Archive.Failed)
		for _, res := range r.Archive.Results {
			if res.Outcome == OutcomeFailed {
				fmt.Fprintf(&b, "  failed: %s (%v)\n", res.Source, res.Err)
			}
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// Write stores the text report at path and a JSON payload next to it with a
// .json extension.
func (r *Report) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(r.Format()), 0o644); err != nil {
		return err
	}

	payload, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	jsonPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".json"
	return os.WriteFile(jsonPath, append(payload, '\n'), 0o644)
}
