package rollup

import (
	"encoding/json"
	"strings"

	"github.com/brickfolio/review-rollup/rollup/fileutils"
)

// LoadProcessedIDs scans an append-only JSONL log and returns the set of
// non-empty values of field across all parsable lines. Blank lines and lines
// that fail to parse (a partial write from a killed prior run) are skipped;
// a missing file yields an empty set. The set is only ever used as a filter
// over candidate work.
func LoadProcessedIDs(path, field string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	lines, err := fileutils.ReadJSONLines(path)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			continue
		}
		id, _ := obj[field].(string)
		id = strings.TrimSpace(id)
		if id != "" {
			out[id] = struct{}{}
		}
	}
	return out, nil
}
