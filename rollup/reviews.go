package rollup

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/brickfolio/review-rollup/rollup/fileutils"
)

// Column names expected in the source table. ProjectId, ProjectName and
// Description are required; the rest are optional.
const (
	colProjectID   = "ProjectId"
	colProjectName = "ProjectName"
	colDescription = "Description"
	colRating      = "Rating"
	colCreatedOn   = "CreatedOn"
	colUserID      = "UserId"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// createdOnLayouts are tried in order when parsing CreatedOn. Rows whose
// value matches none keep a nil CreatedAt and sort after dated rows.
var createdOnLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-01-2006 15:04:05",
	"02-01-2006",
}

// ReviewRow is one normalized row of the source table.
type ReviewRow struct {
	ProjectID   string
	ProjectName string
	ReviewText  string
	Rating      *float64
	CreatedOn   string     // raw CSV value, kept for output records
	CreatedAt   *time.Time // best-effort parse of CreatedOn
	UserID      string
	UID         string
}

// ReadReviewsCSV reads and normalizes the reviews table. Missing file or
// missing required columns are fatal; malformed data rows are skipped.
func ReadReviewsCSV(path string) ([]ReviewRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reviews csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	headers, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	idx := indexColumns(headers)
	var missing []string
	for _, col := range []string{colProjectID, colProjectName, colDescription} {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns in CSV: %s (found: %s)",
			strings.Join(missing, ", "), strings.Join(headers, ", "))
	}

	var rows []ReviewRow
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				continue
			}
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		if len(rec) == 0 {
			continue
		}

		row := ReviewRow{
			ProjectID:   strings.TrimSpace(getField(rec, columnIndex(idx, colProjectID))),
			ProjectName: strings.TrimSpace(getField(rec, columnIndex(idx, colProjectName))),
			ReviewText:  collapseWhitespace(getField(rec, columnIndex(idx, colDescription))),
			CreatedOn:   strings.TrimSpace(getField(rec, columnIndex(idx, colCreatedOn))),
			UserID:      strings.TrimSpace(getField(rec, columnIndex(idx, colUserID))),
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(getField(rec, columnIndex(idx, colRating))), 64); err == nil {
			row.Rating = &v
		}
		if t, ok := parseCreatedOn(row.CreatedOn); ok {
			row.CreatedAt = &t
		}
		row.UID = ReviewUID(row.ProjectID, row.UserID, row.CreatedOn, row.ReviewText)
		rows = append(rows, row)
	}
	return rows, nil
}

func indexColumns(headers []string) map[string]int {
	out := make(map[string]int, len(headers))
	for i, h := range headers {
		name := strings.TrimSpace(h)
		if i == 0 {
			name = strings.TrimPrefix(name, "\uFEFF")
		}
		out[name] = i
	}
	return out
}

func columnIndex(idx map[string]int, name string) int {
	if i, ok := idx[name]; ok {
		return i
	}
	return -1
}

func getField(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

func parseCreatedOn(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range createdOnLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Project groups all rows sharing a ProjectId/ProjectName pair.
type Project struct {
	ID   string
	Name string
	Rows []ReviewRow
}

// GroupByProject groups rows by project, ordered by review count descending;
// ties keep first-seen order so the ordering is stable across runs.
func GroupByProject(rows []ReviewRow) []Project {
	byKey := make(map[string]int)
	var projects []Project
	for _, row := range rows {
		key := row.ProjectID + "\x00" + row.ProjectName
		i, ok := byKey[key]
		if !ok {
			i = len(projects)
			byKey[key] = i
			projects = append(projects, Project{ID: row.ProjectID, Name: row.ProjectName})
		}
		projects[i].Rows = append(projects[i].Rows, row)
	}
	sort.SliceStable(projects, func(i, j int) bool {
		return len(projects[i].Rows) > len(projects[j].Rows)
	})
	return projects
}

// SortRowsMostRecentFirst orders rows newest first; rows without a parseable
// timestamp sort last, keeping their relative order.
func SortRowsMostRecentFirst(rows []ReviewRow) []ReviewRow {
	out := append([]ReviewRow(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].CreatedAt, out[j].CreatedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	return out
}

// ProjectSnippets renders a project's reviews as prompt snippets, most recent
// first when timestamps parse, capped by review count and per-review
// characters. Rows with empty text are skipped.
func ProjectSnippets(p Project, maxReviews, maxReviewChars int) []string {
	rows := SortRowsMostRecentFirst(p.Rows)
	if maxReviews > 0 && len(rows) > maxReviews {
		rows = rows[:maxReviews]
	}

	var snippets []string
	for _, row := range rows {
		text := fileutils.Truncate(row.ReviewText, maxReviewChars)
		if text == "" {
			continue
		}
		if row.Rating != nil {
			snippets = append(snippets, fmt.Sprintf("- (Rating: %s) %s", formatRating(*row.Rating), text))
		} else {
			snippets = append(snippets, "- "+text)
		}
	}
	return snippets
}

func formatRating(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
