package rollup

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/brickfolio/review-rollup/rollup/fileutils"
)

const (
	packDirName        = "project_pack"
	packTagsDirName    = "review_tags_by_project"
	packIndexCSVName   = "project_pack_index.csv"
	packFileNamePat    = "%s.json"
	packTagsCSVNamePat = "%s.csv"
)

// ExportOptions controls one pack export run.
type ExportOptions struct {
	CSVPath string
	OutDir  string

	SummariesLogPath string
	TagsLogPath      string

	OnlyProjectID string
	LimitProjects int
}

// TaggedReview is one review inside a project pack, with its tags joined in
// by review UID when available.
type TaggedReview struct {
	ReviewUID  string   `json:"review_uid"`
	Rating     *float64 `json:"rating"`
	CreatedOn  string   `json:"created_on,omitempty"`
	ReviewText string   `json:"review_text"`
	Tags       []string `json:"tags,omitempty"`
}

// PackCounts summarizes pack coverage for the index.
type PackCounts struct {
	TotalReviewsInCSV   int  `json:"total_reviews_in_csv"`
	TagRowsAvailable    int  `json:"tag_rows_available"`
	TaggedReviewsInPack int  `json:"tagged_reviews_in_pack"`
	HasProjectSummary   bool `json:"has_project_summary"`
}

// ProjectPack is the per-project JSON artifact combining the summary, the
// reviews and their tags.
type ProjectPack struct {
	ProjectID      string          `json:"project_id"`
	ProjectName    string          `json:"project_name"`
	ProjectSummary *ProjectSummary `json:"project_summary"`
	TaggedReviews  []TaggedReview  `json:"tagged_reviews"`
	Counts         PackCounts      `json:"counts"`
}

// ExportProjectPacks joins the source CSV with the summary and tag logs into
// per-project pack JSON files, per-project tag CSVs and a pack index CSV.
// The tag log must exist and parse to at least one record; the summary log
// may be missing (packs then carry a nil summary). Returns the number of
// packs written.
func ExportProjectPacks(opts ExportOptions, warn io.Writer) (int, error) {
	rows, err := ReadReviewsCSV(opts.CSVPath)
	if err != nil {
		return 0, err
	}

	summaries, err := loadSummariesByProject(opts.SummariesLogPath)
	if err != nil {
		return 0, err
	}
	tagsByUID, tagRowsByProject, err := loadTagRecords(opts.TagsLogPath)
	if err != nil {
		return 0, err
	}
	if len(tagsByUID) == 0 {
		return 0, fmt.Errorf("no tag records found in %s; run the tagger first", opts.TagsLogPath)
	}

	packDir := filepath.Join(opts.OutDir, packDirName)
	tagsDir := filepath.Join(opts.OutDir, packTagsDirName)
	for _, dir := range []string{packDir, tagsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create output dir: %w", err)
		}
	}

	projects := GroupByProject(rows)
	if opts.OnlyProjectID != "" {
		projects = filterProjectsByID(projects, opts.OnlyProjectID)
	}
	if opts.LimitProjects > 0 && len(projects) > opts.LimitProjects {
		projects = projects[:opts.LimitProjects]
	}

	indexHeader := []string{
		"project_id", "project_name", "total_reviews_in_csv", "tag_rows_available",
		"tagged_reviews_in_pack", "has_project_summary", "pack_path",
	}
	var indexRecords [][]string

	written := 0
	for _, project := range projects {
		sorted := SortRowsMostRecentFirst(project.Rows)

		var reviews []TaggedReview
		taggedCount := 0
		for _, row := range sorted {
			tr := TaggedReview{
				ReviewUID:  row.UID,
				Rating:     row.Rating,
				CreatedOn:  row.CreatedOn,
				ReviewText: row.ReviewText,
			}
			if rec, ok := tagsByUID[row.UID]; ok {
				tr.Tags = []string{rec.Tag1, rec.Tag2, rec.Tag3}
				taggedCount++
			}
			reviews = append(reviews, tr)
		}

		var summary *ProjectSummary
		if s, ok := summaries[project.ID]; ok {
			summary = &s
		} else {
			fmt.Fprintf(warn, "project %s has no summary yet\n", project.ID)
		}

		tagRows := tagRowsByProject[project.ID]
		pack := ProjectPack{
			ProjectID:      project.ID,
			ProjectName:    project.Name,
			ProjectSummary: summary,
			TaggedReviews:  reviews,
			Counts: PackCounts{
				TotalReviewsInCSV:   len(project.Rows),
				TagRowsAvailable:    len(tagRows),
				TaggedReviewsInPack: taggedCount,
				HasProjectSummary:   summary != nil,
			},
		}

		packPath := filepath.Join(packDir, fmt.Sprintf(packFileNamePat, project.ID))
		if err := fileutils.WriteJSONFileAtomic(packPath, pack, true); err != nil {
			return written, err
		}
		if err := writeProjectTagsCSV(filepath.Join(tagsDir, fmt.Sprintf(packTagsCSVNamePat, project.ID)), tagRows); err != nil {
			return written, err
		}

		indexRecords = append(indexRecords, []string{
			project.ID,
			project.Name,
			fmt.Sprintf("%d", len(project.Rows)),
			fmt.Sprintf("%d", len(tagRows)),
			fmt.Sprintf("%d", taggedCount),
			fmt.Sprintf("%t", summary != nil),
			packPath,
		})
		written++
	}

	indexPath := filepath.Join(opts.OutDir, packIndexCSVName)
	if err := fileutils.WriteCSVAtomic(indexPath, indexHeader, indexRecords); err != nil {
		return written, err
	}
	return written, nil
}

func loadSummariesByProject(path string) (map[string]ProjectSummary, error) {
	lines, err := fileutils.ReadJSONLines(path)
	if err != nil {
		return nil, err
	}
	out := make(map[string]ProjectSummary, len(lines))
	for _, line := range lines {
		var s ProjectSummary
		if err := json.Unmarshal(line, &s); err != nil {
			continue
		}
		if s.ProjectID != "" {
			out[s.ProjectID] = s // last record wins, matching resume semantics
		}
	}
	return out, nil
}

func loadTagRecords(path string) (map[string]TagRecord, map[string][]TagRecord, error) {
	lines, err := fileutils.ReadJSONLines(path)
	if err != nil {
		return nil, nil, err
	}
	byUID := make(map[string]TagRecord, len(lines))
	byProject := make(map[string][]TagRecord)
	for _, line := range lines {
		var rec TagRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if rec.ReviewUID == "" {
			continue
		}
		if _, seen := byUID[rec.ReviewUID]; !seen {
			byProject[rec.ProjectID] = append(byProject[rec.ProjectID], rec)
		}
		byUID[rec.ReviewUID] = rec
	}
	return byUID, byProject, nil
}

func writeProjectTagsCSV(path string, tagRows []TagRecord) error {
	header := []string{
		"review_uid", "project_id", "project_name", "rating", "created_on",
		"tag_1", "tag_2", "tag_3",
	}
	var records [][]string
	for _, rec := range tagRows {
		rating := ""
		if rec.Rating != nil {
			rating = formatRating(*rec.Rating)
		}
		records = append(records, []string{
			rec.ReviewUID, rec.ProjectID, rec.ProjectName, rating, rec.CreatedOn,
			rec.Tag1, rec.Tag2, rec.Tag3,
		})
	}
	return fileutils.WriteCSVAtomic(path, header, records)
}
