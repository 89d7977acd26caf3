package rollup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/brickfolio/review-rollup/rollup/fileutils"
)

const (
	tagsLogName = "review_tags.jsonl"
	tagsCSVName = "review_tags.csv"
)

// TagOptions controls one tagging run.
type TagOptions struct {
	CSVPath string
	OutDir  string

	Resume        bool
	OnlyProjectID string
	LimitRows     int
	BatchSize     int
	SleepBetween  time.Duration
}

// TagRecord is one line of the tag log: three UI tags for one review.
type TagRecord struct {
	ReviewUID   string   `json:"review_uid"`
	ProjectID   string   `json:"project_id"`
	ProjectName string   `json:"project_name"`
	Rating      *float64 `json:"rating"`
	CreatedOn   string   `json:"created_on,omitempty"`
	Tag1        string   `json:"tag_1"`
	Tag2        string   `json:"tag_2"`
	Tag3        string   `json:"tag_3"`
}

// TagCaller is the generation surface the tagging driver needs: batch calls
// plus the single-review regeneration used by the repair loop.
type TagCaller interface {
	TagBatch(ctx context.Context, items []WorkItem) (ReviewTagBatch, error)
	TagRegenerator
}

// GenerateReviewTags tags every review in the CSV in token-bounded batches
// and appends results to the JSONL log under opts.OutDir. Batches whose
// output is malformed go through the repair loop; batches whose call fails
// outright are warned and skipped. Returns the number of reviews tagged in
// this run.
func GenerateReviewTags(ctx context.Context, caller TagCaller, settings Settings, opts TagOptions, warn io.Writer) (int, error) {
	rows, err := ReadReviewsCSV(opts.CSVPath)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return 0, fmt.Errorf("create output dir: %w", err)
	}

	tagsLog := filepath.Join(opts.OutDir, tagsLogName)
	tagsCSV := filepath.Join(opts.OutDir, tagsCSVName)
	if !opts.Resume {
		for _, p := range []string{tagsLog, tagsCSV} {
			if err := fileutils.RemoveIfExists(p); err != nil {
				return 0, err
			}
		}
	}

	if opts.OnlyProjectID != "" {
		var filtered []ReviewRow
		for _, row := range rows {
			if row.ProjectID == opts.OnlyProjectID {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}
	if opts.LimitRows > 0 && len(rows) > opts.LimitRows {
		rows = rows[:opts.LimitRows]
	}

	items := buildWorkItems(rows)

	if opts.Resume {
		done, err := LoadProcessedIDs(tagsLog, "review_uid")
		if err != nil {
			return 0, err
		}
		var pending []WorkItem
		for _, it := range items {
			if _, ok := done[it.ReviewUID]; !ok {
				pending = append(pending, it)
			}
		}
		if skipped := len(items) - len(pending); skipped > 0 {
			fmt.Fprintf(warn, "resume: skipping %d already-tagged reviews\n", skipped)
		}
		items = pending
	}
	if opts.BatchSize > 0 && len(items) > opts.BatchSize {
		items = items[:opts.BatchSize]
	}

	est := NewEstimator(settings.CharsPerToken)
	batches, err := est.PackItems(items, settings.TagBatchTokens, settings.TagBatchMaxReviews)
	if err != nil {
		return 0, err
	}

	rowByUID := make(map[string]ReviewRow, len(rows))
	for _, row := range rows {
		rowByUID[row.UID] = row
	}

	tagged := 0
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return tagged, err
		}
		fmt.Fprintf(warn, "[batch %d/%d] tagging %d reviews\n", i+1, len(batches), len(batch))

		parsed, err := caller.TagBatch(ctx, batch)
		if err != nil {
			var se *SchemaError
			if !errors.As(err, &se) {
				fmt.Fprintf(warn, "batch %d failed, skipping: %v\n", i+1, err)
				continue
			}
			// Malformed output: treat every item as missing and let the
			// repair loop regenerate them individually.
			fmt.Fprintf(warn, "batch %d output malformed, repairing: %v\n", i+1, err)
			parsed = ReviewTagBatch{}
		}

		tagsByUID := RepairTags(ctx, caller, batch, parsed, MaxTagLen, warn)
		for _, item := range batch {
			tags, ok := tagsByUID[item.ReviewUID]
			if !ok {
				continue // already warned by the repair loop
			}
			if len(tags) != 3 {
				fmt.Fprintf(warn, "review %s produced %d tags, skipping\n", item.ReviewUID, len(tags))
				continue
			}
			row := rowByUID[item.ReviewUID]
			rec := TagRecord{
				ReviewUID:   item.ReviewUID,
				ProjectID:   row.ProjectID,
				ProjectName: row.ProjectName,
				Rating:      row.Rating,
				CreatedOn:   row.CreatedOn,
				Tag1:        tags[0],
				Tag2:        tags[1],
				Tag3:        tags[2],
			}
			if err := fileutils.AppendJSONLine(tagsLog, rec); err != nil {
				return tagged, err
			}
			tagged++
		}
		if opts.SleepBetween > 0 {
			time.Sleep(opts.SleepBetween)
		}
	}

	if err := RebuildTagsCSV(tagsLog, tagsCSV); err != nil {
		return tagged, err
	}
	return tagged, nil
}

// buildWorkItems converts rows to generation inputs, dropping rows with no
// review text and deduplicating by UID (first occurrence wins).
func buildWorkItems(rows []ReviewRow) []WorkItem {
	seen := make(map[string]struct{}, len(rows))
	var items []WorkItem
	for _, row := range rows {
		if row.ReviewText == "" {
			continue
		}
		if _, ok := seen[row.UID]; ok {
			continue
		}
		seen[row.UID] = struct{}{}
		items = append(items, WorkItem{
			ReviewUID:   row.UID,
			ProjectID:   row.ProjectID,
			ProjectName: row.ProjectName,
			Rating:      row.Rating,
			CreatedOn:   row.CreatedOn,
			ReviewText:  row.ReviewText,
		})
	}
	return items
}

// RebuildTagsCSV regenerates the flat CSV projection by replaying the JSONL
// log.
func RebuildTagsCSV(logPath, csvPath string) error {
	lines, err := fileutils.ReadJSONLines(logPath)
	if err != nil {
		return err
	}

	header := []string{
		"review_uid", "project_id", "project_name", "rating", "created_on",
		"tag_1", "tag_2", "tag_3",
	}
	var records [][]string
	for _, line := range lines {
		var rec TagRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		rating := ""
		if rec.Rating != nil {
			rating = formatRating(*rec.Rating)
		}
		records = append(records, []string{
			rec.ReviewUID, rec.ProjectID, rec.ProjectName, rating, rec.CreatedOn,
			rec.Tag1, rec.Tag2, rec.Tag3,
		})
	}
	return fileutils.WriteCSVAtomic(csvPath, header, records)
}

// tagCaller implements TagCaller on top of a Generator.
type tagCaller struct {
	gen         *Generator
	temperature float64
}

func NewTagCaller(gen *Generator, temperature float64) TagCaller {
	return &tagCaller{gen: gen, temperature: temperature}
}

var reviewTagBatchSchema = SchemaFor[ReviewTagBatch]()

func (c *tagCaller) TagBatch(ctx context.Context, items []WorkItem) (ReviewTagBatch, error) {
	payload, err := json.Marshal(items)
	if err != nil {
		return ReviewTagBatch{}, fmt.Errorf("marshal batch: %w", err)
	}

	var out ReviewTagBatch
	err = c.gen.Parse(ctx, CallInput{
		Instructions: tagSystemPrompt,
		User:         "InputReviewsJSON:\n" + string(payload),
		SchemaName:   "ReviewTagBatch",
		Schema:       reviewTagBatchSchema,
		Temperature:  c.temperature,
	}, &out)
	return out, err
}

func (c *tagCaller) RegenerateTags(ctx context.Context, item WorkItem) ([]string, error) {
	payload, err := json.Marshal([]WorkItem{item})
	if err != nil {
		return nil, fmt.Errorf("marshal review: %w", err)
	}

	var out ReviewTagBatch
	err = c.gen.Parse(ctx, CallInput{
		Instructions: tagSystemPrompt + strictTagSuffix,
		User:         "InputReviewJSON:\n" + string(payload),
		SchemaName:   "ReviewTagBatch",
		Schema:       reviewTagBatchSchema,
		Temperature:  c.temperature,
	}, &out)
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("regeneration returned no items")
	}
	return out.Items[0].Tags, nil
}
