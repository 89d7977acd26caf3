package rollup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brickfolio/review-rollup/rollup/fileutils"
)

const (
	summariesLogName    = "project_summaries.jsonl"
	summariesCSVName    = "project_summaries.csv"
	chunkDigestsLogName = "project_chunk_summaries.jsonl"

	listDelimiter = " | "
)

// SummarizeOptions controls one summarization run.
type SummarizeOptions struct {
	CSVPath string
	OutDir  string

	Resume        bool
	OnlyProjectID string
	LimitProjects int
	BatchSize     int
	SleepBetween  time.Duration
}

// ChunkDigestRecord is one line of the chunk digest log: the map-step output
// plus enough context to trace it back to its project.
type ChunkDigestRecord struct {
	ProjectID          string      `json:"project_id"`
	ProjectName        string      `json:"project_name"`
	ChunkID            int         `json:"chunk_id"`
	ChunkTokenEstimate int         `json:"chunk_token_estimate"`
	Digest             ChunkDigest `json:"chunk_digest"`
}

// SummaryCaller is the generation surface the summarization driver needs.
type SummaryCaller interface {
	DigestChunk(ctx context.Context, project Project, chunk Chunk) (ChunkDigest, error)
	ReduceProject(ctx context.Context, project Project, digests []ChunkDigest) (ProjectSummary, error)
}

// GenerateProjectSummaries runs the map/reduce summarization pipeline over
// every project in the CSV and appends results to the JSONL logs under
// opts.OutDir. A failed project is warned and skipped; a failed log append is
// fatal because it would silently lose paid work. Returns the number of
// projects summarized in this run.
func GenerateProjectSummaries(ctx context.Context, caller SummaryCaller, settings Settings, opts SummarizeOptions, warn io.Writer) (int, error) {
	rows, err := ReadReviewsCSV(opts.CSVPath)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return 0, fmt.Errorf("create output dir: %w", err)
	}

	summariesLog := filepath.Join(opts.OutDir, summariesLogName)
	summariesCSV := filepath.Join(opts.OutDir, summariesCSVName)
	digestsLog := filepath.Join(opts.OutDir, chunkDigestsLogName)

	if !opts.Resume {
		for _, p := range []string{summariesLog, summariesCSV, digestsLog} {
			if err := fileutils.RemoveIfExists(p); err != nil {
				return 0, err
			}
		}
	}

	projects := GroupByProject(rows)
	if opts.OnlyProjectID != "" {
		projects = filterProjectsByID(projects, opts.OnlyProjectID)
	}
	if opts.LimitProjects > 0 && len(projects) > opts.LimitProjects {
		projects = projects[:opts.LimitProjects]
	}

	if opts.Resume {
		done, err := LoadProcessedIDs(summariesLog, "project_id")
		if err != nil {
			return 0, err
		}
		var pending []Project
		for _, p := range projects {
			if _, ok := done[p.ID]; !ok {
				pending = append(pending, p)
			}
		}
		if skipped := len(projects) - len(pending); skipped > 0 {
			fmt.Fprintf(warn, "resume: skipping %d already-summarized projects\n", skipped)
		}
		projects = pending
	}
	if opts.BatchSize > 0 && len(projects) > opts.BatchSize {
		projects = projects[:opts.BatchSize]
	}

	est := NewEstimator(settings.CharsPerToken)
	summarized := 0
	for i, project := range projects {
		if err := ctx.Err(); err != nil {
			return summarized, err
		}
		// Project names come from user-edited CSV cells; keep the
		// progress line one line.
		fmt.Fprintf(warn, "[%d/%d] summarizing project %s (%s): %d reviews\n",
			i+1, len(projects), project.ID, fileutils.SanitizeNewlines(project.Name), len(project.Rows))

		summary, digestRecords, err := summarizeProject(ctx, caller, est, settings, project, opts.SleepBetween)
		if err != nil {
			fmt.Fprintf(warn, "project %s failed, skipping: %v\n", project.ID, err)
			continue
		}
		for _, rec := range digestRecords {
			if err := fileutils.AppendJSONLine(digestsLog, rec); err != nil {
				return summarized, err
			}
		}
		if err := fileutils.AppendJSONLine(summariesLog, summary); err != nil {
			return summarized, err
		}
		summarized++
	}

	if err := RebuildSummariesCSV(summariesLog, summariesCSV); err != nil {
		return summarized, err
	}
	return summarized, nil
}

func summarizeProject(ctx context.Context, caller SummaryCaller, est Estimator, settings Settings, project Project, sleepBetween time.Duration) (ProjectSummary, []ChunkDigestRecord, error) {
	snippets := ProjectSnippets(project, settings.MaxReviewsPerProject, settings.MaxReviewChars)
	if len(snippets) == 0 {
		return ProjectSummary{}, nil, fmt.Errorf("no usable review text")
	}
	chunks := est.ChunkTexts(snippets, settings.ChunkTokens)

	var (
		digests []ChunkDigest
		records []ChunkDigestRecord
	)
	for _, chunk := range chunks {
		digest, err := caller.DigestChunk(ctx, project, chunk)
		if err != nil {
			return ProjectSummary{}, nil, fmt.Errorf("chunk %d: %w", chunk.ID, err)
		}
		digest.ChunkID = chunk.ID
		if err := digest.Validate(); err != nil {
			return ProjectSummary{}, nil, fmt.Errorf("chunk %d: %w", chunk.ID, err)
		}
		digests = append(digests, digest)
		records = append(records, ChunkDigestRecord{
			ProjectID:          project.ID,
			ProjectName:        project.Name,
			ChunkID:            chunk.ID,
			ChunkTokenEstimate: chunk.TokenEstimate,
			Digest:             digest,
		})
		if sleepBetween > 0 {
			time.Sleep(sleepBetween)
		}
	}

	summary, err := caller.ReduceProject(ctx, project, digests)
	if err != nil {
		return ProjectSummary{}, nil, fmt.Errorf("reduce: %w", err)
	}
	summary.ProjectID = project.ID
	summary.ProjectName = project.Name
	if err := summary.Validate(); err != nil {
		return ProjectSummary{}, nil, fmt.Errorf("reduce: %w", err)
	}
	if sleepBetween > 0 {
		time.Sleep(sleepBetween)
	}
	return summary, records, nil
}

func filterProjectsByID(projects []Project, id string) []Project {
	var out []Project
	for _, p := range projects {
		if p.ID == id {
			out = append(out, p)
		}
	}
	return out
}

// RebuildSummariesCSV regenerates the flat CSV projection by replaying the
// JSONL log, so the CSV always reflects the full log rather than one run's
// appends.
func RebuildSummariesCSV(logPath, csvPath string) error {
	lines, err := fileutils.ReadJSONLines(logPath)
	if err != nil {
		return err
	}

	header := []string{
		"project_id", "project_name", "headline", "overall_summary",
		"top_highlights", "watchouts_or_gaps", "best_for", "not_ideal_for", "evidence_notes",
	}
	var records [][]string
	for _, line := range lines {
		var s ProjectSummary
		if err := json.Unmarshal(line, &s); err != nil {
			continue
		}
		records = append(records, []string{
			s.ProjectID,
			s.ProjectName,
			s.Headline,
			s.OverallSummary,
			strings.Join(s.TopHighlights, listDelimiter),
			strings.Join(s.WatchoutsOrGaps, listDelimiter),
			strings.Join(s.BestFor, listDelimiter),
			strings.Join(s.NotIdealFor, listDelimiter),
			strings.Join(s.EvidenceNotes, listDelimiter),
		})
	}
	return fileutils.WriteCSVAtomic(csvPath, header, records)
}

// summaryCaller implements SummaryCaller on top of a Generator.
type summaryCaller struct {
	gen         *Generator
	temperature float64
}

func NewSummaryCaller(gen *Generator, temperature float64) SummaryCaller {
	return &summaryCaller{gen: gen, temperature: temperature}
}

var (
	chunkDigestSchema    = SchemaFor[ChunkDigest]()
	projectSummarySchema = SchemaFor[ProjectSummary]()
)

func (c *summaryCaller) DigestChunk(ctx context.Context, project Project, chunk Chunk) (ChunkDigest, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Project: %s (ProjectId: %s)\n", project.Name, project.ID)
	fmt.Fprintf(&sb, "Chunk %d.\n\nREVIEW_SNIPPETS_CHUNK:\n%s", chunk.ID, chunk.Text)

	var out ChunkDigest
	err := c.gen.Parse(ctx, CallInput{
		Instructions: chunkSystemPrompt,
		User:         sb.String(),
		SchemaName:   "ChunkDigest",
		Schema:       chunkDigestSchema,
		Temperature:  c.temperature,
	}, &out)
	return out, err
}

func (c *summaryCaller) ReduceProject(ctx context.Context, project Project, digests []ChunkDigest) (ProjectSummary, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Project: %s (ProjectId: %s)\n", project.Name, project.ID)
	fmt.Fprintf(&sb, "Total chunks: %d\n", len(digests))
	for _, d := range digests {
		fmt.Fprintf(&sb, "\nCHUNK %d:\nSummary: %s\nPositives: %s\nWatchouts: %s\n",
			d.ChunkID, d.ChunkSummary,
			strings.Join(d.CommonPositives, "; "),
			strings.Join(d.WatchoutsOrGaps, "; "))
	}

	var out ProjectSummary
	err := c.gen.Parse(ctx, CallInput{
		Instructions: reduceSystemPrompt,
		User:         sb.String(),
		SchemaName:   "ProjectSummary",
		Schema:       projectSummarySchema,
		Temperature:  c.temperature,
	}, &out)
	return out, err
}
