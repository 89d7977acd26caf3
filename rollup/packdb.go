package rollup

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/brickfolio/review-rollup/rollup/fileutils"
)

// MigrationCounts reports rows loaded per table.
type MigrationCounts struct {
	ProjectSummaries int
	ReviewTags       int
}

const packSchemaSQL = `
DROP TABLE IF EXISTS review_tags;
DROP TABLE IF EXISTS project_summaries;

CREATE TABLE project_summaries (
	project_id        TEXT PRIMARY KEY,
	project_name      TEXT NOT NULL,
	headline          TEXT NOT NULL,
	overall_summary   TEXT NOT NULL,
	top_highlights    TEXT NOT NULL,
	watchouts_or_gaps TEXT NOT NULL,
	best_for          TEXT NOT NULL,
	not_ideal_for     TEXT NOT NULL,
	evidence_notes    TEXT NOT NULL
);

CREATE TABLE review_tags (
	review_uid   TEXT PRIMARY KEY,
	project_id   TEXT NOT NULL,
	project_name TEXT NOT NULL,
	rating       REAL,
	created_on   TEXT,
	tag_1        TEXT NOT NULL,
	tag_2        TEXT NOT NULL,
	tag_3        TEXT NOT NULL
);

CREATE INDEX idx_review_tags_project ON review_tags (project_id);
`

// MigrateLogsToSQLite loads the summary and tag JSONL logs into a fresh
// SQLite database for ad-hoc querying. Existing tables are dropped; the
// whole load runs in one transaction so a failed migration leaves no partial
// state.
func MigrateLogsToSQLite(summariesLog, tagsLog, dbPath string) (MigrationCounts, error) {
	var counts MigrationCounts

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return counts, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(packSchemaSQL); err != nil {
		return counts, fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return counts, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	summaryStmt, err := tx.Prepare(`INSERT OR REPLACE INTO project_summaries
		(project_id, project_name, headline, overall_summary, top_highlights,
		 watchouts_or_gaps, best_for, not_ideal_for, evidence_notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return counts, fmt.Errorf("prepare summary insert: %w", err)
	}
	defer summaryStmt.Close()

	summaryLines, err := fileutils.ReadJSONLines(summariesLog)
	if err != nil {
		return counts, err
	}
	for _, line := range summaryLines {
		var s ProjectSummary
		if err := json.Unmarshal(line, &s); err != nil || s.ProjectID == "" {
			continue
		}
		if _, err := summaryStmt.Exec(
			s.ProjectID, s.ProjectName, s.Headline, s.OverallSummary,
			strings.Join(s.TopHighlights, listDelimiter),
			strings.Join(s.WatchoutsOrGaps, listDelimiter),
			strings.Join(s.BestFor, listDelimiter),
			strings.Join(s.NotIdealFor, listDelimiter),
			strings.Join(s.EvidenceNotes, listDelimiter),
		); err != nil {
			return counts, fmt.Errorf("insert summary %s: %w", s.ProjectID, err)
		}
		counts.ProjectSummaries++
	}

	tagStmt, err := tx.Prepare(`INSERT OR REPLACE INTO review_tags
		(review_uid, project_id, project_name, rating, created_on, tag_1, tag_2, tag_3)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return counts, fmt.Errorf("prepare tag insert: %w", err)
	}
	defer tagStmt.Close()

	tagLines, err := fileutils.ReadJSONLines(tagsLog)
	if err != nil {
		return counts, err
	}
	for _, line := range tagLines {
		var rec TagRecord
		if err := json.Unmarshal(line, &rec); err != nil || rec.ReviewUID == "" {
			continue
		}
		var rating interface{}
		if rec.Rating != nil {
			rating = *rec.Rating
		}
		if _, err := tagStmt.Exec(
			rec.ReviewUID, rec.ProjectID, rec.ProjectName, rating, rec.CreatedOn,
			rec.Tag1, rec.Tag2, rec.Tag3,
		); err != nil {
			return counts, fmt.Errorf("insert tags for %s: %w", rec.ReviewUID, err)
		}
		counts.ReviewTags++
	}

	if err := tx.Commit(); err != nil {
		return counts, fmt.Errorf("commit transaction: %w", err)
	}
	return counts, nil
}
