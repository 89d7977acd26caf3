package rollup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeSummaryCaller struct {
	digestCalls int
	reduceCalls int
	failProject string
}

func (f *fakeSummaryCaller) DigestChunk(_ context.Context, project Project, chunk Chunk) (ChunkDigest, error) {
	f.digestCalls++
	if project.ID == f.failProject {
		return ChunkDigest{}, errors.New("digest failed")
	}
	return ChunkDigest{
		ChunkSummary:    fmt.Sprintf("summary of chunk %d for %s", chunk.ID, project.ID),
		CommonPositives: []string{"location"},
		WatchoutsOrGaps: []string{"delays"},
	}, nil
}

func (f *fakeSummaryCaller) ReduceProject(_ context.Context, project Project, digests []ChunkDigest) (ProjectSummary, error) {
	f.reduceCalls++
	return ProjectSummary{
		Headline:        "Headline for " + project.Name,
		OverallSummary:  fmt.Sprintf("Merged %d chunk digests.", len(digests)),
		TopHighlights:   []string{"a", "b", "c", "d"},
		WatchoutsOrGaps: []string{"w1", "w2"},
		BestFor:         []string{"f1", "f2"},
		NotIdealFor:     []string{"n1"},
		EvidenceNotes:   []string{"e1", "e2", "e3"},
	}, nil
}

func testSettings() Settings {
	s := DefaultSettings()
	s.APIKey = "test-key"
	return s
}

func summarizeCSV(t *testing.T) string {
	t.Helper()
	return writeCSV(t, strings.Join([]string{
		"ProjectId,ProjectName,Description,Rating,CreatedOn,UserId",
		"p1,Alpha,Great location and amenities,4.5,2024-01-01,u1",
		"p1,Alpha,Construction is a bit slow,3.0,2024-02-01,u2",
		"p1,Alpha,Spacious layouts,4.0,2024-03-01,u3",
		"p2,Beta,Too far from the city,2.5,2024-01-15,u4",
	}, "\n")+"\n")
}

func TestGenerateProjectSummariesEndToEnd(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	caller := &fakeSummaryCaller{}
	var warn bytes.Buffer

	n, err := GenerateProjectSummaries(context.Background(), caller, testSettings(), SummarizeOptions{
		CSVPath: summarizeCSV(t),
		OutDir:  outDir,
		Resume:  true,
	}, &warn)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != 2 {
		t.Fatalf("summarized=%d, want 2", n)
	}
	if caller.reduceCalls != 2 {
		t.Fatalf("reduce calls=%d, want 2", caller.reduceCalls)
	}

	// Summary log carries validated, identity-stamped records.
	lines := mustReadLines(t, filepath.Join(outDir, summariesLogName))
	if len(lines) != 2 {
		t.Fatalf("summary log lines=%d, want 2", len(lines))
	}
	var first ProjectSummary
	if err := json.Unmarshal(lines[0], &first); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	// p1 has more reviews, so it is processed first.
	if first.ProjectID != "p1" || first.ProjectName != "Alpha" {
		t.Fatalf("first summary identity=%s/%s", first.ProjectID, first.ProjectName)
	}

	// Chunk digest log exists and references p1.
	digests := mustReadLines(t, filepath.Join(outDir, chunkDigestsLogName))
	if len(digests) != 2 {
		t.Fatalf("digest log lines=%d, want 2", len(digests))
	}

	// CSV projection mirrors the log.
	csvBytes, err := os.ReadFile(filepath.Join(outDir, summariesCSVName))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if !strings.Contains(string(csvBytes), "Headline for Alpha") {
		t.Fatalf("csv projection missing summary data")
	}
	if !strings.Contains(string(csvBytes), "a | b | c | d") {
		t.Fatalf("csv projection missing joined list")
	}
}

func TestGenerateProjectSummariesResumeSkipsDone(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	csvPath := summarizeCSV(t)
	opts := SummarizeOptions{CSVPath: csvPath, OutDir: outDir, Resume: true}

	first := &fakeSummaryCaller{}
	if _, err := GenerateProjectSummaries(context.Background(), first, testSettings(), opts, &bytes.Buffer{}); err != nil {
		t.Fatalf("first run: %v", err)
	}

	second := &fakeSummaryCaller{}
	var warn bytes.Buffer
	n, err := GenerateProjectSummaries(context.Background(), second, testSettings(), opts, &warn)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if n != 0 {
		t.Fatalf("second run summarized=%d, want 0", n)
	}
	if second.digestCalls != 0 || second.reduceCalls != 0 {
		t.Fatalf("second run made calls: digest=%d reduce=%d", second.digestCalls, second.reduceCalls)
	}
	if !strings.Contains(warn.String(), "resume: skipping 2") {
		t.Fatalf("missing resume notice, got %q", warn.String())
	}
}

func TestGenerateProjectSummariesCleanRunWipesOutputs(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	csvPath := summarizeCSV(t)

	if _, err := GenerateProjectSummaries(context.Background(), &fakeSummaryCaller{}, testSettings(),
		SummarizeOptions{CSVPath: csvPath, OutDir: outDir, Resume: true}, &bytes.Buffer{}); err != nil {
		t.Fatalf("first run: %v", err)
	}

	n, err := GenerateProjectSummaries(context.Background(), &fakeSummaryCaller{}, testSettings(),
		SummarizeOptions{CSVPath: csvPath, OutDir: outDir, Resume: false}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("clean run: %v", err)
	}
	if n != 2 {
		t.Fatalf("clean run summarized=%d, want 2 (logs wiped)", n)
	}
	lines := mustReadLines(t, filepath.Join(outDir, summariesLogName))
	if len(lines) != 2 {
		t.Fatalf("log lines=%d after clean run, want 2", len(lines))
	}
}

func TestGenerateProjectSummariesFailedProjectSkipped(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	caller := &fakeSummaryCaller{failProject: "p1"}
	var warn bytes.Buffer

	n, err := GenerateProjectSummaries(context.Background(), caller, testSettings(), SummarizeOptions{
		CSVPath: summarizeCSV(t),
		OutDir:  outDir,
		Resume:  true,
	}, &warn)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != 1 {
		t.Fatalf("summarized=%d, want 1 (p1 failed)", n)
	}
	if !strings.Contains(warn.String(), "project p1 failed") {
		t.Fatalf("missing failure warning, got %q", warn.String())
	}
}

func TestGenerateProjectSummariesOnlyProjectFilter(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	caller := &fakeSummaryCaller{}

	n, err := GenerateProjectSummaries(context.Background(), caller, testSettings(), SummarizeOptions{
		CSVPath:       summarizeCSV(t),
		OutDir:        outDir,
		Resume:        true,
		OnlyProjectID: "p2",
	}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != 1 {
		t.Fatalf("summarized=%d, want 1", n)
	}
	var s ProjectSummary
	lines := mustReadLines(t, filepath.Join(outDir, summariesLogName))
	if err := json.Unmarshal(lines[0], &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.ProjectID != "p2" {
		t.Fatalf("summarized %s, want p2", s.ProjectID)
	}
}

func mustReadLines(t *testing.T, path string) [][]byte {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var out [][]byte
	for _, line := range bytes.Split(b, []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			out = append(out, line)
		}
	}
	return out
}
