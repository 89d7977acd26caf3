package rollup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeTagCaller struct {
	batchCalls  int
	regenCalls  int
	malformed   bool
	failBatches bool
}

func (f *fakeTagCaller) TagBatch(_ context.Context, items []WorkItem) (ReviewTagBatch, error) {
	f.batchCalls++
	if f.failBatches {
		return ReviewTagBatch{}, errors.New("transport exhausted")
	}
	if f.malformed {
		return ReviewTagBatch{}, &SchemaError{Err: errors.New("bad json")}
	}
	out := ReviewTagBatch{}
	for _, it := range items {
		out.Items = append(out.Items, ReviewTagItem{
			ReviewUID: it.ReviewUID,
			Tags:      []string{"Good Location", "Spacious Rooms", "Quiet Area"},
		})
	}
	return out, nil
}

func (f *fakeTagCaller) RegenerateTags(_ context.Context, _ WorkItem) ([]string, error) {
	f.regenCalls++
	return []string{"Good Location", "Spacious Rooms", "Quiet Area"}, nil
}

func taggingCSV(t *testing.T) string {
	t.Helper()
	return writeCSV(t, strings.Join([]string{
		"ProjectId,ProjectName,Description,Rating,CreatedOn,UserId",
		"p1,Alpha,Great location,4.5,2024-01-01,u1",
		"p1,Alpha,Slow construction,3.0,2024-02-01,u2",
		"p2,Beta,Too far out,2.5,2024-01-15,u3",
		"p2,Beta,,2.0,2024-01-16,u4",
		"p1,Alpha,Great location,4.5,2024-01-01,u1",
	}, "\n")+"\n")
}

func TestGenerateReviewTagsEndToEnd(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	caller := &fakeTagCaller{}
	var warn bytes.Buffer

	n, err := GenerateReviewTags(context.Background(), caller, testSettings(), TagOptions{
		CSVPath: taggingCSV(t),
		OutDir:  outDir,
		Resume:  true,
	}, &warn)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// 5 rows, one empty text, one exact duplicate: 3 unique taggable reviews.
	if n != 3 {
		t.Fatalf("tagged=%d, want 3", n)
	}

	lines := mustReadLines(t, filepath.Join(outDir, tagsLogName))
	if len(lines) != 3 {
		t.Fatalf("tag log lines=%d, want 3", len(lines))
	}
	var rec TagRecord
	if err := json.Unmarshal(lines[0], &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.ReviewUID == "" || rec.Tag1 == "" || rec.Tag2 == "" || rec.Tag3 == "" {
		t.Fatalf("incomplete record: %+v", rec)
	}

	csvBytes, err := os.ReadFile(filepath.Join(outDir, tagsCSVName))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if !strings.Contains(string(csvBytes), "Good Location") {
		t.Fatalf("csv projection missing tags")
	}
}

func TestGenerateReviewTagsResumeMakesNoCalls(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	csvPath := taggingCSV(t)
	opts := TagOptions{CSVPath: csvPath, OutDir: outDir, Resume: true}

	if _, err := GenerateReviewTags(context.Background(), &fakeTagCaller{}, testSettings(), opts, &bytes.Buffer{}); err != nil {
		t.Fatalf("first run: %v", err)
	}

	second := &fakeTagCaller{}
	var warn bytes.Buffer
	n, err := GenerateReviewTags(context.Background(), second, testSettings(), opts, &warn)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if n != 0 {
		t.Fatalf("second run tagged=%d, want 0", n)
	}
	if second.batchCalls != 0 || second.regenCalls != 0 {
		t.Fatalf("second run made calls: batch=%d regen=%d", second.batchCalls, second.regenCalls)
	}
	if !strings.Contains(warn.String(), "resume: skipping 3") {
		t.Fatalf("missing resume notice, got %q", warn.String())
	}
}

func TestGenerateReviewTagsMalformedBatchRepaired(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	caller := &fakeTagCaller{malformed: true}
	var warn bytes.Buffer

	n, err := GenerateReviewTags(context.Background(), caller, testSettings(), TagOptions{
		CSVPath: taggingCSV(t),
		OutDir:  outDir,
		Resume:  true,
	}, &warn)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// Malformed batch output routes every item through individual regeneration.
	if n != 3 {
		t.Fatalf("tagged=%d, want 3 via repair", n)
	}
	if caller.regenCalls != 3 {
		t.Fatalf("regen calls=%d, want 3", caller.regenCalls)
	}
	if !strings.Contains(warn.String(), "output malformed") {
		t.Fatalf("missing malformed warning, got %q", warn.String())
	}
}

func TestGenerateReviewTagsTransportFailureSkipsBatch(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	caller := &fakeTagCaller{failBatches: true}
	var warn bytes.Buffer

	n, err := GenerateReviewTags(context.Background(), caller, testSettings(), TagOptions{
		CSVPath: taggingCSV(t),
		OutDir:  outDir,
		Resume:  true,
	}, &warn)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != 0 {
		t.Fatalf("tagged=%d, want 0 when every batch call fails", n)
	}
	if caller.regenCalls != 0 {
		t.Fatalf("regen calls=%d, want 0 for transport failures", caller.regenCalls)
	}
	if !strings.Contains(warn.String(), "failed, skipping") {
		t.Fatalf("missing skip warning, got %q", warn.String())
	}
}

func TestGenerateReviewTagsLimitRows(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	caller := &fakeTagCaller{}

	n, err := GenerateReviewTags(context.Background(), caller, testSettings(), TagOptions{
		CSVPath:   taggingCSV(t),
		OutDir:    outDir,
		Resume:    true,
		LimitRows: 1,
	}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != 1 {
		t.Fatalf("tagged=%d, want 1", n)
	}
}
