package rollup

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadProcessedIDsMissingFile(t *testing.T) {
	t.Parallel()

	got, err := LoadProcessedIDs(filepath.Join(t.TempDir(), "nope.jsonl"), "project_id")
	if err != nil {
		t.Fatalf("missing file: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d ids, want 0", len(got))
	}
}

func TestLoadProcessedIDsSkipsCorruptTail(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "log.jsonl")
	content := `{"review_uid":"aaa","tag_1":"x"}
{"review_uid":"bbb","tag_1":"y"}

{"review_uid":"ccc","tag_1":`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	got, err := LoadProcessedIDs(path, "review_uid")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d ids, want 2", len(got))
	}
	for _, uid := range []string{"aaa", "bbb"} {
		if _, ok := got[uid]; !ok {
			t.Fatalf("missing uid %s", uid)
		}
	}
	if _, ok := got["ccc"]; ok {
		t.Fatalf("corrupt tail line should not contribute an id")
	}
}

func TestLoadProcessedIDsIgnoresWrongTypesAndBlanks(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "log.jsonl")
	content := `{"project_id":"p1"}
{"project_id":42}
{"project_id":"  "}
{"other":"p2"}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	got, err := LoadProcessedIDs(path, "project_id")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d ids, want 1", len(got))
	}
	if _, ok := got["p1"]; !ok {
		t.Fatalf("missing p1")
	}
}
