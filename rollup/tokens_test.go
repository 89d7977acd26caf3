package rollup

import (
	"strings"
	"testing"
)

func TestEstimate(t *testing.T) {
	t.Parallel()

	e := NewEstimator(4)
	if got := e.Estimate(""); got != 0 {
		t.Fatalf("empty: got %d, want 0", got)
	}
	if got := e.Estimate("abcd"); got != 1 {
		t.Fatalf("4 chars: got %d, want 1", got)
	}
	// Rounds up.
	if got := e.Estimate("abcde"); got != 2 {
		t.Fatalf("5 chars: got %d, want 2", got)
	}
}

func TestChunkTextsSmallInputSingleChunk(t *testing.T) {
	t.Parallel()

	e := NewEstimator(4)
	chunks := e.ChunkTexts([]string{"- good location", "- nice amenities"}, 1000)
	if len(chunks) != 1 {
		t.Fatalf("chunks=%d, want 1", len(chunks))
	}
	if chunks[0].ID != 1 {
		t.Fatalf("chunk id=%d, want 1", chunks[0].ID)
	}
	want := "- good location\n- nice amenities"
	if chunks[0].Text != want {
		t.Fatalf("text=%q, want %q", chunks[0].Text, want)
	}
	if chunks[0].TokenEstimate != e.Estimate(want) {
		t.Fatalf("token estimate=%d, want %d", chunks[0].TokenEstimate, e.Estimate(want))
	}
}

func TestChunkTextsRespectsBudget(t *testing.T) {
	t.Parallel()

	e := NewEstimator(4)
	// Each snippet is 40 chars = 10 tokens; budget 25 tokens fits two per chunk.
	snippet := strings.Repeat("x", 40)
	chunks := e.ChunkTexts([]string{snippet, snippet, snippet, snippet, snippet}, 25)
	if len(chunks) != 3 {
		t.Fatalf("chunks=%d, want 3", len(chunks))
	}
	for i, c := range chunks {
		if c.ID != i+1 {
			t.Fatalf("chunk %d has id=%d", i, c.ID)
		}
		if c.TokenEstimate > 25 {
			t.Fatalf("chunk %d over budget: %d tokens", i, c.TokenEstimate)
		}
	}
}

func TestChunkTextsHardSplitsOversizedSnippet(t *testing.T) {
	t.Parallel()

	e := NewEstimator(4)
	// One snippet far beyond the budget must be split rather than dropped.
	big := strings.Repeat("a", 5000)
	chunks := e.ChunkTexts([]string{big}, 100)
	if len(chunks) < 2 {
		t.Fatalf("chunks=%d, want at least 2", len(chunks))
	}

	// All text survives; slices are joined with newlines inside chunks.
	var sb strings.Builder
	for _, c := range chunks {
		sb.WriteString(c.Text)
	}
	joined := strings.ReplaceAll(sb.String(), "\n", "")
	if joined != big {
		t.Fatalf("reassembled %d chars, want %d", len(joined), len(big))
	}
}

func TestChunkTextsEmptyInput(t *testing.T) {
	t.Parallel()

	e := NewEstimator(4)
	if chunks := e.ChunkTexts(nil, 1000); chunks != nil {
		t.Fatalf("got %d chunks, want nil", len(chunks))
	}
}
