package rollup

import "strings"

const defaultCharsPerToken = 4

// Estimator approximates the generation-service token cost of a text. The
// chars-per-token ratio is fixed at construction and never mutated, so every
// estimate within a run uses the same encoding.
type Estimator struct {
	charsPerToken int
}

func NewEstimator(charsPerToken int) Estimator {
	if charsPerToken <= 0 {
		charsPerToken = defaultCharsPerToken
	}
	return Estimator{charsPerToken: charsPerToken}
}

// Estimate returns the approximate token count of text, rounding up.
func (e Estimator) Estimate(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + e.charsPerToken - 1) / e.charsPerToken
}

// Chunk is one summarizer-ready slice of a project's review snippets.
type Chunk struct {
	ID            int    `json:"chunk_id"`
	Text          string `json:"text"`
	TokenEstimate int    `json:"token_estimate"`
}

// ChunkTexts greedily packs snippets, in order, into chunks of at most
// maxTokens estimated tokens. A snippet whose own estimate exceeds maxTokens
// is hard-split into fixed-size character slices and fed through the same
// accumulation, so packing always makes progress. Snippet text is preserved
// verbatim across chunk boundaries; chunk IDs are 1-based and contiguous.
// Empty input yields no chunks.
func (e Estimator) ChunkTexts(snippets []string, maxTokens int) []Chunk {
	var chunks []Chunk
	var buf []string
	bufTokens := 0

	flush := func() {
		if len(buf) == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			ID:            len(chunks) + 1,
			Text:          strings.Join(buf, "\n"),
			TokenEstimate: bufTokens,
		})
		buf, bufTokens = nil, 0
	}

	add := func(part string) {
		t := e.Estimate(part)
		if len(buf) > 0 && bufTokens+t > maxTokens {
			flush()
		}
		buf = append(buf, part)
		bufTokens += t
	}

	for _, s := range snippets {
		if e.Estimate(s) <= maxTokens {
			add(s)
			continue
		}
		step := len(s) / 4
		if step < 500 {
			step = 500
		}
		for i := 0; i < len(s); i += step {
			end := i + step
			if end > len(s) {
				end = len(s)
			}
			add(s[i:end])
		}
	}
	flush()
	return chunks
}
