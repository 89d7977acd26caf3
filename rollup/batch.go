package rollup

import (
	"encoding/json"
	"fmt"
)

// WorkItem is one review to be tagged, exactly as serialized into the
// generation request.
type WorkItem struct {
	ReviewUID   string   `json:"review_uid"`
	ProjectID   string   `json:"project_id"`
	ProjectName string   `json:"project_name"`
	Rating      *float64 `json:"rating"`
	CreatedOn   string   `json:"created_on,omitempty"`
	ReviewText  string   `json:"review_text"`
}

// PackItems packs items, in order, into batches of at most maxTokens
// estimated payload tokens, then splits any batch whose length exceeds
// maxPerBatch into contiguous sub-batches. Every item lands in exactly one
// batch. An item whose payload alone exceeds maxTokens becomes a singleton
// batch; review text is length-capped upstream, so there is no hard split
// here.
func (e Estimator) PackItems(items []WorkItem, maxTokens, maxPerBatch int) ([][]WorkItem, error) {
	var packed [][]WorkItem
	var buf []WorkItem
	bufTokens := 0

	for _, it := range items {
		payload, err := json.Marshal(it)
		if err != nil {
			return nil, fmt.Errorf("marshal work item %s: %w", it.ReviewUID, err)
		}
		t := e.Estimate(string(payload))
		if len(buf) > 0 && bufTokens+t > maxTokens {
			packed = append(packed, buf)
			buf, bufTokens = nil, 0
		}
		buf = append(buf, it)
		bufTokens += t
	}
	if len(buf) > 0 {
		packed = append(packed, buf)
	}

	if maxPerBatch <= 0 {
		return packed, nil
	}
	var out [][]WorkItem
	for _, b := range packed {
		for i := 0; i < len(b); i += maxPerBatch {
			end := i + maxPerBatch
			if end > len(b) {
				end = len(b)
			}
			out = append(out, b[i:end:end])
		}
	}
	return out, nil
}
