package rollup

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// TagRegenerator produces tags for a single review. It is the narrow surface
// the repair loop needs, so tests can fake it without a live client.
type TagRegenerator interface {
	RegenerateTags(ctx context.Context, item WorkItem) ([]string, error)
}

// RepairTags reconciles a parsed tag batch against the work items that were
// sent. Completeness first: every item missing from the response gets one
// individual regeneration. Conformance second: tags are normalized and
// shortened; items still invalid after that get one terminal regeneration
// whose output is accepted after clamping, valid or not. Items whose
// regeneration calls fail are dropped with a warning; the caller decides what
// a dropped item means.
func RepairTags(ctx context.Context, regen TagRegenerator, batch []WorkItem, parsed ReviewTagBatch, maxLen int, warn io.Writer) map[string][]string {
	tagsByUID := make(map[string][]string, len(batch))
	for _, it := range parsed.Items {
		uid := strings.TrimSpace(it.ReviewUID)
		if uid == "" {
			continue
		}
		tagsByUID[uid] = normalizeTags(it.Tags, maxLen)
	}

	var missing []WorkItem
	for _, item := range batch {
		if _, ok := tagsByUID[item.ReviewUID]; !ok {
			missing = append(missing, item)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintf(warn, "repair: %d of %d reviews missing from batch output, regenerating individually\n", len(missing), len(batch))
	}
	for _, item := range missing {
		tags, err := regen.RegenerateTags(ctx, item)
		if err != nil {
			fmt.Fprintf(warn, "repair: regeneration failed for review %s: %v\n", item.ReviewUID, err)
			continue
		}
		tagsByUID[item.ReviewUID] = normalizeTags(tags, maxLen)
	}

	for _, item := range batch {
		tags, ok := tagsByUID[item.ReviewUID]
		if !ok || ValidateTags(tags, maxLen) {
			continue
		}
		regenerated, err := regen.RegenerateTags(ctx, item)
		if err != nil {
			fmt.Fprintf(warn, "repair: terminal regeneration failed for review %s: %v\n", item.ReviewUID, err)
			delete(tagsByUID, item.ReviewUID)
			continue
		}
		// Terminal attempt: take what came back, clamped. Never loop.
		tagsByUID[item.ReviewUID] = clampTags(regenerated, maxLen)
	}

	return tagsByUID
}

func normalizeTags(tags []string, maxLen int) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, ShortenTag(t, maxLen))
	}
	return out
}

// clampTags forces tags under the ceiling even when ShortenTag could not,
// cutting mid-word as a last resort. The cut is rune-based so a multibyte
// character is never split.
func clampTags(tags []string, maxLen int) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = ShortenTag(t, maxLen)
		if r := []rune(t); maxLen > 0 && len(r) > maxLen {
			t = strings.TrimSpace(string(r[:maxLen]))
		}
		out = append(out, t)
	}
	return out
}
