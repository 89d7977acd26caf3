package rollup

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxTagLen is the UI ceiling for a single tag, in characters.
const MaxTagLen = 28

// minMeaningfulTagLen guards against word-dropping plus truncation leaving a
// stub; below this the pre-stoplist form is truncated instead.
const minMeaningfulTagLen = 6

var (
	// Letters, combining marks and digits in any script survive cleaning;
	// reviews are not English-only, and dropping marks would mangle Indic
	// text.
	tagPunct = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s&/-]`)

	// fillerWords are dropped first when a cleaned tag exceeds the ceiling.
	fillerWords = map[string]struct{}{
		"Very": {}, "Highly": {}, "Really": {}, "Quite": {}, "Mostly": {},
		"Generally": {}, "Appreciating": {}, "Noting": {}, "Finding": {},
	}
)

// CleanTag normalizes a raw model tag: strip surrounding quotes, drop
// punctuation other than &, / and -, collapse whitespace, and title-case
// words while keeping short all-caps tokens (UPI, RERA) as acronyms.
func CleanTag(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.Trim(tag, `"'`)
	tag = tagPunct.ReplaceAllString(tag, "")
	tag = collapseWhitespace(tag)
	return titleCasePreserveAcronyms(tag)
}

func titleCasePreserveAcronyms(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if utf8.RuneCountInString(w) <= 5 && w == strings.ToUpper(w) && w != strings.ToLower(w) {
			continue
		}
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// ShortenTag enforces the length ceiling while keeping as much meaning as
// possible: drop filler words first, then truncate at a word boundary; if
// that leaves a stub shorter than minMeaningfulTagLen, truncate the
// pre-stoplist form instead. Lengths are counted in characters, not bytes,
// so multibyte scripts are never over-penalized. The result never exceeds
// maxLen.
func ShortenTag(tag string, maxLen int) string {
	tag = CleanTag(tag)
	if maxLen <= 0 || utf8.RuneCountInString(tag) <= maxLen {
		return tag
	}

	kept := make([]string, 0, 8)
	for _, w := range strings.Fields(tag) {
		if _, filler := fillerWords[w]; filler {
			continue
		}
		kept = append(kept, w)
	}
	short := strings.Join(kept, " ")
	if short != "" && utf8.RuneCountInString(short) <= maxLen {
		return short
	}

	short = truncateAtWordBoundary(short, maxLen)
	if utf8.RuneCountInString(short) < minMeaningfulTagLen {
		short = truncateAtWordBoundary(tag, maxLen)
	}
	return short
}

func truncateAtWordBoundary(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	cut := strings.TrimRight(string(r[:maxLen]), " ")
	if r[maxLen] != ' ' {
		if sp := strings.LastIndex(cut, " "); sp > 0 {
			cut = strings.TrimRight(cut[:sp], " ")
		}
	}
	return cut
}

// ValidateTags reports whether tags satisfies the output contract: exactly
// three tags, each non-empty once trimmed and at most maxLen characters.
func ValidateTags(tags []string, maxLen int) bool {
	if len(tags) != 3 {
		return false
	}
	for _, t := range tags {
		if strings.TrimSpace(t) == "" {
			return false
		}
		if maxLen > 0 && utf8.RuneCountInString(t) > maxLen {
			return false
		}
	}
	return true
}
