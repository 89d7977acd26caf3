package rollup

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// ChunkDigest is the structured output of one map-step call over a chunk of
// review snippets.
type ChunkDigest struct {
	ChunkID         int      `json:"chunk_id" jsonschema_description:"1-based chunk index within the project"`
	ChunkSummary    string   `json:"chunk_summary" jsonschema_description:"Concise summary of what reviewers said in this chunk"`
	CommonPositives []string `json:"common_positives" jsonschema_description:"Most common positives mentioned in this chunk"`
	WatchoutsOrGaps []string `json:"watchouts_or_gaps" jsonschema_description:"Neutral watch-outs / gaps / constraints mentioned"`
}

func (d ChunkDigest) Validate() error {
	if strings.TrimSpace(d.ChunkSummary) == "" {
		return fmt.Errorf("chunk_summary is empty")
	}
	return nil
}

// ProjectSummary is the structured output of the reduce call and the record
// appended to the project summary log.
type ProjectSummary struct {
	ProjectID   string `json:"project_id"`
	ProjectName string `json:"project_name"`

	Headline       string `json:"headline" jsonschema_description:"Short, crisp headline (<= 90 chars)"`
	OverallSummary string `json:"overall_summary" jsonschema_description:"150-250 words, neutral, factual, review-grounded"`

	TopHighlights   []string `json:"top_highlights" jsonschema_description:"4-7 key USPs across reviews"`
	WatchoutsOrGaps []string `json:"watchouts_or_gaps" jsonschema_description:"2-6 neutral risks / limitations"`
	BestFor         []string `json:"best_for" jsonschema_description:"2-5 audiences this project suits best, inferred from reviews"`
	NotIdealFor     []string `json:"not_ideal_for" jsonschema_description:"1-4 audiences who may not like it, inferred from reviews"`
	EvidenceNotes   []string `json:"evidence_notes" jsonschema_description:"3-8 short evidence statements grounded in reviews"`
}

// Validate checks the output contract at the generation-result boundary. It
// returns an error instead of panicking so contract violations stay
// distinguishable from construction bugs.
func (s ProjectSummary) Validate() error {
	if strings.TrimSpace(s.Headline) == "" {
		return fmt.Errorf("headline is empty")
	}
	if strings.TrimSpace(s.OverallSummary) == "" {
		return fmt.Errorf("overall_summary is empty")
	}
	checks := []struct {
		name     string
		values   []string
		min, max int
	}{
		{"top_highlights", s.TopHighlights, 4, 7},
		{"watchouts_or_gaps", s.WatchoutsOrGaps, 2, 6},
		{"best_for", s.BestFor, 2, 5},
		{"not_ideal_for", s.NotIdealFor, 1, 4},
		{"evidence_notes", s.EvidenceNotes, 3, 8},
	}
	for _, c := range checks {
		if len(c.values) < c.min || len(c.values) > c.max {
			return fmt.Errorf("%s has %d entries, want %d-%d", c.name, len(c.values), c.min, c.max)
		}
		for _, v := range c.values {
			if strings.TrimSpace(v) == "" {
				return fmt.Errorf("%s contains an empty entry", c.name)
			}
		}
	}
	return nil
}

// ReviewTagItem is one review's raw tag output. Only the count and
// non-emptiness are enforced at parse time; length is the repair loop's job,
// so a long tag never fails the whole batch.
type ReviewTagItem struct {
	ReviewUID string   `json:"review_uid" jsonschema_description:"Deterministic unique id for the review row"`
	Tags      []string `json:"tags" jsonschema_description:"Exactly 3 UI tags (raw, may be long)"`
}

func (it ReviewTagItem) Validate() error {
	if strings.TrimSpace(it.ReviewUID) == "" {
		return fmt.Errorf("review_uid is empty")
	}
	if len(it.Tags) != 3 {
		return fmt.Errorf("tags has %d items, want 3", len(it.Tags))
	}
	for i, t := range it.Tags {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("tags[%d] is empty", i)
		}
	}
	return nil
}

// ReviewTagBatch is the structured output of one tagging call.
type ReviewTagBatch struct {
	Items []ReviewTagItem `json:"items" jsonschema_description:"Tag outputs for the input reviews"`
}

// SchemaFor reflects T into a JSON schema suitable for strict structured
// outputs.
func SchemaFor[T any]() map[string]interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	schemaObj, err := schemaToMap(schema)
	if err != nil {
		panic(err)
	}
	ensureStrictCompliance(schemaObj)
	return schemaObj
}

func schemaToMap(schema *jsonschema.Schema) (map[string]interface{}, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

const (
	propertiesKey           = "properties"
	additionalPropertiesKey = "additionalProperties"
	typeKey                 = "type"
	requiredKey             = "required"
	itemsKey                = "items"
)

// ensureStrictCompliance rewrites the reflected schema the way the strict
// structured-output mode demands: no additional properties, every property
// required, recursively.
func ensureStrictCompliance(schema map[string]interface{}) {
	if schemaType, ok := schema[typeKey].(string); ok && schemaType == "object" {
		schema[additionalPropertiesKey] = false

		if properties, ok := schema[propertiesKey].(map[string]interface{}); ok {
			var requiredFields []interface{}
			for propName := range properties {
				requiredFields = append(requiredFields, propName)
			}
			if len(requiredFields) > 0 {
				schema[requiredKey] = requiredFields
			}
		}
	}

	if properties, ok := schema[propertiesKey].(map[string]interface{}); ok {
		for _, prop := range properties {
			if propMap, ok := prop.(map[string]interface{}); ok {
				ensureStrictCompliance(propMap)
			}
		}
	}

	if items, ok := schema[itemsKey].(map[string]interface{}); ok {
		ensureStrictCompliance(items)
	}

	if additionalProps, ok := schema[additionalPropertiesKey].(map[string]interface{}); ok {
		ensureStrictCompliance(additionalProps)
	}
}
