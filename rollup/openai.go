package rollup

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

const maxRetries = 3

var (
	rateLimitWaitTimes   = []time.Duration{65 * time.Second, 100 * time.Second, 135 * time.Second}
	serverErrorWaitTimes = []time.Duration{5 * time.Second, 30 * time.Second, 60 * time.Second}
)

// SchemaError marks a response that came back over the wire but failed to
// decode into the expected shape. Retrying the same request will not help;
// callers route these into the repair path instead of the backoff ladder.
type SchemaError struct {
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("response did not match schema: %v", e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// Generator wraps the OpenAI client with retry and strict-schema decoding.
type Generator struct {
	client *openai.Client
	model  string
	sleep  func(time.Duration)
}

func NewGenerator(apiKey, model string) *Generator {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Generator{
		client: &client,
		model:  model,
		sleep:  time.Sleep,
	}
}

// CallInput describes one structured-output request.
type CallInput struct {
	Instructions string
	User         string
	SchemaName   string
	Schema       map[string]interface{}
	Temperature  float64
}

// Parse performs a structured-output call and decodes the result into out.
// Transport-level failures are retried with backoff; a decode failure is
// returned as *SchemaError without retrying.
func (g *Generator) Parse(ctx context.Context, in CallInput, out any) error {
	params := responses.ResponseNewParams{
		Model:        g.model,
		Instructions: openai.String(in.Instructions),
		Temperature:  openai.Float(in.Temperature),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(in.User, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:   in.SchemaName,
					Schema: in.Schema,
					Strict: openai.Bool(true),
					Type:   "json_schema",
				},
			},
		},
	}

	resp, err := g.callWithRetry(ctx, params)
	if err != nil {
		return err
	}
	if err := decodeModelJSON(resp.OutputText(), out); err != nil {
		return &SchemaError{Err: err}
	}
	return nil
}

func (g *Generator) callWithRetry(ctx context.Context, params responses.ResponseNewParams) (*responses.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, err := g.client.Responses.New(ctx, params)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == maxRetries {
			break
		}
		switch {
		case isRateLimitError(err):
			g.sleep(rateLimitWaitTimes[attempt])
		case isServerError(err):
			g.sleep(serverErrorWaitTimes[attempt])
		default:
			return nil, err
		}
	}
	return nil, fmt.Errorf("api call failed after %d retries: %w", maxRetries, lastErr)
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "rate_limit")
}

func isServerError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "500") || strings.Contains(msg, "502") ||
		strings.Contains(msg, "503") || strings.Contains(msg, "504") ||
		strings.Contains(msg, "internal server error") || strings.Contains(msg, "bad gateway") ||
		strings.Contains(msg, "service unavailable") || strings.Contains(msg, "gateway timeout")
}

// decodeModelJSON unmarshals the model's output text into out. Strict mode
// should return bare JSON, but occasionally the object arrives wrapped in
// prose; in that case the first top-level JSON object is extracted.
func decodeModelJSON(text string, out any) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("empty response text")
	}
	if err := json.Unmarshal([]byte(text), out); err == nil {
		return nil
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object found in response")
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), out); err != nil {
		return fmt.Errorf("decode response JSON: %w", err)
	}
	return nil
}
