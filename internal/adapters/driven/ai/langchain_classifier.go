package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Ensure LLMClassifier implements Classifier
var _ driven.Classifier = (*LLMClassifier)(nil)

const defaultClassifierModel = "gpt-4o-mini"

// maxClassifierInput bounds the document text sent to the model, in bytes
const maxClassifierInput = 24000

// LLMClassifier extracts document metadata with a chat model through langchaingo.
// The model is asked for a JSON object holding only the requested fields.
type LLMClassifier struct {
	llm    llms.Model
	model  string
	logger *slog.Logger
}

// NewLLMClassifier wraps an existing langchaingo model
func NewLLMClassifier(llm llms.Model, model string, logger *slog.Logger) *LLMClassifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMClassifier{
		llm:    llm,
		model:  model,
		logger: logger.With("component", "classifier", "model", model),
	}
}

// NewOpenAIClassifier creates a classifier backed by an OpenAI-compatible chat API
func NewOpenAIClassifier(apiKey, model, baseURL string, logger *slog.Logger) (*LLMClassifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: classifier API key is required", domain.ErrInvalidInput)
	}
	if model == "" {
		model = defaultClassifierModel
	}
	opts := []openai.Option{openai.WithToken(apiKey), openai.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create classifier client: %w", err)
	}
	return NewLLMClassifier(llm, model, logger), nil
}

// fieldHints describe each requestable field to the model
var fieldHints = map[string]string{
	"content_type":      `string, one of: document, research, pattern, guide, reference, decision, note`,
	"summary":           `string, two sentences at most`,
	"primary_concept":   `string, kebab-case identifier of the main concept`,
	"subject_area":      `array of short subject labels`,
	"broader_concepts":  `array of kebab-case concepts this one specialises`,
	"narrower_concepts": `array of kebab-case concepts specialising this one`,
	"concept_ownership": `string, "defines" or "references"`,
	"detected_edges":    `array of {"predicate", "target_id", "strength" (0..1), "rationale"} naming related concepts or documents`,
}

func buildSystemPrompt(fields []string) string {
	var b strings.Builder
	b.WriteString("You classify knowledge-base documents. Reply with a single JSON object and nothing else.\n")
	b.WriteString("Include only these keys, omitting any you cannot determine:\n")
	for _, f := range fields {
		hint, ok := fieldHints[f]
		if !ok {
			hint = "string"
		}
		fmt.Fprintf(&b, "- %s: %s\n", f, hint)
	}
	return b.String()
}

// Classify asks the model for the requested fields. Missing or malformed
// optional fields are dropped rather than failing the call.
func (c *LLMClassifier) Classify(ctx context.Context, text string, fields []string) (*domain.Classification, error) {
	if len(fields) == 0 {
		return &domain.Classification{Model: c.model}, nil
	}
	if len(text) > maxClassifierInput {
		text = text[:maxClassifierInput]
	}

	system := buildSystemPrompt(fields)
	promptHash := sha256.Sum256([]byte(system))
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, text),
	}

	resp, err := c.llm.GenerateContent(ctx, content, llms.WithTemperature(0), llms.WithJSONMode())
	if err != nil {
		return nil, fmt.Errorf("%w: classifier call: %w", domain.ErrServiceUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: classifier returned no choices", domain.ErrServiceUnavailable)
	}
	choice := resp.Choices[0]

	out, err := parseClassification(choice.Content, fields)
	if err != nil {
		// A malformed reply may parse on the next attempt
		c.logger.Warn("unparseable classifier response", "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrServiceUnavailable, err)
	}
	out.Model = c.model
	out.PromptHash = hex.EncodeToString(promptHash[:])
	out.Usage = tokenUsage(choice.GenerationInfo)
	return out, nil
}

// Model returns the model name being used
func (c *LLMClassifier) Model() string {
	return c.model
}

// Ping sends a minimal prompt
func (c *LLMClassifier) Ping(ctx context.Context) error {
	_, err := c.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "ping"),
	}, llms.WithMaxTokens(1))
	if err != nil {
		return fmt.Errorf("%w: classifier ping: %w", domain.ErrServiceUnavailable, err)
	}
	return nil
}

// Close is a no-op; the langchaingo client holds no resources
func (c *LLMClassifier) Close() error {
	return nil
}

// flexList accepts a JSON string or array of strings
type flexList []string

func (l *flexList) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	if one != "" {
		*l = []string{one}
	}
	return nil
}

func parseClassification(raw string, fields []string) (*domain.Classification, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("parse classifier response: %w", err)
	}

	out := &domain.Classification{}
	for _, f := range fields {
		v, ok := obj[f]
		if !ok {
			continue
		}
		var err error
		switch f {
		case "content_type":
			err = json.Unmarshal(v, &out.ContentType)
		case "summary":
			err = json.Unmarshal(v, &out.Summary)
		case "primary_concept":
			err = json.Unmarshal(v, &out.PrimaryConcept)
		case "concept_ownership":
			err = json.Unmarshal(v, &out.ConceptOwnership)
		case "subject_area":
			err = json.Unmarshal(v, (*flexList)(&out.SubjectAreas))
		case "broader_concepts":
			err = json.Unmarshal(v, (*flexList)(&out.BroaderConcepts))
		case "narrower_concepts":
			err = json.Unmarshal(v, (*flexList)(&out.NarrowerConcepts))
		case "detected_edges":
			err = json.Unmarshal(v, &out.DetectedEdges)
		}
		if err != nil {
			// Wrong shape for one field; keep the rest
			continue
		}
	}
	return out, nil
}

func tokenUsage(info map[string]any) *domain.TokenUsage {
	if info == nil {
		return nil
	}
	u := &domain.TokenUsage{
		Prompt:     intField(info, "PromptTokens"),
		Completion: intField(info, "CompletionTokens"),
		Total:      intField(info, "TotalTokens"),
	}
	if *u == (domain.TokenUsage{}) {
		return nil
	}
	return u
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
