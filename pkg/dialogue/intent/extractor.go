package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"spatial-search-be/internal/constant"
	"spatial-search-be/internal/pkg/logger"
	"spatial-search-be/pkg/llm"
)

// Intent is the structured output of one conversational turn: the reply
// to show the user plus the accumulated search intent.
type Intent struct {
	Answer          string `json:"answer"`
	SearchCriteria  string `json:"search_criteria"`
	ReadyToRetrieve string `json:"ready_to_retrieve"`
	NarrowerTerms   string `json:"narrower_terms"`
	BroaderTerms    string `json:"broader_terms"`
}

// ShouldRetrieve reports whether the turn may advance to retrieval.
// Readiness alone is not enough: empty criteria keep the conversation
// going.
func (i *Intent) ShouldRetrieve() bool {
	return strings.EqualFold(strings.TrimSpace(i.ReadyToRetrieve), "yes") &&
		strings.TrimSpace(i.SearchCriteria) != ""
}

// Extractor turns a user utterance plus history into an Intent via a
// single structured LLM call.
type Extractor struct {
	llmProvider llm.LLMProvider
	logger      logger.ILogger
}

func NewExtractor(llmProvider llm.LLMProvider, log logger.ILogger) *Extractor {
	return &Extractor{
		llmProvider: llmProvider,
		logger:      log,
	}
}

// Extract never returns an error: any model or parse failure degrades to
// a fallback intent that apologizes and keeps the conversation open.
func (e *Extractor) Extract(ctx context.Context, query string, history []llm.Message, systemPrompt string) *Intent {
	messages := e.buildMessages(query, history, systemPrompt)

	response, err := e.llmProvider.Chat(ctx, messages, llm.WithTemperature(0.0), llm.WithJSONOutput())
	if err != nil {
		e.logger.Error("INTENT", "Intent extraction call failed", map[string]interface{}{
			"error": err.Error(),
		})
		return fallbackIntent()
	}

	intent, err := parseIntent(response)
	if err != nil {
		// One repair pass: ask the model to fix its own output.
		e.logger.Warn("INTENT", "Intent parsing failed, attempting repair", map[string]interface{}{
			"error": err.Error(),
		})
		intent, err = e.repair(ctx, response)
		if err != nil {
			e.logger.Error("INTENT", "Intent repair failed", map[string]interface{}{
				"error": err.Error(),
			})
			return fallbackIntent()
		}
	}

	return intent
}

func (e *Extractor) buildMessages(query string, history []llm.Message, systemPrompt string) []llm.Message {
	if systemPrompt == "" {
		systemPrompt = constant.ConversationSystemPrompt
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{
		Role:    "system",
		Content: systemPrompt + "\n\n" + constant.ConversationFormatInstructions,
	})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: query})
	return messages
}

func (e *Extractor) repair(ctx context.Context, broken string) (*Intent, error) {
	prompt := fmt.Sprintf(
		"The following was supposed to be a JSON object but is malformed:\n\n%s\n\n%s",
		broken, constant.ConversationFormatInstructions,
	)
	response, err := e.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0), llm.WithJSONOutput())
	if err != nil {
		return nil, err
	}
	return parseIntent(response)
}

func parseIntent(response string) (*Intent, error) {
	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var intent Intent
	if err := json.Unmarshal([]byte(jsonContent), &intent); err != nil {
		return nil, fmt.Errorf("JSON unmarshal failed: %w", err)
	}

	// Normalize readiness to a strict yes/no
	ready := strings.ToLower(strings.TrimSpace(intent.ReadyToRetrieve))
	if ready != "yes" {
		ready = "no"
	}
	intent.ReadyToRetrieve = ready
	intent.SearchCriteria = strings.TrimSpace(intent.SearchCriteria)

	if intent.Answer == "" && !intent.ShouldRetrieve() {
		return nil, fmt.Errorf("intent carries neither answer nor retrievable criteria")
	}

	return &intent, nil
}

func fallbackIntent() *Intent {
	return &Intent{
		Answer:          constant.ExtractionApology,
		ReadyToRetrieve: "no",
	}
}

func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}

	return response[startIdx : endIdx+1]
}
