package answer

import (
	"context"
	"fmt"
	"strings"

	"spatial-search-be/internal/constant"
	"spatial-search-be/internal/pkg/logger"
	"spatial-search-be/pkg/llm"
	"spatial-search-be/pkg/store"
)

// Synthesizer produces the final grounded answer from retrieved context.
type Synthesizer struct {
	llmProvider llm.LLMProvider
	logger      logger.ILogger
}

func NewSynthesizer(llmProvider llm.LLMProvider, log logger.ILogger) *Synthesizer {
	return &Synthesizer{
		llmProvider: llmProvider,
		logger:      log,
	}
}

// BuildContext renders retrieved documents into the prompt context block.
// An empty result set yields the canonical no-results marker so the model
// explains the miss instead of inventing datasets.
func BuildContext(docs []store.Document) string {
	if len(docs) == 0 {
		return constant.NoResultsContext
	}

	var b strings.Builder
	for i, doc := range docs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(doc.Content)
	}
	return b.String()
}

// Synthesize answers the question from the context alone.
func (s *Synthesizer) Synthesize(ctx context.Context, question, searchContext string) (string, error) {
	prompt := fmt.Sprintf(constant.FinalAnswerPrompt, question, searchContext)

	response, err := s.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.2))
	if err != nil {
		return "", fmt.Errorf("answer synthesis: %w", err)
	}
	return strings.TrimSpace(response), nil
}
