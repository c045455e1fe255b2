package route

import (
	"context"
	"fmt"
	"strings"

	"spatial-search-be/internal/constant"
	"spatial-search-be/internal/entity"
	"spatial-search-be/internal/pkg/logger"
	"spatial-search-be/pkg/embedding"
	"spatial-search-be/pkg/llm"
)

// Source supplies the collections to route over and persists routing
// material generated for them.
type Source interface {
	ListCollections(ctx context.Context) ([]*entity.Collection, error)
	SampleContents(ctx context.Context, collection string, n int) ([]string, error)
	SaveRouting(ctx context.Context, collection *entity.Collection) error
}

// Builder derives a route table from the stored collections. Collections
// missing a description, sample utterances or a system prompt get them
// generated from sampled documents and persisted, so later rebuilds are
// cheap.
type Builder struct {
	source      Source
	llmProvider llm.LLMProvider
	provider    embedding.EmbeddingProvider
	logger      logger.ILogger
}

func NewBuilder(source Source, llmProvider llm.LLMProvider, provider embedding.EmbeddingProvider, log logger.ILogger) *Builder {
	return &Builder{
		source:      source,
		llmProvider: llmProvider,
		provider:    provider,
		logger:      log,
	}
}

func (b *Builder) Build(ctx context.Context) (*Table, error) {
	collections, err := b.source.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	routes := make([]Route, 0, len(collections))
	for _, c := range collections {
		if err := b.ensureRoutingMaterial(ctx, c); err != nil {
			b.logger.Warn("ROUTER", "Skipping collection, routing material unavailable", map[string]interface{}{
				"collection": c.Name,
				"error":      err.Error(),
			})
			continue
		}

		vectors, err := b.embedUtterances(c)
		if err != nil {
			b.logger.Warn("ROUTER", "Skipping collection, utterance embedding failed", map[string]interface{}{
				"collection": c.Name,
				"error":      err.Error(),
			})
			continue
		}

		routes = append(routes, Route{Collection: c, Vectors: vectors})
	}

	b.logger.Info("ROUTER", "Route table built", map[string]interface{}{
		"routes": len(routes),
	})
	return NewTable(routes), nil
}

func (b *Builder) ensureRoutingMaterial(ctx context.Context, c *entity.Collection) error {
	dirty := false

	if c.Description == "" {
		samples, err := b.source.SampleContents(ctx, c.Name, 5)
		if err != nil {
			return fmt.Errorf("sample documents: %w", err)
		}
		prompt := fmt.Sprintf(constant.RouteDescriptionPrompt, c.Name, strings.Join(samples, "\n---\n"))
		description, err := b.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.2))
		if err != nil {
			return fmt.Errorf("generate description: %w", err)
		}
		c.Description = strings.TrimSpace(description)
		dirty = true
	}

	if len(c.SampleUtterances) == 0 {
		prompt := fmt.Sprintf(constant.RouteUtterancesPrompt, c.Description)
		raw, err := b.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.7))
		if err != nil {
			return fmt.Errorf("generate utterances: %w", err)
		}
		c.SampleUtterances = splitLines(raw)
		if len(c.SampleUtterances) == 0 {
			return fmt.Errorf("empty utterance list for %s", c.Name)
		}
		dirty = true
	}

	if c.SystemPrompt == "" {
		prompt := fmt.Sprintf(constant.RouteSystemPromptTemplate, c.Description)
		systemPrompt, err := b.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.3))
		if err != nil {
			return fmt.Errorf("generate system prompt: %w", err)
		}
		c.SystemPrompt = strings.TrimSpace(systemPrompt)
		dirty = true
	}

	if dirty {
		if err := b.source.SaveRouting(ctx, c); err != nil {
			return fmt.Errorf("persist routing material: %w", err)
		}
	}
	return nil
}

// embedUtterances embeds the sample utterances plus the description, so a
// route can still match on its description alone.
func (b *Builder) embedUtterances(c *entity.Collection) ([][]float32, error) {
	texts := make([]string, 0, len(c.SampleUtterances)+1)
	texts = append(texts, c.SampleUtterances...)
	if c.Description != "" {
		texts = append(texts, c.Description)
	}

	vectors := make([][]float32, 0, len(texts))
	for _, t := range texts {
		resp, err := b.provider.Generate(t, embedding.TaskRetrievalDocument)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, resp.Embedding.Values)
	}
	return vectors, nil
}

func splitLines(raw string) []string {
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		// Strip leading list markers like "1." or "-"
		line = strings.TrimLeft(line, "-*0123456789. ")
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
