package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"spatial-search-be/internal/constant"
	"spatial-search-be/internal/entity"
	"spatial-search-be/internal/pkg/logger"
	"spatial-search-be/pkg/dialogue/answer"
	"spatial-search-be/pkg/dialogue/geometry"
	"spatial-search-be/pkg/dialogue/intent"
	"spatial-search-be/pkg/dialogue/retrieval"
	"spatial-search-be/pkg/dialogue/route"
	"spatial-search-be/pkg/dialogue/smalltalk"
	"spatial-search-be/pkg/dialogue/spatial"
	"spatial-search-be/pkg/llm"
	"spatial-search-be/pkg/store"
)

var (
	// ErrEmptyQuery marks a turn without an utterance, a client error.
	ErrEmptyQuery = errors.New("query must not be empty")
)

// TurnInput is everything a caller can hand to one dialogue turn.
type TurnInput struct {
	SessionID          uuid.UUID
	Query              string
	SpatialContext     *store.SpatialTemporalContext
	CustomSystemPrompt string
}

// Config bounds the turn's behavior.
type Config struct {
	SmallTalkTurnLimit int           // Completed turns below which chitchat short-circuits
	SearchK            int           // Candidates fetched per retrieval
	GeometryTopN       int           // Documents kept after geometric filtering
	TextualTopN        int           // Documents kept for textual collections
	StepTimeout        time.Duration // Timeout for each model/network bound step
}

func (c Config) withDefaults() Config {
	if c.SmallTalkTurnLimit <= 0 {
		c.SmallTalkTurnLimit = 5
	}
	if c.SearchK <= 0 {
		c.SearchK = 20
	}
	if c.GeometryTopN <= 0 {
		c.GeometryTopN = 5
	}
	if c.TextualTopN <= 0 {
		c.TextualTopN = 10
	}
	if c.StepTimeout <= 0 {
		c.StepTimeout = 60 * time.Second
	}
	return c
}

// Graph drives one dialogue turn through its stages: conversing,
// optionally spatial extraction, search and synthesis, then persisting.
// Model and network failures inside a stage degrade to neutral values;
// only persistence failures abort the turn.
type Graph struct {
	checkpointer Checkpointer
	classifier   *route.Classifier
	extractor    *intent.Extractor
	smallTalk    *smalltalk.Classifier
	spatial      *spatial.Resolver
	dispatcher   *retrieval.Dispatcher
	synthesizer  *answer.Synthesizer
	webSearch    WebSearcher
	logger       logger.ILogger
	cfg          Config
}

func NewGraph(
	checkpointer Checkpointer,
	classifier *route.Classifier,
	extractor *intent.Extractor,
	smallTalk *smalltalk.Classifier,
	spatialResolver *spatial.Resolver,
	dispatcher *retrieval.Dispatcher,
	synthesizer *answer.Synthesizer,
	webSearch WebSearcher,
	log logger.ILogger,
	cfg Config,
) *Graph {
	return &Graph{
		checkpointer: checkpointer,
		classifier:   classifier,
		extractor:    extractor,
		smallTalk:    smallTalk,
		spatial:      spatialResolver,
		dispatcher:   dispatcher,
		synthesizer:  synthesizer,
		webSearch:    webSearch,
		logger:       log,
		cfg:          cfg.withDefaults(),
	}
}

// Run executes one turn and returns the updated state. The caller is
// responsible for serializing turns per session.
func (g *Graph) Run(ctx context.Context, in TurnInput) (store.ConversationState, error) {
	query := strings.TrimSpace(in.Query)

	if strings.EqualFold(query, constant.ResetToken) {
		return g.reset(ctx, in.SessionID)
	}
	if query == "" {
		return store.ConversationState{}, ErrEmptyQuery
	}

	state, err := g.loadState(ctx, in.SessionID)
	if err != nil {
		return store.ConversationState{}, fmt.Errorf("load session history: %w", err)
	}

	state, done := g.converse(ctx, in, state, query)
	if !done {
		state = g.extractSpatialContext(ctx, in, state)
		docs, collection := g.search(ctx, in.SessionID, state)
		state = g.synthesize(ctx, state, docs, collection)
	}

	if err := g.persist(ctx, in.SessionID, &state); err != nil {
		return store.ConversationState{}, err
	}
	return state, nil
}

// reset deletes the session's history and acknowledges. It bypasses the
// conversational stages entirely and writes no checkpoint.
func (g *Graph) reset(ctx context.Context, sessionID uuid.UUID) (store.ConversationState, error) {
	checkpoints, err := g.checkpointer.List(ctx, sessionID)
	if err != nil {
		return store.ConversationState{}, fmt.Errorf("load session history: %w", err)
	}

	message := constant.ResetNoHistoryMessage
	if len(checkpoints) > 0 {
		if err := g.checkpointer.DeleteAll(ctx, sessionID); err != nil {
			return store.ConversationState{}, fmt.Errorf("delete session history: %w", err)
		}
		message = constant.ResetAckMessage
	}

	g.logger.Info("DIALOGUE", "Session reset", map[string]interface{}{
		"session_id":  sessionID.String(),
		"had_history": len(checkpoints) > 0,
	})

	var state store.ConversationState
	state.AppendMessage(store.RoleAssistant, message)
	return state, nil
}

// loadState reconstructs the working state from the latest checkpoint.
func (g *Graph) loadState(ctx context.Context, sessionID uuid.UUID) (store.ConversationState, error) {
	checkpoints, err := g.checkpointer.List(ctx, sessionID)
	if err != nil {
		return store.ConversationState{}, err
	}
	if len(checkpoints) == 0 {
		return store.ConversationState{}, nil
	}
	return checkpoints[len(checkpoints)-1].State, nil
}

// converse runs the conversational stage. done=true means the turn
// already has its answer and skips straight to persisting.
func (g *Graph) converse(ctx context.Context, in TurnInput, state store.ConversationState, query string) (store.ConversationState, bool) {
	state.AppendMessage(store.RoleUser, query)
	state.SearchResults = nil
	if in.CustomSystemPrompt != "" {
		state.CustomSystemPrompt = in.CustomSystemPrompt
	}

	stepCtx, cancel := context.WithTimeout(ctx, g.cfg.StepTimeout)
	defer cancel()

	// Each completed turn contributes a user and an assistant message,
	// so the prior turn count is derived from the transcript length.
	priorTurns := (len(state.Messages) - 1) / 2
	if priorTurns < g.cfg.SmallTalkTurnLimit && g.smallTalk.IsChitchat(stepCtx, query) {
		g.logger.Debug("DIALOGUE", "Small talk short-circuit", map[string]interface{}{
			"session_id": in.SessionID.String(),
		})
		state.AppendMessage(store.RoleAssistant, constant.SmallTalkResponse)
		state.ReadyToRetrieve = store.ReadyNo
		return state, true
	}

	if routeName, ok := g.classifier.Classify(stepCtx, in.SessionID.String(), query); ok {
		state.RouteName = routeName
	}

	systemPrompt := state.CustomSystemPrompt
	if systemPrompt == "" && state.RouteName != "" {
		if c, ok := g.classifier.Lookup(state.RouteName); ok {
			systemPrompt = c.SystemPrompt
		}
	}

	it := g.extractor.Extract(stepCtx, query, historyMessages(state.Messages), systemPrompt)

	state.SearchCriteria = mergeField(state.SearchCriteria, it.SearchCriteria)
	state.NarrowerTerms = mergeField(state.NarrowerTerms, it.NarrowerTerms)
	state.BroaderTerms = mergeField(state.BroaderTerms, it.BroaderTerms)
	state.ReadyToRetrieve = it.ReadyToRetrieve

	if !it.ShouldRetrieve() || state.SearchCriteria == "" {
		state.ReadyToRetrieve = store.ReadyNo
		reply := it.Answer
		if reply == "" {
			reply = constant.ExtractionApology
		}
		state.AppendMessage(store.RoleAssistant, reply)
		return state, true
	}
	return state, false
}

// extractSpatialContext fills the spatial context, preferring one given
// explicitly by the caller over resolving it from the criteria.
func (g *Graph) extractSpatialContext(ctx context.Context, in TurnInput, state store.ConversationState) store.ConversationState {
	if in.SpatialContext != nil {
		state.SpatialContext = in.SpatialContext
		return state
	}

	stepCtx, cancel := context.WithTimeout(ctx, g.cfg.StepTimeout)
	defer cancel()

	result := g.spatial.Resolve(stepCtx, state.SearchCriteria)
	if result.Found {
		state.SpatialContext = &store.SpatialTemporalContext{Extent: result.Extent}
	}
	return state
}

// search dispatches retrieval against the routed collection, or the web
// fallback when no route matched. Failures yield zero documents.
func (g *Graph) search(ctx context.Context, sessionID uuid.UUID, state store.ConversationState) ([]store.Document, *entity.Collection) {
	stepCtx, cancel := context.WithTimeout(ctx, g.cfg.StepTimeout)
	defer cancel()

	if state.RouteName != "" {
		if collection, ok := g.classifier.Lookup(state.RouteName); ok {
			docs, err := g.dispatcher.Search(stepCtx, collection.Name, state.SearchCriteria, g.cfg.SearchK, retrieval.ModeSimilarity, collection.ScoreThreshold)
			if err != nil {
				g.logger.Error("DIALOGUE", "Collection search failed", map[string]interface{}{
					"session_id": sessionID.String(),
					"collection": collection.Name,
					"error":      err.Error(),
				})
				return nil, collection
			}
			return docs, collection
		}
	}

	if g.webSearch == nil {
		return nil, nil
	}
	docs, err := g.webSearch.Search(stepCtx, state.SearchCriteria, g.cfg.SearchK)
	if err != nil {
		g.logger.Error("DIALOGUE", "Web search fallback failed", map[string]interface{}{
			"session_id": sessionID.String(),
			"error":      err.Error(),
		})
		return nil, nil
	}
	return docs, nil
}

// synthesize filters, truncates and answers over the retrieved set.
func (g *Graph) synthesize(ctx context.Context, state store.ConversationState, docs []store.Document, collection *entity.Collection) store.ConversationState {
	topN := g.cfg.TextualTopN
	if collection != nil && collection.Kind == entity.CollectionKindGeometry {
		if state.SpatialContext != nil {
			docs = geometry.Filter(docs, state.SpatialContext.Extent)
		}
		topN = g.cfg.GeometryTopN
	}
	if len(docs) > topN {
		docs = docs[:topN]
	}
	state.SearchResults = docs

	searchContext := answer.BuildContext(docs)
	if len(docs) == 0 {
		state.SearchResults = nil
	}

	question := state.SearchCriteria
	if state.CustomSystemPrompt != "" {
		question = state.CustomSystemPrompt + "\n" + question
	}

	stepCtx, cancel := context.WithTimeout(ctx, g.cfg.StepTimeout)
	defer cancel()

	reply, err := g.synthesizer.Synthesize(stepCtx, question, searchContext)
	if err != nil {
		g.logger.Error("DIALOGUE", "Answer synthesis failed", map[string]interface{}{
			"error": err.Error(),
		})
		reply = constant.SynthesisApology
	}
	state.AppendMessage(store.RoleAssistant, reply)
	return state
}

// persist writes exactly one checkpoint for the turn. A failure here is
// fatal: silently losing durability would corrupt future turns.
func (g *Graph) persist(ctx context.Context, sessionID uuid.UUID, state *store.ConversationState) error {
	if err := g.checkpointer.Append(ctx, sessionID, *state); err != nil {
		g.logger.Error("DIALOGUE", "Checkpoint write failed", map[string]interface{}{
			"session_id": sessionID.String(),
			"error":      err.Error(),
		})
		return fmt.Errorf("persist checkpoint: %w", err)
	}
	return nil
}

// historyMessages converts the transcript minus the just-appended user
// message into provider messages.
func historyMessages(messages []store.Message) []llm.Message {
	if len(messages) == 0 {
		return nil
	}
	prior := messages[:len(messages)-1]
	out := make([]llm.Message, len(prior))
	for i, m := range prior {
		out[i] = llm.Message{Role: m.Role, Content: m.Content}
	}
	return out
}

// mergeField keeps an already-known value and only fills empty fields
// with newly extracted ones.
func mergeField(existing, update string) string {
	if strings.TrimSpace(existing) == "" {
		return strings.TrimSpace(update)
	}
	return existing
}
