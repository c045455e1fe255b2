package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spatial-search-be/internal/constant"
	"spatial-search-be/internal/entity"
	"spatial-search-be/pkg/dialogue/answer"
	"spatial-search-be/pkg/dialogue/intent"
	"spatial-search-be/pkg/dialogue/retrieval"
	"spatial-search-be/pkg/dialogue/route"
	"spatial-search-be/pkg/dialogue/smalltalk"
	"spatial-search-be/pkg/dialogue/spatial"
	"spatial-search-be/pkg/embedding"
	"spatial-search-be/pkg/llm"
	"spatial-search-be/pkg/store"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

type fakeCheckpointer struct {
	mu          sync.Mutex
	checkpoints map[uuid.UUID][]store.Checkpoint
	appendErr   error
	deleteCalls int
}

func newFakeCheckpointer() *fakeCheckpointer {
	return &fakeCheckpointer{checkpoints: make(map[uuid.UUID][]store.Checkpoint)}
}

func (f *fakeCheckpointer) Append(ctx context.Context, sessionID uuid.UUID, state store.ConversationState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.checkpoints[sessionID] = append(f.checkpoints[sessionID], store.Checkpoint{
		Id:        uuid.New(),
		SessionId: sessionID,
		State:     state,
		CreatedAt: time.Now(),
	})
	return nil
}

func (f *fakeCheckpointer) List(ctx context.Context, sessionID uuid.UUID) ([]store.Checkpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.Checkpoint(nil), f.checkpoints[sessionID]...), nil
}

func (f *fakeCheckpointer) DeleteAll(ctx context.Context, sessionID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	delete(f.checkpoints, sessionID)
	return nil
}

func (f *fakeCheckpointer) count(sessionID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.checkpoints[sessionID])
}

// scriptedLLM answers the graph's model calls by prompt shape: the
// intent extraction goes through Chat, everything else through Generate.
type scriptedLLM struct {
	mu             sync.Mutex
	chatResponse   string
	chatErr        error
	chatCalls      int
	entityResponse string
	entityCalls    int
	finalAnswer    string
	finalPrompt    string
}

func (s *scriptedLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatCalls++
	if s.chatErr != nil {
		return "", s.chatErr
	}
	return s.chatResponse, nil
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case strings.HasPrefix(prompt, "Extract the geographic reference"):
		s.entityCalls++
		return s.entityResponse, nil
	case strings.HasPrefix(prompt, "Answer the question"):
		s.finalPrompt = prompt
		return s.finalAnswer, nil
	default:
		return "1", nil
	}
}

// mappedEmbedder returns a fixed vector per known text. Unknown texts,
// including the small-talk reference utterances, embed along the
// chitchat axis.
type mappedEmbedder struct {
	vectors map[string][]float32
}

func (e *mappedEmbedder) Generate(text, taskType string) (*embedding.EmbeddingResponse, error) {
	v, ok := e.vectors[text]
	if !ok {
		v = []float32{1, 0, 0}
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: v},
	}, nil
}

type fakeVectorStore struct {
	mu      sync.Mutex
	results []retrieval.ScoredDocument
	calls   int
}

func (f *fakeVectorStore) SearchSimilar(ctx context.Context, collection string, vector []float32, k int) ([]retrieval.ScoredDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.results, nil
}

type fakeWebSearcher struct {
	docs  []store.Document
	err   error
	calls int
	lastK int
}

func (f *fakeWebSearcher) Search(ctx context.Context, query string, k int) ([]store.Document, error) {
	f.calls++
	f.lastK = k
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

type fakeGazetteer struct {
	places []spatial.Place
	err    error
}

func (f *fakeGazetteer) SearchPlace(ctx context.Context, name string) ([]spatial.Place, error) {
	return f.places, f.err
}

type graphFixture struct {
	graph       *Graph
	checkpoints *fakeCheckpointer
	llm         *scriptedLLM
	vectors     *fakeVectorStore
	web         *fakeWebSearcher
	gazetteer   *fakeGazetteer
	collection  *entity.Collection
}

// newFixture wires a graph over fakes. The route table has one
// collection recognized by the dataset axis; "hello there" stays on the
// chitchat axis and "web only request" matches nothing.
func newFixture(kind string) *graphFixture {
	model := &scriptedLLM{
		chatResponse:   `{"answer":"", "search_criteria":"", "ready_to_retrieve":"no"}`,
		entityResponse: `{"spatial":"", "scale":""}`,
		finalAnswer:    "Here is what I found.",
	}
	embedder := &mappedEmbedder{vectors: map[string][]float32{
		"find environmental datasets": {0, 1, 0},
		"web only request":            {0, 0, 1},
	}}
	collection := &entity.Collection{
		Id:             uuid.New(),
		Name:           "environmental",
		Kind:           kind,
		ScoreThreshold: 0.7,
	}
	table := route.NewTable([]route.Route{
		{Collection: collection, Vectors: [][]float32{{0, 1, 0}}},
	})

	checkpoints := newFakeCheckpointer()
	vectors := &fakeVectorStore{}
	web := &fakeWebSearcher{}
	gaz := &fakeGazetteer{}

	graph := NewGraph(
		checkpoints,
		route.NewClassifier(table, embedder, time.Minute, nopLogger{}),
		intent.NewExtractor(model, nopLogger{}),
		smalltalk.NewClassifier(embedder, 0.82, nopLogger{}),
		spatial.NewResolver(model, gaz, nopLogger{}),
		retrieval.NewDispatcher(embedder, vectors, nopLogger{}),
		answer.NewSynthesizer(model, nopLogger{}),
		web,
		nopLogger{},
		Config{},
	)

	return &graphFixture{
		graph:       graph,
		checkpoints: checkpoints,
		llm:         model,
		vectors:     vectors,
		web:         web,
		gazetteer:   gaz,
		collection:  collection,
	}
}

func readyIntent(criteria string) string {
	return fmt.Sprintf(`{"answer":"", "search_criteria":"%s", "ready_to_retrieve":"yes"}`, criteria)
}

func scoredDoc(content string, metadata map[string]any) retrieval.ScoredDocument {
	return retrieval.ScoredDocument{
		Document: store.Document{Content: content, Metadata: metadata},
		Score:    0.9,
	}
}

func TestRunEmptyQuery(t *testing.T) {
	fx := newFixture(entity.CollectionKindTextual)
	sessionID := uuid.New()

	_, err := fx.graph.Run(context.Background(), TurnInput{SessionID: sessionID, Query: "   "})

	require.ErrorIs(t, err, ErrEmptyQuery)
	assert.Zero(t, fx.checkpoints.count(sessionID))
}

func TestRunConversationAccumulatesCheckpoints(t *testing.T) {
	fx := newFixture(entity.CollectionKindTextual)
	sessionID := uuid.New()
	fx.llm.chatResponse = `{"answer":"Which region are you interested in?", "search_criteria":"", "ready_to_retrieve":"no"}`

	first, err := fx.graph.Run(context.Background(), TurnInput{SessionID: sessionID, Query: "find environmental datasets"})
	require.NoError(t, err)
	assert.Equal(t, "Which region are you interested in?", first.LastAnswer())
	assert.Equal(t, 1, fx.checkpoints.count(sessionID))

	second, err := fx.graph.Run(context.Background(), TurnInput{SessionID: sessionID, Query: "find environmental datasets"})
	require.NoError(t, err)
	assert.Equal(t, 2, fx.checkpoints.count(sessionID))
	assert.Len(t, second.Messages, 4, "second turn must carry the first turn's transcript")
}

func TestRunResetClearsHistory(t *testing.T) {
	fx := newFixture(entity.CollectionKindTextual)
	sessionID := uuid.New()
	require.NoError(t, fx.checkpoints.Append(context.Background(), sessionID, store.ConversationState{}))

	state, err := fx.graph.Run(context.Background(), TurnInput{SessionID: sessionID, Query: "RESET"})

	require.NoError(t, err)
	assert.Equal(t, constant.ResetAckMessage, state.LastAnswer())
	assert.Equal(t, 1, fx.checkpoints.deleteCalls)
	assert.Zero(t, fx.checkpoints.count(sessionID), "reset must not write a checkpoint")
}

func TestRunResetWithoutHistory(t *testing.T) {
	fx := newFixture(entity.CollectionKindTextual)
	sessionID := uuid.New()

	state, err := fx.graph.Run(context.Background(), TurnInput{SessionID: sessionID, Query: "reset"})

	require.NoError(t, err)
	assert.Equal(t, constant.ResetNoHistoryMessage, state.LastAnswer())
	assert.Zero(t, fx.checkpoints.deleteCalls)
	assert.Zero(t, fx.checkpoints.count(sessionID))
}

func TestRunSmallTalkShortCircuit(t *testing.T) {
	fx := newFixture(entity.CollectionKindTextual)
	sessionID := uuid.New()

	state, err := fx.graph.Run(context.Background(), TurnInput{SessionID: sessionID, Query: "hello there"})

	require.NoError(t, err)
	assert.Equal(t, constant.SmallTalkResponse, state.LastAnswer())
	assert.Equal(t, store.ReadyNo, state.ReadyToRetrieve)
	assert.Zero(t, fx.llm.chatCalls, "chitchat must skip intent extraction")
	assert.Equal(t, 1, fx.checkpoints.count(sessionID), "chitchat turns are still checkpointed")
}

func TestRunSmallTalkWindowCountsTurns(t *testing.T) {
	fx := newFixture(entity.CollectionKindTextual)
	sessionID := uuid.New()

	for turn := 1; turn <= 5; turn++ {
		state, err := fx.graph.Run(context.Background(), TurnInput{SessionID: sessionID, Query: "hello there"})
		require.NoError(t, err)
		assert.Equal(t, constant.SmallTalkResponse, state.LastAnswer(), "turn %d must stay inside the chitchat window", turn)
	}
	assert.Zero(t, fx.llm.chatCalls, "five chitchat turns must never reach the model")

	// The sixth greeting falls outside the window and converses normally.
	_, err := fx.graph.Run(context.Background(), TurnInput{SessionID: sessionID, Query: "hello there"})
	require.NoError(t, err)
	assert.Equal(t, 1, fx.llm.chatCalls, "the sixth turn must leave the chitchat window")
}

func TestRunRetrievalTurn(t *testing.T) {
	fx := newFixture(entity.CollectionKindTextual)
	sessionID := uuid.New()
	fx.llm.chatResponse = readyIntent("environmental datasets in Berlin")
	fx.vectors.results = []retrieval.ScoredDocument{
		scoredDoc("air quality stations", nil),
		scoredDoc("soil samples", nil),
	}
	given := &store.SpatialTemporalContext{Extent: store.BoundingBox{13.1, 52.3, 13.8, 52.7}}

	state, err := fx.graph.Run(context.Background(), TurnInput{
		SessionID:      sessionID,
		Query:          "find environmental datasets",
		SpatialContext: given,
	})

	require.NoError(t, err)
	assert.Equal(t, "environmental", state.RouteName)
	assert.Equal(t, given, state.SpatialContext)
	assert.Zero(t, fx.llm.entityCalls, "an explicit spatial context must bypass resolution")
	assert.Len(t, state.SearchResults, 2)
	assert.Equal(t, "Here is what I found.", state.LastAnswer())
	assert.Equal(t, 1, fx.checkpoints.count(sessionID))
}

func TestRunResolvesSpatialContext(t *testing.T) {
	fx := newFixture(entity.CollectionKindTextual)
	fx.llm.chatResponse = readyIntent("flood maps for Berlin")
	fx.llm.entityResponse = `{"spatial":"Berlin", "scale":"city"}`
	fx.gazetteer.places = []spatial.Place{
		{Name: "Berlin", Country: "Germany", Type: "city", Extent: []float64{13.1, 52.7, 13.8, 52.3}},
	}

	state, err := fx.graph.Run(context.Background(), TurnInput{SessionID: uuid.New(), Query: "find environmental datasets"})

	require.NoError(t, err)
	require.NotNil(t, state.SpatialContext)
	assert.Equal(t, store.BoundingBox{13.1, 52.3, 13.8, 52.7}, state.SpatialContext.Extent)
}

func TestRunReadyWithoutCriteriaKeepsConversing(t *testing.T) {
	fx := newFixture(entity.CollectionKindTextual)
	sessionID := uuid.New()
	fx.llm.chatResponse = `{"answer":"Tell me more.", "search_criteria":"", "ready_to_retrieve":"yes"}`

	state, err := fx.graph.Run(context.Background(), TurnInput{SessionID: sessionID, Query: "find environmental datasets"})

	require.NoError(t, err)
	assert.Equal(t, store.ReadyNo, state.ReadyToRetrieve)
	assert.Equal(t, "Tell me more.", state.LastAnswer())
	assert.Zero(t, fx.vectors.calls, "readiness without criteria must not search")
	assert.Equal(t, 1, fx.checkpoints.count(sessionID))
}

func TestRunMalformedIntentFallsBack(t *testing.T) {
	fx := newFixture(entity.CollectionKindTextual)
	sessionID := uuid.New()
	fx.llm.chatResponse = "not json at all"

	state, err := fx.graph.Run(context.Background(), TurnInput{SessionID: sessionID, Query: "find environmental datasets"})

	require.NoError(t, err)
	assert.Equal(t, constant.ExtractionApology, state.LastAnswer())
	assert.Equal(t, 1, fx.checkpoints.count(sessionID), "failed extraction still checkpoints the turn")
}

func TestRunNoResultsContext(t *testing.T) {
	fx := newFixture(entity.CollectionKindTextual)
	fx.llm.chatResponse = readyIntent("datasets about nothing")
	fx.vectors.results = nil

	state, err := fx.graph.Run(context.Background(), TurnInput{SessionID: uuid.New(), Query: "find environmental datasets"})

	require.NoError(t, err)
	assert.Nil(t, state.SearchResults)
	assert.Contains(t, fx.llm.finalPrompt, constant.NoResultsContext)
}

func TestRunGeometryCollectionFiltersByExtent(t *testing.T) {
	fx := newFixture(entity.CollectionKindGeometry)
	fx.llm.chatResponse = readyIntent("buildings in the harbor")
	fx.vectors.results = []retrieval.ScoredDocument{
		scoredDoc("inside", map[string]any{"feature": `{"type":"Point","coordinates":[0.5,0.5]}`}),
		scoredDoc("outside", map[string]any{"feature": `{"type":"Point","coordinates":[9,9]}`}),
	}

	state, err := fx.graph.Run(context.Background(), TurnInput{
		SessionID:      uuid.New(),
		Query:          "find environmental datasets",
		SpatialContext: &store.SpatialTemporalContext{Extent: store.BoundingBox{0, 0, 1, 1}},
	})

	require.NoError(t, err)
	require.Len(t, state.SearchResults, 1)
	assert.Equal(t, "inside", state.SearchResults[0].Content)
}

func TestRunWebFallbackWhenUnrouted(t *testing.T) {
	fx := newFixture(entity.CollectionKindTextual)
	fx.llm.chatResponse = readyIntent("open web material")
	fx.web.docs = []store.Document{{Content: "a web page"}}

	state, err := fx.graph.Run(context.Background(), TurnInput{SessionID: uuid.New(), Query: "web only request"})

	require.NoError(t, err)
	assert.Empty(t, state.RouteName)
	assert.Equal(t, 1, fx.web.calls)
	assert.Equal(t, 20, fx.web.lastK)
	assert.Zero(t, fx.vectors.calls)
	require.Len(t, state.SearchResults, 1)
	assert.Equal(t, "a web page", state.SearchResults[0].Content)
}

func TestRunPersistFailureAbortsTurn(t *testing.T) {
	fx := newFixture(entity.CollectionKindTextual)
	fx.checkpoints.appendErr = errors.New("disk full")

	_, err := fx.graph.Run(context.Background(), TurnInput{SessionID: uuid.New(), Query: "find environmental datasets"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist checkpoint")
}

func TestRunMergesCriteriaAcrossTurns(t *testing.T) {
	fx := newFixture(entity.CollectionKindTextual)
	sessionID := uuid.New()

	fx.llm.chatResponse = `{"answer":"Which place?", "search_criteria":"environmental datasets", "ready_to_retrieve":"no"}`
	_, err := fx.graph.Run(context.Background(), TurnInput{SessionID: sessionID, Query: "find environmental datasets"})
	require.NoError(t, err)

	// A later turn must not overwrite criteria the session already holds.
	fx.llm.chatResponse = `{"answer":"", "search_criteria":"something else entirely", "ready_to_retrieve":"yes"}`
	state, err := fx.graph.Run(context.Background(), TurnInput{SessionID: sessionID, Query: "find environmental datasets"})
	require.NoError(t, err)
	assert.Equal(t, "environmental datasets", state.SearchCriteria)
}
