package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"spatial-search-be/internal/dto"
	"spatial-search-be/internal/pkg/logger"
	"spatial-search-be/internal/repository/memory"
	"spatial-search-be/pkg/dialogue"
)

var ErrEmptyQuery = errors.New("query must not be empty")

type IDialogueService interface {
	CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error)
	SendTurn(ctx context.Context, request *dto.DialogueTurnRequest) (*dto.DialogueTurnResponse, error)
	GetHistory(ctx context.Context, sessionId uuid.UUID) (*dto.SessionHistoryResponse, error)
	ResetSession(ctx context.Context, sessionId uuid.UUID) (*dto.ResetSessionResponse, error)
}

type dialogueService struct {
	graph        *dialogue.Graph
	checkpointer dialogue.Checkpointer
	registry     *memory.SessionRegistry
	logger       logger.ILogger
}

func NewDialogueService(
	graph *dialogue.Graph,
	checkpointer dialogue.Checkpointer,
	registry *memory.SessionRegistry,
	log logger.ILogger,
) IDialogueService {
	return &dialogueService{
		graph:        graph,
		checkpointer: checkpointer,
		registry:     registry,
		logger:       log,
	}
}

func (s *dialogueService) CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error) {
	sessionId := uuid.New()
	s.registry.Touch(sessionId)
	s.logger.Info("DialogueService", "Session created", map[string]interface{}{"session_id": sessionId.String()})
	return &dto.CreateSessionResponse{SessionId: sessionId}, nil
}

// SendTurn runs one conversational turn. Turns of the same session are
// serialized through a per-session mutex so concurrent requests cannot
// interleave their checkpoint histories. Unknown session ids start a fresh
// session implicitly.
func (s *dialogueService) SendTurn(ctx context.Context, request *dto.DialogueTurnRequest) (*dto.DialogueTurnResponse, error) {
	sessionId := request.SessionId
	if sessionId == uuid.Nil {
		sessionId = uuid.New()
	}

	mu := s.registry.Acquire(sessionId)
	mu.Lock()
	defer s.registry.Release(sessionId)
	defer mu.Unlock()

	input := dialogue.TurnInput{
		SessionID:          sessionId,
		Query:              request.Query,
		CustomSystemPrompt: request.CustomSystemPrompt,
		SpatialContext:     request.SpatialContext,
	}

	state, err := s.graph.Run(ctx, input)
	if err != nil {
		if errors.Is(err, dialogue.ErrEmptyQuery) {
			return nil, ErrEmptyQuery
		}
		return nil, err
	}

	messages := make([]dto.SessionHistoryItem, 0, len(state.Messages))
	for _, msg := range state.Messages {
		messages = append(messages, dto.SessionHistoryItem{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	response := &dto.DialogueTurnResponse{
		SessionId:      sessionId,
		Answer:         state.LastAnswer(),
		Messages:       messages,
		SearchCriteria: state.SearchCriteria,
		RouteName:      state.RouteName,
		SpatialContext: state.SpatialContext,
		SearchResults:  state.SearchResults,
		NarrowerTerms:  state.NarrowerTerms,
		BroaderTerms:   state.BroaderTerms,
	}
	return response, nil
}

func (s *dialogueService) GetHistory(ctx context.Context, sessionId uuid.UUID) (*dto.SessionHistoryResponse, error) {
	checkpoints, err := s.checkpointer.List(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	response := &dto.SessionHistoryResponse{
		SessionId: sessionId,
		Messages:  []dto.SessionHistoryItem{},
		Turns:     len(checkpoints),
	}
	if len(checkpoints) == 0 {
		return response, nil
	}

	latest := checkpoints[len(checkpoints)-1]
	for _, msg := range latest.State.Messages {
		response.Messages = append(response.Messages, dto.SessionHistoryItem{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	response.UpdatedAt = &latest.CreatedAt
	return response, nil
}

func (s *dialogueService) ResetSession(ctx context.Context, sessionId uuid.UUID) (*dto.ResetSessionResponse, error) {
	// The entry stays registered so a turn racing the reset keeps
	// serializing on the same mutex; it simply ages out when idle.
	mu := s.registry.Acquire(sessionId)
	mu.Lock()
	defer s.registry.Release(sessionId)
	defer mu.Unlock()

	if err := s.checkpointer.DeleteAll(ctx, sessionId); err != nil {
		return nil, err
	}
	s.logger.Info("DialogueService", "Session history cleared", map[string]interface{}{"session_id": sessionId.String()})
	return &dto.ResetSessionResponse{
		SessionId: sessionId,
		Message:   "session history cleared",
	}, nil
}
