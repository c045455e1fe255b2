package dto

import (
	"time"

	"github.com/google/uuid"

	"spatial-search-be/pkg/store"
)

type CreateSessionResponse struct {
	SessionId uuid.UUID `json:"session_id"`
}

type DialogueTurnRequest struct {
	SessionId          uuid.UUID                     `json:"session_id"`
	Query              string                        `json:"query" validate:"required"`
	SpatialContext     *store.SpatialTemporalContext `json:"spatial_temporal_context,omitempty"`
	CustomSystemPrompt string                        `json:"custom_system_prompt,omitempty"`
}

type DialogueTurnResponse struct {
	SessionId      uuid.UUID                     `json:"session_id"`
	Answer         string                        `json:"answer"`
	Messages       []SessionHistoryItem          `json:"messages"`
	SearchCriteria string                        `json:"search_criteria"`
	RouteName      string                        `json:"route_name,omitempty"`
	SpatialContext *store.SpatialTemporalContext `json:"spatial_temporal_context,omitempty"`
	SearchResults  []store.Document              `json:"search_results,omitempty"`
	NarrowerTerms  string                        `json:"narrower_terms,omitempty"`
	BroaderTerms   string                        `json:"broader_terms,omitempty"`
}

type SessionHistoryItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type SessionHistoryResponse struct {
	SessionId uuid.UUID            `json:"session_id"`
	Messages  []SessionHistoryItem `json:"messages"`
	Turns     int                  `json:"turns"`
	UpdatedAt *time.Time           `json:"updated_at,omitempty"`
}

type ResetSessionRequest struct {
	SessionId uuid.UUID `json:"session_id" validate:"required"`
}

type ResetSessionResponse struct {
	SessionId uuid.UUID `json:"session_id"`
	Message   string    `json:"message"`
}
