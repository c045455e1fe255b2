package store

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role-tagged entry in a conversation transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BoundingBox is a geographic extent ordered [minLon, minLat, maxLon, maxLat].
type BoundingBox [4]float64

func (b BoundingBox) IsZero() bool {
	return b[0] == 0 && b[1] == 0 && b[2] == 0 && b[3] == 0
}

// Contains reports whether the coordinate falls inside the box. Boundary
// coordinates count as inside.
func (b BoundingBox) Contains(lon, lat float64) bool {
	return lon >= b[0] && lon <= b[2] && lat >= b[1] && lat <= b[3]
}

// SpatialTemporalContext narrows a search to a geographic extent and,
// optionally, a temporal expression.
type SpatialTemporalContext struct {
	Extent   BoundingBox `json:"extent"`
	Temporal string      `json:"temporal,omitempty"`
}

// Document is one retrieved unit of content plus its source metadata.
type Document struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

const (
	ReadyYes = "yes"
	ReadyNo  = "no"
)

// ConversationState is everything a dialogue turn reads and writes. It is
// the value checkpointed after each turn, so every field must survive a
// JSON round trip.
type ConversationState struct {
	Messages           []Message               `json:"messages"`
	SearchCriteria     string                  `json:"search_criteria"`
	BroaderTerms       string                  `json:"broader_terms"`
	NarrowerTerms      string                  `json:"narrower_terms"`
	SpatialContext     *SpatialTemporalContext `json:"spatial_temporal_context,omitempty"`
	ReadyToRetrieve    string                  `json:"ready_to_retrieve"`
	RouteName          string                  `json:"route_name"`
	SearchResults      []Document              `json:"search_results,omitempty"`
	CustomSystemPrompt string                  `json:"custom_system_prompt,omitempty"`
}

// LastAnswer returns the content of the most recent assistant message.
func (s *ConversationState) LastAnswer() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i].Content
		}
	}
	return ""
}

// AppendMessage adds a message to the transcript tail.
func (s *ConversationState) AppendMessage(role, content string) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content})
}

// Checkpoint is one durably stored snapshot of a session's state.
type Checkpoint struct {
	Id        uuid.UUID
	SessionId uuid.UUID
	State     ConversationState
	CreatedAt time.Time
}
