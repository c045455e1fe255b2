package store

import (
	"encoding/json"
	"testing"
)

func TestBoundingBoxContains(t *testing.T) {
	box := BoundingBox{0, 0, 1, 1}

	tests := []struct {
		name string
		lon  float64
		lat  float64
		want bool
	}{
		{"center", 0.5, 0.5, true},
		{"west edge", 0, 0.5, true},
		{"northeast corner", 1, 1, true},
		{"outside east", 5, 0.5, false},
		{"outside south", 0.5, -0.1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := box.Contains(tt.lon, tt.lat); got != tt.want {
				t.Errorf("Contains(%v, %v) = %v, want %v", tt.lon, tt.lat, got, tt.want)
			}
		})
	}
}

func TestBoundingBoxIsZero(t *testing.T) {
	if !(BoundingBox{}).IsZero() {
		t.Error("zero box should report IsZero")
	}
	if (BoundingBox{0, 0, 1, 1}).IsZero() {
		t.Error("non-zero box should not report IsZero")
	}
}

func TestLastAnswer(t *testing.T) {
	var state ConversationState
	if got := state.LastAnswer(); got != "" {
		t.Errorf("empty transcript LastAnswer = %q, want empty", got)
	}

	state.AppendMessage(RoleUser, "find rivers")
	state.AppendMessage(RoleAssistant, "first reply")
	state.AppendMessage(RoleUser, "in Germany")
	state.AppendMessage(RoleAssistant, "second reply")

	if got := state.LastAnswer(); got != "second reply" {
		t.Errorf("LastAnswer = %q, want %q", got, "second reply")
	}
}

func TestConversationStateRoundTrip(t *testing.T) {
	state := ConversationState{
		SearchCriteria:  "water quality stations",
		ReadyToRetrieve: ReadyYes,
		RouteName:       "environmental",
		SpatialContext: &SpatialTemporalContext{
			Extent: BoundingBox{5.8, 47.2, 15.1, 55.1},
		},
	}
	state.AppendMessage(RoleUser, "hello")

	raw, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var restored ConversationState
	if err := json.Unmarshal(raw, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if restored.SearchCriteria != state.SearchCriteria {
		t.Errorf("SearchCriteria = %q, want %q", restored.SearchCriteria, state.SearchCriteria)
	}
	if restored.SpatialContext == nil || restored.SpatialContext.Extent != state.SpatialContext.Extent {
		t.Errorf("SpatialContext did not survive round trip: %+v", restored.SpatialContext)
	}
	if len(restored.Messages) != 1 || restored.Messages[0].Content != "hello" {
		t.Errorf("Messages did not survive round trip: %+v", restored.Messages)
	}
}
