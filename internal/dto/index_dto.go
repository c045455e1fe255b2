package dto

import (
	"encoding/json"

	"github.com/google/uuid"
)

// PublishIndexDocumentMessage is the payload placed on the in-process indexing
// queue. The consumer embeds the content and upserts it into the vector store.
type PublishIndexDocumentMessage struct {
	CollectionName string         `json:"collection_name"`
	DocId          string         `json:"doc_id"`
	Content        string         `json:"content"`
	Metadata       map[string]any `json:"metadata"`
}

type IndexCollectionRequest struct {
	CollectionName string `json:"collection_name" validate:"required"`
	Kind           string `json:"kind" validate:"omitempty,oneof=geometry textual"`
}

type IndexGeoJSONRequest struct {
	CollectionName string `json:"collection_name" validate:"required"`
	Source         string `json:"source"`
	TagName        string `json:"tag_name"`
}

type IndexResponse struct {
	CollectionName string `json:"collection_name"`
	NumQueued      int    `json:"num_queued"`
}

type IndexSyncResponse struct {
	CollectionName string `json:"collection_name"`
	NumAdded       int    `json:"num_added"`
	NumUpdated     int    `json:"num_updated"`
	NumSkipped     int    `json:"num_skipped"`
}

type CollectionInfoResponse struct {
	Id             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Kind           string    `json:"kind"`
	Description    string    `json:"description"`
	DocumentCount  int64     `json:"document_count"`
	ScoreThreshold float32   `json:"score_threshold"`
}

type ShowDocumentResponse struct {
	DocId          string         `json:"doc_id"`
	CollectionName string         `json:"collection_name"`
	Content        string         `json:"content"`
	Metadata       map[string]any `json:"metadata"`
}

type ClearCollectionResponse struct {
	CollectionName string `json:"collection_name"`
	NumDeleted     int64  `json:"num_deleted"`
}

// RetrieveGeoJSONResponse bundles the features matching a free-text query:
// the combined collection, its overall extent, and a per-type digest.
type RetrieveGeoJSONResponse struct {
	Features json.RawMessage `json:"features"`
	Extent   [4]float64      `json:"extent"`
	Summary  string          `json:"summary"`
}

type RebuildRoutesResponse struct {
	NumRoutes int      `json:"num_routes"`
	Routes    []string `json:"routes"`
}
