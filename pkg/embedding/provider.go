package embedding

// Task types hint the backend at how the text will be used. Backends that
// do not distinguish tasks ignore them.
const (
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

type EmbeddingResponseEmbedding struct {
	Values []float32 `json:"values"`
}

type EmbeddingResponse struct {
	Embedding EmbeddingResponseEmbedding `json:"embedding"`
}

// EmbeddingProvider defines the interface for generating text embeddings
type EmbeddingProvider interface {
	Generate(text string, taskType string) (*EmbeddingResponse, error)
}
