package events

import "time"

// NewDocumentsIndexedEvent signals that a batch of documents landed in a
// collection. Routing layers listen for it to rebuild their route tables.
func NewDocumentsIndexedEvent(collection string, numAdded, numUpdated int) Event {
	return BaseEvent{
		Type: "DOCUMENTS_INDEXED",
		Data: map[string]interface{}{
			"collection":  collection,
			"num_added":   numAdded,
			"num_updated": numUpdated,
		},
		OccurredAt: time.Now(),
	}
}

// NewCollectionClearedEvent signals that a collection's documents were removed.
func NewCollectionClearedEvent(collection string) Event {
	return BaseEvent{
		Type: "COLLECTION_CLEARED",
		Data: map[string]interface{}{
			"collection": collection,
		},
		OccurredAt: time.Now(),
	}
}

// NewRoutesRebuiltEvent signals that the semantic route table was regenerated.
func NewRoutesRebuiltEvent(routeCount int) Event {
	return BaseEvent{
		Type: "ROUTES_REBUILT",
		Data: map[string]interface{}{
			"route_count": routeCount,
		},
		OccurredAt: time.Now(),
	}
}
