package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"spatial-search-be/internal/dto"
	"spatial-search-be/internal/entity"
	"spatial-search-be/internal/pkg/logger"
	"spatial-search-be/internal/repository/specification"
	"spatial-search-be/internal/repository/unitofwork"
	"spatial-search-be/pkg/connector"
	"spatial-search-be/pkg/dialogue/route"
	"spatial-search-be/pkg/embedding"
	"spatial-search-be/pkg/events"
	pktNats "spatial-search-be/pkg/nats"
	"spatial-search-be/pkg/store"
)

type IIndexService interface {
	HarvestPyGeoAPI(ctx context.Context, request *dto.IndexCollectionRequest) (*dto.IndexResponse, error)
	IndexGeoJSON(ctx context.Context, request *dto.IndexGeoJSONRequest) (*dto.IndexSyncResponse, error)
	RetrieveGeoJSON(ctx context.Context, collectionName, query string) (*dto.RetrieveGeoJSONResponse, error)
	ListCollections(ctx context.Context) ([]dto.CollectionInfoResponse, error)
	GetDocument(ctx context.Context, collectionName, docId string) (*dto.ShowDocumentResponse, error)
	DeleteDocument(ctx context.Context, collectionName, docId string) error
	ClearCollection(ctx context.Context, collectionName string) (*dto.ClearCollectionResponse, error)
	RebuildRoutes(ctx context.Context) (*dto.RebuildRoutesResponse, error)
}

type indexService struct {
	uowFactory        unitofwork.RepositoryFactory
	pygeoapi          *connector.PyGeoAPIConnector
	geojsonSource     string
	geojsonTagName    string
	publisherService  IPublisherService
	embeddingProvider embedding.EmbeddingProvider
	routeBuilder      *route.Builder
	classifier        *route.Classifier
	eventPublisher    *pktNats.Publisher
	logger            logger.ILogger
}

func NewIndexService(
	uowFactory unitofwork.RepositoryFactory,
	pygeoapi *connector.PyGeoAPIConnector,
	geojsonSource string,
	geojsonTagName string,
	publisherService IPublisherService,
	embeddingProvider embedding.EmbeddingProvider,
	routeBuilder *route.Builder,
	classifier *route.Classifier,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) IIndexService {
	return &indexService{
		uowFactory:        uowFactory,
		pygeoapi:          pygeoapi,
		geojsonSource:     geojsonSource,
		geojsonTagName:    geojsonTagName,
		publisherService:  publisherService,
		embeddingProvider: embeddingProvider,
		routeBuilder:      routeBuilder,
		classifier:        classifier,
		eventPublisher:    eventPublisher,
		logger:            log,
	}
}

// HarvestPyGeoAPI harvests collection metadata from the configured pygeoapi
// instances and queues one indexing message per harvested document. The actual
// embedding happens asynchronously in the consumer.
func (s *indexService) HarvestPyGeoAPI(ctx context.Context, request *dto.IndexCollectionRequest) (*dto.IndexResponse, error) {
	docs, err := s.pygeoapi.FetchDocuments(ctx)
	if err != nil {
		return nil, err
	}

	kind := request.Kind
	if kind == "" {
		kind = entity.CollectionKindTextual
	}
	if err := s.ensureCollection(ctx, request.CollectionName, kind); err != nil {
		return nil, err
	}

	queued := 0
	for _, doc := range docs {
		docId, _ := doc.Metadata["id"].(string)
		if docId == "" {
			docId = uuid.NewString()
		}
		payload, err := json.Marshal(dto.PublishIndexDocumentMessage{
			CollectionName: request.CollectionName,
			DocId:          docId,
			Content:        doc.Content,
			Metadata:       doc.Metadata,
		})
		if err != nil {
			s.logger.Warn("IndexService", "Skipping document, payload not serializable", map[string]interface{}{"doc_id": docId, "error": err.Error()})
			continue
		}
		if err := s.publisherService.Publish(ctx, payload); err != nil {
			return nil, fmt.Errorf("queue document %s: %w", docId, err)
		}
		queued++
	}

	s.logger.Info("IndexService", "Documents queued for indexing", map[string]interface{}{"collection": request.CollectionName, "queued": queued})
	return &dto.IndexResponse{
		CollectionName: request.CollectionName,
		NumQueued:      queued,
	}, nil
}

// IndexGeoJSON loads features from a GeoJSON source and indexes them
// synchronously, reporting how many documents were added, updated or left
// untouched. Collections built this way hold geometries and are eligible for
// spatial filtering at query time.
func (s *indexService) IndexGeoJSON(ctx context.Context, request *dto.IndexGeoJSONRequest) (*dto.IndexSyncResponse, error) {
	source := request.Source
	if source == "" {
		source = s.geojsonSource
	}
	tagName := request.TagName
	if tagName == "" {
		tagName = s.geojsonTagName
	}

	geojsonConnector := connector.NewGeoJSONConnector(source, tagName, s.logger)
	docs, err := geojsonConnector.LoadDocuments(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.ensureCollection(ctx, request.CollectionName, entity.CollectionKindGeometry); err != nil {
		return nil, err
	}

	response := &dto.IndexSyncResponse{CollectionName: request.CollectionName}
	for i, doc := range docs {
		docId, _ := doc.Metadata["id"].(string)
		if docId == "" {
			if tag, ok := doc.Metadata["tag"].(string); ok {
				docId = tag
			} else {
				docId = fmt.Sprintf("feature-%d", i)
			}
		}
		outcome, err := s.upsertDocument(ctx, request.CollectionName, docId, doc)
		if err != nil {
			return nil, fmt.Errorf("index document %s: %w", docId, err)
		}
		switch outcome {
		case upsertAdded:
			response.NumAdded++
		case upsertUpdated:
			response.NumUpdated++
		case upsertSkipped:
			response.NumSkipped++
		}
	}

	s.publishEvent(ctx, events.NewDocumentsIndexedEvent(request.CollectionName, response.NumAdded, response.NumUpdated))
	s.logger.Info("IndexService", "GeoJSON collection indexed", map[string]interface{}{
		"collection": request.CollectionName,
		"added":      response.NumAdded,
		"updated":    response.NumUpdated,
		"unchanged":  response.NumSkipped,
	})
	return response, nil
}

// RetrieveGeoJSON searches a geometry collection and returns the matching
// features as one combined collection with its extent and a property digest.
func (s *indexService) RetrieveGeoJSON(ctx context.Context, collectionName, query string) (*dto.RetrieveGeoJSONResponse, error) {
	resp, err := s.embeddingProvider.Generate(query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	scored, err := uow.DocumentEmbeddingRepository().SearchSimilarWithScore(ctx, collectionName, resp.Embedding.Values, 20)
	if err != nil {
		return nil, err
	}

	docs := make([]store.Document, 0, len(scored))
	for _, c := range scored {
		docs = append(docs, store.Document{
			Content:  c.Embedding.Content,
			Metadata: c.Embedding.Metadata,
		})
	}

	combined := connector.CombineFeatures(docs)
	features, err := combined.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("serialize feature collection: %w", err)
	}

	return &dto.RetrieveGeoJSONResponse{
		Features: features,
		Extent:   connector.CollectionBounds(combined),
		Summary:  connector.SummarizeProperties(combined),
	}, nil
}

func (s *indexService) ListCollections(ctx context.Context) ([]dto.CollectionInfoResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	collections, err := uow.CollectionRepository().FindAll(ctx, specification.OrderBy{Field: "name"})
	if err != nil {
		return nil, err
	}

	infos := make([]dto.CollectionInfoResponse, 0, len(collections))
	for _, c := range collections {
		count, err := uow.DocumentEmbeddingRepository().Count(ctx, specification.ByCollectionName{Name: c.Name})
		if err != nil {
			return nil, err
		}
		infos = append(infos, dto.CollectionInfoResponse{
			Id:             c.Id,
			Name:           c.Name,
			Kind:           c.Kind,
			Description:    c.Description,
			DocumentCount:  count,
			ScoreThreshold: c.ScoreThreshold,
		})
	}
	return infos, nil
}

func (s *indexService) GetDocument(ctx context.Context, collectionName, docId string) (*dto.ShowDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	doc, err := uow.DocumentEmbeddingRepository().FindOne(ctx,
		specification.ByCollectionName{Name: collectionName},
		specification.ByDocID{DocID: docId},
	)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	return &dto.ShowDocumentResponse{
		DocId:          doc.DocId,
		CollectionName: doc.CollectionName,
		Content:        doc.Content,
		Metadata:       doc.Metadata,
	}, nil
}

func (s *indexService) DeleteDocument(ctx context.Context, collectionName, docId string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.DocumentEmbeddingRepository().DeleteByDocId(ctx, collectionName, docId); err != nil {
		return err
	}
	return uow.Commit()
}

func (s *indexService) ClearCollection(ctx context.Context, collectionName string) (*dto.ClearCollectionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	count, err := uow.DocumentEmbeddingRepository().Count(ctx, specification.ByCollectionName{Name: collectionName})
	if err != nil {
		return nil, err
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.DocumentEmbeddingRepository().DeleteByCollection(ctx, collectionName); err != nil {
		return nil, err
	}
	if err := uow.CollectionRepository().DeleteByName(ctx, collectionName); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.NewCollectionClearedEvent(collectionName))
	return &dto.ClearCollectionResponse{
		CollectionName: collectionName,
		NumDeleted:     count,
	}, nil
}

// RebuildRoutes regenerates routing material for every collection and swaps
// the new table into the live classifier, flushing its per-session memo.
func (s *indexService) RebuildRoutes(ctx context.Context) (*dto.RebuildRoutesResponse, error) {
	table, err := s.routeBuilder.Build(ctx)
	if err != nil {
		return nil, err
	}
	s.classifier.Swap(table)

	names := make([]string, 0, table.Len())
	for _, r := range table.Routes() {
		names = append(names, r.Collection.Name)
	}

	s.publishEvent(ctx, events.NewRoutesRebuiltEvent(table.Len()))
	s.logger.Info("IndexService", "Route table rebuilt", map[string]interface{}{"routes": table.Len()})
	return &dto.RebuildRoutesResponse{
		NumRoutes: table.Len(),
		Routes:    names,
	}, nil
}

func (s *indexService) ensureCollection(ctx context.Context, name, kind string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	existing, err := uow.CollectionRepository().FindOne(ctx, specification.ByName{Name: name})
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	collection := &entity.Collection{
		Id:             uuid.New(),
		Name:           name,
		Kind:           kind,
		ScoreThreshold: 0.7,
		CreatedAt:      time.Now(),
	}
	if err := uow.CollectionRepository().Create(ctx, collection); err != nil {
		return err
	}
	return uow.Commit()
}

type upsertOutcome int

const (
	upsertAdded upsertOutcome = iota
	upsertUpdated
	upsertSkipped
)

// upsertDocument embeds and stores one document. Documents whose content hash
// is unchanged are skipped without re-embedding.
func (s *indexService) upsertDocument(ctx context.Context, collectionName, docId string, doc store.Document) (upsertOutcome, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	existing, err := uow.DocumentEmbeddingRepository().FindOne(ctx,
		specification.ByCollectionName{Name: collectionName},
		specification.ByDocID{DocID: docId},
	)
	if err != nil {
		return upsertSkipped, err
	}

	hash := ContentHash(doc.Content)
	if existing != nil && existing.ContentHash == hash {
		return upsertSkipped, nil
	}

	res, err := s.embeddingProvider.Generate(doc.Content, embedding.TaskRetrievalDocument)
	if err != nil {
		return upsertSkipped, fmt.Errorf("generate embedding: %w", err)
	}

	if err := uow.Begin(ctx); err != nil {
		return upsertSkipped, err
	}
	defer uow.Rollback()

	if existing != nil {
		now := time.Now()
		existing.Content = doc.Content
		existing.Metadata = doc.Metadata
		existing.ContentHash = hash
		existing.EmbeddingValue = res.Embedding.Values
		existing.UpdatedAt = &now
		if err := uow.DocumentEmbeddingRepository().Update(ctx, existing); err != nil {
			return upsertSkipped, err
		}
		if err := uow.Commit(); err != nil {
			return upsertSkipped, err
		}
		return upsertUpdated, nil
	}

	record := &entity.DocumentEmbedding{
		Id:             uuid.New(),
		CollectionName: collectionName,
		DocId:          docId,
		Content:        doc.Content,
		Metadata:       doc.Metadata,
		ContentHash:    hash,
		EmbeddingValue: res.Embedding.Values,
		CreatedAt:      time.Now(),
	}
	if err := uow.DocumentEmbeddingRepository().Create(ctx, record); err != nil {
		return upsertSkipped, err
	}
	if err := uow.Commit(); err != nil {
		return upsertSkipped, err
	}
	return upsertAdded, nil
}

func (s *indexService) publishEvent(ctx context.Context, event events.Event) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.Warn("IndexService", "Failed to publish event", map[string]interface{}{"event": event.EventType(), "error": err.Error()})
	}
}

// ContentHash fingerprints document content for change detection.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
