package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"spatial-search-be/internal/dto"
	"spatial-search-be/internal/entity"
	"spatial-search-be/internal/pkg/logger"
	"spatial-search-be/internal/repository/specification"
	"spatial-search-be/internal/repository/unitofwork"
	"spatial-search-be/pkg/embedding"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	logger            logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		logger:            log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

// processMessage embeds one queued document and upserts it into the vector
// store. Malformed payloads are acked so they do not retry forever; transient
// failures (embedding backend down, database errors) are nacked for redelivery.
func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishIndexDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("ConsumerService", "Failed to unmarshal message, dropping", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack()
		return
	}
	if payload.CollectionName == "" || payload.DocId == "" {
		cs.logger.Error("ConsumerService", "Message missing collection or doc id, dropping", map[string]interface{}{
			"collection": payload.CollectionName,
			"doc_id":     payload.DocId,
		})
		msg.Ack()
		return
	}

	cs.logger.Info("ConsumerService", "Processing document", map[string]interface{}{
		"collection": payload.CollectionName,
		"doc_id":     payload.DocId,
	})

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	existing, err := uow.DocumentEmbeddingRepository().FindOne(ctx,
		specification.ByCollectionName{Name: payload.CollectionName},
		specification.ByDocID{DocID: payload.DocId},
	)
	if err != nil {
		cs.logger.Error("ConsumerService", "Failed to look up document", map[string]interface{}{
			"doc_id": payload.DocId,
			"error":  err.Error(),
		})
		msg.Nack()
		return
	}

	hash := ContentHash(payload.Content)
	if existing != nil && existing.ContentHash == hash {
		cs.logger.Info("ConsumerService", "Document unchanged, skipping", map[string]interface{}{
			"doc_id": payload.DocId,
		})
		msg.Ack()
		return
	}

	res, err := cs.embeddingProvider.Generate(payload.Content, embedding.TaskRetrievalDocument)
	if err != nil {
		cs.logger.Error("ConsumerService", "Failed to generate embedding", map[string]interface{}{
			"doc_id": payload.DocId,
			"error":  err.Error(),
		})
		msg.Nack()
		return
	}

	if err := uow.Begin(ctx); err != nil {
		cs.logger.Error("ConsumerService", "Failed to begin transaction", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Nack()
		return
	}
	defer uow.Rollback()

	if existing != nil {
		now := time.Now()
		existing.Content = payload.Content
		existing.Metadata = payload.Metadata
		existing.ContentHash = hash
		existing.EmbeddingValue = res.Embedding.Values
		existing.UpdatedAt = &now
		err = uow.DocumentEmbeddingRepository().Update(ctx, existing)
	} else {
		err = uow.DocumentEmbeddingRepository().Create(ctx, &entity.DocumentEmbedding{
			Id:             uuid.New(),
			CollectionName: payload.CollectionName,
			DocId:          payload.DocId,
			Content:        payload.Content,
			Metadata:       payload.Metadata,
			ContentHash:    hash,
			EmbeddingValue: res.Embedding.Values,
			CreatedAt:      time.Now(),
		})
	}
	if err != nil {
		cs.logger.Error("ConsumerService", "Failed to store document embedding", map[string]interface{}{
			"doc_id": payload.DocId,
			"error":  err.Error(),
		})
		msg.Nack()
		return
	}

	if err := uow.Commit(); err != nil {
		cs.logger.Error("ConsumerService", "Failed to commit transaction", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Nack()
		return
	}

	cs.logger.Info("ConsumerService", "Document indexed", map[string]interface{}{
		"collection": payload.CollectionName,
		"doc_id":     payload.DocId,
	})
	msg.Ack()
}
