package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"docrag-be/internal/dto"
	"docrag-be/internal/entity"
	"docrag-be/internal/pkg/logger"
	"docrag-be/internal/repository/contract"
	"docrag-be/internal/repository/unitofwork"
	"docrag-be/pkg/fulltext"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

const (
	indexerModule      = "indexer"
	retryCountMetadata = "retry_count"
	errorMetadata      = "error"
)

type IIndexerService interface {
	PublishUpsert(ctx context.Context, documentId uuid.UUID) error
	PublishDelete(ctx context.Context, documentId uuid.UUID) error
	// Consume subscribes to the indexing and dead-letter topics and processes them in the background.
	Consume(ctx context.Context) error
}

type indexerService struct {
	pubSub           *gochannel.GoChannel
	topic            string
	deadLetterTopic  string
	maxRetries       int
	uowFactory       unitofwork.RepositoryFactory
	index            fulltext.Index
	logger           logger.ILogger
	deadLetterLogger logger.ILogger
}

func NewIndexerService(
	pubSub *gochannel.GoChannel,
	topic string,
	deadLetterTopic string,
	maxRetries int,
	uowFactory unitofwork.RepositoryFactory,
	index fulltext.Index,
	log logger.ILogger,
	deadLetterLogger logger.ILogger,
) IIndexerService {
	return &indexerService{
		pubSub:           pubSub,
		topic:            topic,
		deadLetterTopic:  deadLetterTopic,
		maxRetries:       maxRetries,
		uowFactory:       uowFactory,
		index:            index,
		logger:           log,
		deadLetterLogger: deadLetterLogger,
	}
}

func (s *indexerService) publish(action string, documentId uuid.UUID) error {
	payload, err := json.Marshal(dto.IndexMessage{Action: action, DocumentId: documentId})
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(retryCountMetadata, "0")
	return s.pubSub.Publish(s.topic, msg)
}

func (s *indexerService) PublishUpsert(ctx context.Context, documentId uuid.UUID) error {
	return s.publish(dto.IndexActionUpsert, documentId)
}

func (s *indexerService) PublishDelete(ctx context.Context, documentId uuid.UUID) error {
	return s.publish(dto.IndexActionDelete, documentId)
}

func (s *indexerService) Consume(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, s.topic)
	if err != nil {
		return err
	}
	deadLetters, err := s.pubSub.Subscribe(ctx, s.deadLetterTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.processMessage(ctx, msg)
		}
	}()
	go func() {
		for msg := range deadLetters {
			s.processDeadLetter(ctx, msg)
		}
	}()

	return nil
}

func (s *indexerService) processMessage(ctx context.Context, msg *message.Message) {
	// Every delivery is acked; failed work is re-published with a higher retry count.
	defer msg.Ack()

	retryCount, _ := strconv.Atoi(msg.Metadata.Get(retryCountMetadata))

	var payload dto.IndexMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.deadLetter(msg, retryCount, fmt.Errorf("malformed payload: %w", err))
		return
	}

	var err error
	switch payload.Action {
	case dto.IndexActionUpsert:
		err = s.indexDocument(ctx, payload.DocumentId)
	case dto.IndexActionDelete:
		err = s.index.DeleteDocument(ctx, payload.DocumentId)
	default:
		s.deadLetter(msg, retryCount, fmt.Errorf("unknown action %q", payload.Action))
		return
	}
	if err == nil {
		return
	}

	if retryCount >= s.maxRetries {
		s.deadLetter(msg, retryCount, err)
		return
	}

	s.logger.Warn(indexerModule, "Indexing failed, scheduling retry", map[string]interface{}{
		"document_id": payload.DocumentId.String(),
		"retry_count": retryCount + 1,
		"error":       err.Error(),
	})
	retry := message.NewMessage(watermill.NewUUID(), msg.Payload)
	retry.Metadata.Set(retryCountMetadata, strconv.Itoa(retryCount+1))
	if pubErr := s.pubSub.Publish(s.topic, retry); pubErr != nil {
		s.deadLetter(msg, retryCount, pubErr)
	}
}

func (s *indexerService) indexDocument(ctx context.Context, documentId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	doc, err := uow.DocumentRepository().FindById(ctx, documentId)
	if err != nil {
		return err
	}
	if doc == nil {
		// Deleted before we got to it.
		return nil
	}

	chunks, err := s.activeChunks(ctx, uow, doc)
	if err != nil {
		return err
	}

	// Replace whatever an older version left behind.
	if err := s.index.DeleteDocument(ctx, doc.Id); err != nil {
		return err
	}
	if err := s.index.IndexDocument(ctx, fulltext.DocumentEntry{
		DocumentId:   doc.Id,
		CollectionId: doc.CollectionId,
		Title:        doc.FileName,
		Summary:      doc.Summary,
		Tags:         doc.Tags,
	}); err != nil {
		return err
	}
	for _, c := range chunks {
		if err := s.index.IndexChunk(ctx, fulltext.ChunkEntry{
			ChunkId:      c.Id,
			DocumentId:   doc.Id,
			CollectionId: doc.CollectionId,
			Content:      c.Content,
		}); err != nil {
			return err
		}
	}

	s.logger.Debug(indexerModule, "Document indexed", map[string]interface{}{
		"document_id": doc.Id.String(),
		"chunks":      len(chunks),
	})
	return nil
}

func (s *indexerService) activeChunks(ctx context.Context, uow unitofwork.UnitOfWork, doc *entity.Document) ([]*entity.Chunk, error) {
	version, err := uow.VersionRepository().FindActive(ctx, doc.Id)
	if err != nil {
		return nil, err
	}
	if version == nil || !version.HasRange() {
		return nil, nil
	}
	return uow.ChunkRepository().FindByRange(ctx, doc.Id, contract.IdRange{Start: version.ChunkStartId, End: version.ChunkEndId})
}

func (s *indexerService) deadLetter(msg *message.Message, retryCount int, cause error) {
	dead := message.NewMessage(watermill.NewUUID(), msg.Payload)
	dead.Metadata.Set(retryCountMetadata, strconv.Itoa(retryCount))
	dead.Metadata.Set(errorMetadata, cause.Error())
	dead.Metadata.Set("original_id", msg.UUID)
	if err := s.pubSub.Publish(s.deadLetterTopic, dead); err != nil {
		s.logger.Error(indexerModule, "Failed to route message to dead letter topic", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
	}
}

func (s *indexerService) processDeadLetter(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	retryCount, _ := strconv.Atoi(msg.Metadata.Get(retryCountMetadata))
	letter := &entity.DeadLetter{
		Topic:      s.topic,
		MessageId:  msg.Metadata.Get("original_id"),
		Payload:    string(msg.Payload),
		Error:      msg.Metadata.Get(errorMetadata),
		RetryCount: retryCount,
	}

	s.deadLetterLogger.Error(indexerModule, "Message dead-lettered", map[string]interface{}{
		"message_id":  letter.MessageId,
		"retry_count": retryCount,
		"error":       letter.Error,
		"payload":     letter.Payload,
	})

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.DeadLetterRepository().Create(ctx, letter); err != nil {
		s.logger.Error(indexerModule, "Failed to persist dead letter", map[string]interface{}{
			"message_id": letter.MessageId,
			"error":      err.Error(),
		})
	}
}
