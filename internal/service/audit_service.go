package service

import (
	"context"
	"encoding/json"

	"knowledge-base-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IAuditService interface {
	Consume(ctx context.Context) error
}

// auditService subscribes to document lifecycle events and appends them to
// an isolated audit log, kept separate from the operational log stream.
type auditService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	auditLog  logger.ILogger
}

func NewAuditService(
	pubSub *gochannel.GoChannel,
	topicName string,
	auditLog logger.ILogger,
) IAuditService {
	return &auditService{
		pubSub:    pubSub,
		topicName: topicName,
		auditLog:  auditLog,
	}
}

func (s *auditService) Consume(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, s.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.processMessage(msg)
		}
	}()

	return nil
}

func (s *auditService) processMessage(msg *message.Message) {
	var envelope eventEnvelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		// Malformed events are dropped; redelivery cannot fix them.
		s.auditLog.Warn("audit", "Dropping malformed event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack()
		return
	}

	details := envelope.Data
	if details == nil {
		details = make(map[string]interface{})
	}
	details["occurred_at"] = envelope.OccurredAt

	s.auditLog.Info("audit", envelope.Type, details)
	msg.Ack()
}
