// Package consumer 消费申请生命周期事件，驱动决策通知。
package consumer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/wyfcoding/loanorigination/internal/loan/domain"
	"github.com/wyfcoding/loanorigination/pkg/mq"
)

// DecisionHandler 申请决策事件处理器：终态事件触发客户通知，
// 其余生命周期事件仅落日志留痕。
type DecisionHandler struct {
	consumer *mq.KafkaConsumer
	dlq      *mq.DeadLetterQueue
	logger   *slog.Logger
}

func NewDecisionHandler(consumer *mq.KafkaConsumer, dlq *mq.DeadLetterQueue, logger *slog.Logger) *DecisionHandler {
	return &DecisionHandler{consumer: consumer, dlq: dlq, logger: logger}
}

// Run 拉取并处理事件直至 ctx 取消。反序列化失败的消息转入死信队列。
func (h *DecisionHandler) Run(ctx context.Context) error {
	for {
		msg, err := h.consumer.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			h.logger.ErrorContext(ctx, "read application event failed", "error", err)
			continue
		}

		var event domain.ApplicationEvent
		if err := msg.UnmarshalPayload(&event); err != nil {
			h.logger.ErrorContext(ctx, "unmarshal application event failed", "error", err)
			if h.dlq != nil {
				if dlqErr := h.dlq.Send(ctx, msg, "unmarshal failure", err); dlqErr != nil {
					h.logger.ErrorContext(ctx, "dead letter send failed", "error", dlqErr)
				}
			}
			continue
		}
		h.handle(ctx, event)
	}
}

func (h *DecisionHandler) handle(ctx context.Context, event domain.ApplicationEvent) {
	switch event.Type {
	case domain.EventApplicationApproved:
		h.logger.InfoContext(ctx, "notify customer: loan approved",
			"application_id", event.ApplicationID, "sanction_ref", event.SanctionRef)
	case domain.EventApplicationRejected:
		h.logger.InfoContext(ctx, "notify customer: loan rejected",
			"application_id", event.ApplicationID, "reason", event.Reason)
	case domain.EventManualReview:
		h.logger.InfoContext(ctx, "notify operations: manual review queued",
			"application_id", event.ApplicationID)
	case domain.EventDocumentsRequested:
		h.logger.InfoContext(ctx, "notify customer: documents requested",
			"application_id", event.ApplicationID, "documents", event.Documents)
	default:
		h.logger.DebugContext(ctx, "application lifecycle event",
			"application_id", event.ApplicationID, "event_type", string(event.Type))
	}
}
