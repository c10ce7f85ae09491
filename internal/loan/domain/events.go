package domain

import (
	"context"
	"time"
)

// TopicApplicationEvents 申请生命周期事件主题
const TopicApplicationEvents = "loan.application.events"

// EventType 申请生命周期事件类型
type EventType string

const (
	EventApplicationCreated  EventType = "loan.application.created"
	EventApplicationApproved EventType = "loan.application.approved"
	EventApplicationRejected EventType = "loan.application.rejected"
	EventManualReview        EventType = "loan.application.manual_review"
	EventDocumentsRequested  EventType = "loan.documents.requested"
	EventDocumentReceived    EventType = "loan.document.received"
)

// ApplicationEvent 检查点落库成功后发布的申请事件
type ApplicationEvent struct {
	Type          EventType `json:"type"`
	ApplicationID string    `json:"application_id"`
	Stage         Stage     `json:"stage"`
	Status        Status    `json:"status"`
	Reason        string    `json:"reason,omitempty"`
	SanctionRef   string    `json:"sanction_ref,omitempty"`
	Documents     []string  `json:"documents,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// EventPublisher 领域事件发布端口
type EventPublisher interface {
	Publish(ctx context.Context, event ApplicationEvent) error
}
