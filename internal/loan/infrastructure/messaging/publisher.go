// Package messaging 实现申请生命周期事件的 Kafka 发布与消费。
package messaging

import (
	"context"
	"time"

	"github.com/wyfcoding/loanorigination/internal/loan/domain"
	"github.com/wyfcoding/loanorigination/pkg/mq"
	"github.com/wyfcoding/loanorigination/pkg/utils"
)

type kafkaPublisher struct {
	producer *mq.KafkaProducer
	topic    string
}

// NewKafkaPublisher 创建申请事件的 Kafka 发布器
func NewKafkaPublisher(producer *mq.KafkaProducer) domain.EventPublisher {
	return &kafkaPublisher{
		producer: producer,
		topic:    domain.TopicApplicationEvents,
	}
}

// Publish 以申请 id 为分区键发布事件，保证同一申请的事件有序。
// 瞬时发送失败带退避重试
func (p *kafkaPublisher) Publish(ctx context.Context, event domain.ApplicationEvent) error {
	return utils.RetryWithBackoff(3, 100*time.Millisecond, time.Second, func() error {
		return p.producer.SendMessage(ctx, p.topic, event.ApplicationID, event)
	})
}

// NopPublisher 空发布器，用于未接入消息队列的部署与测试
type NopPublisher struct{}

// Publish 丢弃事件
func (NopPublisher) Publish(context.Context, domain.ApplicationEvent) error {
	return nil
}
