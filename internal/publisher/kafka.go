// Package publisher 将入库后的票务记录推送到下游（Kafka）。
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"TicketSync/internal/config"
	"TicketSync/internal/interfaces"
	"TicketSync/internal/model"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sirupsen/logrus"
)

// producer kafka.Producer 中用到的部分
type producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
	Close()
}

// TicketMessage 推送到下游的消息体
type TicketMessage struct {
	TicketUUID   string                   `json:"ticket_uuid"`
	Platform     model.PlatformType       `json:"platform"`
	EventTitle   string                   `json:"event_title"`
	Section      string                   `json:"section"`
	Price        string                   `json:"price"`
	PriceMax     string                   `json:"price_max,omitempty"`
	Currency     string                   `json:"currency"`
	Venue        string                   `json:"venue,omitempty"`
	EventDate    *time.Time               `json:"event_date,omitempty"`
	Availability model.AvailabilityStatus `json:"availability"`
	SourceURL    string                   `json:"source_url,omitempty"`
	LastSeen     time.Time                `json:"last_seen"`
}

func newTicketMessage(t *model.CanonicalTicket) TicketMessage {
	m := TicketMessage{
		TicketUUID:   t.TicketUUID,
		Platform:     t.Platform,
		EventTitle:   t.EventTitle,
		Section:      t.Section,
		Price:        t.Price.StringFixed(2),
		Currency:     t.Currency,
		Venue:        t.Venue,
		EventDate:    t.EventDate,
		Availability: t.AvailabilityStatus,
		SourceURL:    t.SourceURL,
		LastSeen:     t.LastSeen,
	}
	if t.PriceMax != nil {
		m.PriceMax = t.PriceMax.StringFixed(2)
	}
	return m
}

// KafkaPublisher 每条记录一条消息，key 为 ticket_uuid，同一记录落在同一分区
type KafkaPublisher struct {
	producer  producer
	topic     string
	flushWait int
	logger    *logrus.Logger
}

func NewKafkaPublisher(cfg config.KafkaConfig, logger *logrus.Logger) (*KafkaPublisher, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": strings.Join(cfg.Brokers, ","),
		"client.id":         cfg.ClientID,
		"acks":              "all",
	})
	if err != nil {
		return nil, fmt.Errorf("创建Kafka Producer失败: %w", err)
	}
	logger.WithField("topic", cfg.Topic).Info("Kafka Producer初始化成功")
	return newKafkaPublisher(p, cfg, logger), nil
}

func newKafkaPublisher(p producer, cfg config.KafkaConfig, logger *logrus.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: p, topic: cfg.Topic, flushWait: cfg.FlushWait, logger: logger}
}

// Publish 发送并等待全部投递回执；任一条失败返回汇总错误
func (k *KafkaPublisher) Publish(ctx context.Context, tickets []*model.CanonicalTicket) error {
	if len(tickets) == 0 {
		return nil
	}
	deliveries := make(chan kafka.Event, len(tickets))
	sent := 0
	var firstErr error
	for _, t := range tickets {
		payload, err := json.Marshal(newTicketMessage(t))
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		err = k.producer.Produce(&kafka.Message{
			TopicPartition: kafka.TopicPartition{Topic: &k.topic, Partition: kafka.PartitionAny},
			Key:            []byte(t.TicketUUID),
			Value:          payload,
			Headers:        []kafka.Header{{Key: "platform", Value: []byte(t.Platform)}},
		}, deliveries)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		sent++
	}

	failed := len(tickets) - sent
	for i := 0; i < sent; i++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("等待Kafka投递回执中断: %w", ctx.Err())
		case e := <-deliveries:
			m, ok := e.(*kafka.Message)
			if !ok {
				continue
			}
			if m.TopicPartition.Error != nil {
				failed++
				if firstErr == nil {
					firstErr = m.TopicPartition.Error
				}
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("Kafka投递失败 %d/%d 条: %w", failed, len(tickets), firstErr)
	}
	k.logger.WithFields(logrus.Fields{"topic": k.topic, "count": sent}).Debug("票务记录已推送")
	return nil
}

// Close 刷出未发送的消息后关闭
func (k *KafkaPublisher) Close() {
	if remaining := k.producer.Flush(k.flushWait); remaining > 0 {
		k.logger.WithField("remaining", remaining).Warn("关闭时仍有消息未投递")
	}
	k.producer.Close()
}

// LogPublisher 未启用Kafka时使用，只记录日志
type LogPublisher struct {
	logger *logrus.Logger
}

func NewLogPublisher(logger *logrus.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (l *LogPublisher) Publish(ctx context.Context, tickets []*model.CanonicalTicket) error {
	l.logger.WithField("count", len(tickets)).Debug("Kafka未启用，跳过推送")
	return nil
}

func (l *LogPublisher) Close() {}

// New 按配置选择推送实现
func New(cfg config.KafkaConfig, logger *logrus.Logger) (interfaces.TicketPublisher, error) {
	if !cfg.Enabled {
		return NewLogPublisher(logger), nil
	}
	return NewKafkaPublisher(cfg, logger)
}
