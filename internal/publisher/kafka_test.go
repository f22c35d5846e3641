package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"TicketSync/internal/config"
	"TicketSync/internal/model"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// fakeProducer 同步回写投递结果
type fakeProducer struct {
	messages []*kafka.Message
	failKey  string
	silent   bool // 不回写回执
	flushed  int
	closed   bool
}

func (p *fakeProducer) Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error {
	p.messages = append(p.messages, msg)
	if p.silent {
		return nil
	}
	reply := *msg
	if string(msg.Key) == p.failKey {
		reply.TopicPartition.Error = errors.New("broker: message too large")
	}
	deliveryChan <- &reply
	return nil
}

func (p *fakeProducer) Flush(timeoutMs int) int {
	p.flushed = timeoutMs
	return 0
}

func (p *fakeProducer) Close() { p.closed = true }

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func ticket(uuid, price string) *model.CanonicalTicket {
	upper := decimal.RequireFromString("180")
	return &model.CanonicalTicket{
		TicketUUID:         uuid,
		Platform:           model.PlatformRegional,
		EventTitle:         "England v Australia",
		Section:            "Pavilion",
		Price:              decimal.RequireFromString(price),
		PriceMax:           &upper,
		Currency:           "GBP",
		AvailabilityStatus: model.AvailabilityAvailable,
		LastSeen:           time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPublishWritesOneMessagePerTicket(t *testing.T) {
	fp := &fakeProducer{}
	pub := newKafkaPublisher(fp, config.KafkaConfig{Topic: "ticket-updates", FlushWait: 500}, testLogger())

	err := pub.Publish(context.Background(), []*model.CanonicalTicket{ticket("u1", "45"), ticket("u2", "95.5")})
	if err != nil {
		t.Fatal(err)
	}
	if len(fp.messages) != 2 {
		t.Fatalf("messages = %d", len(fp.messages))
	}
	m := fp.messages[1]
	if *m.TopicPartition.Topic != "ticket-updates" || string(m.Key) != "u2" {
		t.Errorf("message = %+v", m)
	}
	if len(m.Headers) != 1 || string(m.Headers[0].Value) != "regional" {
		t.Errorf("headers = %v", m.Headers)
	}
	var body TicketMessage
	if err := json.Unmarshal(m.Value, &body); err != nil {
		t.Fatal(err)
	}
	if body.Price != "95.50" || body.PriceMax != "180.00" || body.Availability != model.AvailabilityAvailable {
		t.Errorf("body = %+v", body)
	}

	pub.Close()
	if fp.flushed != 500 || !fp.closed {
		t.Errorf("flush = %d closed = %v", fp.flushed, fp.closed)
	}
}

func TestPublishReportsDeliveryFailures(t *testing.T) {
	fp := &fakeProducer{failKey: "u2"}
	pub := newKafkaPublisher(fp, config.KafkaConfig{Topic: "t"}, testLogger())
	err := pub.Publish(context.Background(), []*model.CanonicalTicket{ticket("u1", "45"), ticket("u2", "50"), ticket("u3", "55")})
	if err == nil || !strings.Contains(err.Error(), "1/3") || !strings.Contains(err.Error(), "too large") {
		t.Errorf("err = %v", err)
	}
}

func TestPublishHonoursContext(t *testing.T) {
	fp := &fakeProducer{silent: true}
	pub := newKafkaPublisher(fp, config.KafkaConfig{Topic: "t"}, testLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := pub.Publish(ctx, []*model.CanonicalTicket{ticket("u1", "45")})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v", err)
	}
}

func TestNewFallsBackToLogPublisher(t *testing.T) {
	p, err := New(config.KafkaConfig{Enabled: false}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*LogPublisher); !ok {
		t.Fatalf("publisher = %T", p)
	}
	if err := p.Publish(context.Background(), []*model.CanonicalTicket{ticket("u1", "45")}); err != nil {
		t.Error(err)
	}
}
