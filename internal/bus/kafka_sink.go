package bus

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"zapzap/internal/domain"
)

// KafkaSinkConfig configures a KafkaEventSink. Adapted from the
// teacher's KafkaAlertProducerConfig in internal/fraud/kafka_producer.go.
type KafkaSinkConfig struct {
	Brokers        []string
	Topic          string
	MaxRetries     int
	RetryBackoff   time.Duration
	FlushFrequency time.Duration
	FlushMessages  int
	RequiredAcks   sarama.RequiredAcks
	Compression    sarama.CompressionCodec
}

// sinkMessage is the wire format mirrored to Kafka for every published
// event, keyed by partyID so a downstream consumer group can replay or
// audit a single party's history in order.
type sinkMessage struct {
	Type      domain.EventType `json:"type"`
	PartyID   string           `json:"party_id"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Payload   map[string]any   `json:"payload,omitempty"`
}

// KafkaEventSink mirrors every Bus event to a Kafka topic asynchronously,
// for audit and cross-process fanout (spec §4.5's optional durable
// sink). Modeled on KafkaAlertProducer's async mode.
type KafkaEventSink struct {
	producer sarama.AsyncProducer
	topic    string

	mu       sync.Mutex
	sent     int64
	failed   int64
}

// NewKafkaEventSink dials brokers and starts the async error drain.
func NewKafkaEventSink(cfg KafkaSinkConfig) (*KafkaEventSink, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.Return.Successes = false
	saramaCfg.Producer.Return.Errors = true
	saramaCfg.Producer.Retry.Max = cfg.MaxRetries
	saramaCfg.Producer.Retry.Backoff = cfg.RetryBackoff
	saramaCfg.Producer.Flush.Frequency = cfg.FlushFrequency
	saramaCfg.Producer.Flush.Messages = cfg.FlushMessages
	saramaCfg.Producer.RequiredAcks = cfg.RequiredAcks
	saramaCfg.Producer.Compression = cfg.Compression

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create async Kafka producer: %w", err)
	}

	s := &KafkaEventSink{producer: producer, topic: cfg.Topic}
	go s.drainErrors()
	return s, nil
}

func (s *KafkaEventSink) drainErrors() {
	for err := range s.producer.Errors() {
		s.mu.Lock()
		s.failed++
		s.mu.Unlock()
		_ = err
	}
}

// Publish implements core.EventPublisher. Marshal failures are dropped:
// event mirroring is best-effort and must never block or fail the
// Action API call that produced the event.
func (s *KafkaEventSink) Publish(evt domain.Event) {
	msg := sinkMessage{Type: evt.Type, PartyID: evt.PartyID, UserID: evt.UserID, Timestamp: evt.Timestamp, Payload: evt.Payload}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	s.producer.Input() <- &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(evt.PartyID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(evt.Type)},
		},
		Timestamp: evt.Timestamp,
	}

	s.mu.Lock()
	s.sent++
	s.mu.Unlock()
}

// Close flushes and shuts down the underlying producer.
func (s *KafkaEventSink) Close() error {
	return s.producer.Close()
}

// FanoutPublisher broadcasts one event to multiple EventPublishers, used
// to wire both the in-process Bus and the optional KafkaEventSink behind
// a single core.EventPublisher.
type FanoutPublisher struct {
	Targets []interface{ Publish(domain.Event) }
}

func (f FanoutPublisher) Publish(evt domain.Event) {
	for _, t := range f.Targets {
		t.Publish(evt)
	}
}
