package messaging

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/athebyme/gomarket-seeder/pkg/interfaces"
	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/google/uuid"
)

// KafkaConfig параметры продюсера
type KafkaConfig struct {
	Brokers  []string
	ClientID string
}

// KafkaMessaging реализация MessagingPort на Kafka (только отправка)
type KafkaMessaging struct {
	producer *kafka.Producer
	logger   interfaces.LoggerPort
	done     chan struct{}
}

var _ interfaces.MessagingPort = (*KafkaMessaging)(nil)

// NewKafkaMessaging создает продюсера и запускает чтение отчетов о доставке
func NewKafkaMessaging(cfg KafkaConfig, logger interfaces.LoggerPort) (*KafkaMessaging, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "gomarket-seeder"
	}
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": strings.Join(cfg.Brokers, ","),
		"client.id":         clientID,
		"acks":              "all",
		"retries":           5,
		"retry.backoff.ms":  500,
		"linger.ms":         10,
		"message.max.bytes": 1000000,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Kafka producer: %w", err)
	}

	k := &KafkaMessaging{producer: producer, logger: logger, done: make(chan struct{})}
	go k.deliveryReports()
	return k, nil
}

// deliveryReports пишет в журнал сообщения, которые не удалось доставить
func (k *KafkaMessaging) deliveryReports() {
	defer close(k.done)
	for ev := range k.producer.Events() {
		switch e := ev.(type) {
		case *kafka.Message:
			if e.TopicPartition.Error != nil {
				k.logger.Warn("Событие не доставлено в Kafka",
					interfaces.LogField{Key: "topic", Value: topicName(e)},
					interfaces.LogField{Key: "error", Value: e.TopicPartition.Error.Error()})
			}
		case kafka.Error:
			k.logger.Warn("Ошибка Kafka", interfaces.LogField{Key: "error", Value: e.Error()})
		}
	}
}

func topicName(m *kafka.Message) string {
	if m.TopicPartition.Topic == nil {
		return ""
	}
	return *m.TopicPartition.Topic
}

// newKafkaMessage собирает сообщение со служебными заголовками
func newKafkaMessage(topic, key string, value []byte, runID string) *kafka.Message {
	headers := []kafka.Header{
		{Key: "message_id", Value: []byte(uuid.NewString())},
		{Key: "timestamp", Value: []byte(strconv.FormatInt(time.Now().UnixNano(), 10))},
	}
	if runID != "" {
		headers = append(headers, kafka.Header{Key: "run_id", Value: []byte(runID)})
	}

	var keyBytes []byte
	if key != "" {
		keyBytes = []byte(key)
	}
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            keyBytes,
		Value:          value,
		Headers:        headers,
	}
}

// Publish ставит сообщение в очередь продюсера
func (k *KafkaMessaging) Publish(ctx context.Context, topic, key string, message []byte) error {
	runID, _ := interfaces.RunIDFromContext(ctx)
	if err := k.producer.Produce(newKafkaMessage(topic, key, message, runID), nil); err != nil {
		return fmt.Errorf("ошибка отправки в топик %s: %w", topic, err)
	}
	return nil
}

// Flush ждет доставки; возвращает число неотправленных сообщений
func (k *KafkaMessaging) Flush(timeout time.Duration) int {
	return k.producer.Flush(int(timeout.Milliseconds()))
}

func (k *KafkaMessaging) Close() error {
	if left := k.Flush(15 * time.Second); left > 0 {
		k.logger.Warn("Не все события отправлены в Kafka", interfaces.LogField{Key: "pending", Value: left})
	}
	k.producer.Close()
	<-k.done
	return nil
}
