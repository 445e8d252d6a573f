package producers

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/akaushal/resinet/internal/models"
)

// SaramaProducer publishes simulation output to Kafka, one topic per record
// stream. Sends are synchronous so a broker failure surfaces as an export
// error instead of silent loss of run results.
type SaramaProducer struct {
	producer sarama.SyncProducer
}

func NewSaramaProducer(cfg *models.Config) (*SaramaProducer, error) {
	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 5
	sc.Producer.Retry.Backoff = 100 * time.Millisecond
	sc.Producer.Return.Successes = true // required by SyncProducer

	timeout := 30 * time.Second
	if cfg.SessionTimeoutMs > 0 {
		timeout = time.Duration(cfg.SessionTimeoutMs) * time.Millisecond
	}
	sc.Net.DialTimeout = timeout
	sc.Net.ReadTimeout = timeout
	sc.Net.WriteTimeout = timeout

	brokers := strings.Split(cfg.KafkaBrokerList, ",")
	p, err := sarama.NewSyncProducer(brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("connect to kafka %v: %w", brokers, err)
	}
	log.Printf("kafka producer connected to %v", brokers)
	return &SaramaProducer{producer: p}, nil
}

func (s *SaramaProducer) WriteMessage(topic string, msg []byte) error {
	_, _, err := s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(msg),
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (s *SaramaProducer) Close() error {
	return s.producer.Close()
}
