package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// Tópicos publicados pelo motor de pedidos
const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusUpdated = "order.status.updated"
	TopicOrderCancelled     = "order.cancelled"
)

// OrderCreated é emitido após o commit da criação do pedido
type OrderCreated struct {
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      string          `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// OrderStatusUpdated é emitido após a atualização de status
type OrderStatusUpdated struct {
	OrderID        string `json:"order_id"`
	OrderNumber    string `json:"order_number"`
	PreviousStatus string `json:"previous_status"`
	NewStatus      string `json:"new_status"`
}

// OrderCancelled é emitido após o cancelamento do pedido
type OrderCancelled struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
}

// Publisher publica eventos fire-and-forget para consumidores externos
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
	Close() error
}

// KafkaPublisher implementa Publisher usando Kafka
type KafkaPublisher struct {
	brokers []string
	writers map[string]*kafka.Writer
}

// NewKafkaPublisher cria um writer por tópico conhecido
func NewKafkaPublisher(brokersCSV string) *KafkaPublisher {
	brokers := []string{}
	for _, b := range strings.Split(brokersCSV, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}

	p := &KafkaPublisher{brokers: brokers, writers: map[string]*kafka.Writer{}}
	for _, topic := range []string{TopicOrderCreated, TopicOrderStatusUpdated, TopicOrderCancelled} {
		p.writers[topic] = &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		}
	}
	return p
}

// Publish serializa o payload e envia a mensagem chaveada pelo pedido
func (p *KafkaPublisher) Publish(ctx context.Context, topic, key string, payload any) error {
	writer, ok := p.writers[topic]
	if !ok {
		return fmt.Errorf("unknown topic: %s", topic)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	return writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now().UTC(),
	})
}

func (p *KafkaPublisher) Close() error {
	for _, w := range p.writers {
		if err := w.Close(); err != nil {
			return err
		}
	}
	return nil
}

// NoopPublisher descarta eventos quando o broker está desabilitado
type NoopPublisher struct{}

func (NoopPublisher) Publish(_ context.Context, topic, key string, _ any) error {
	log.Printf("📭 Kafka disabled, dropping event %s (key=%s)", topic, key)
	return nil
}

func (NoopPublisher) Close() error { return nil }
