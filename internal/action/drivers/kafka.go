package drivers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	kafka "github.com/segmentio/kafka-go"

	"github.com/sctg-development/photoacoustic-core/internal/action"
)

// KafkaDriver produces JSON-encoded update/alert/clear events to a
// configured topic, keyed by event type, for scalable downstream
// stream processing.
type KafkaDriver struct {
	brokers []string
	topic   string

	mu     sync.RWMutex
	writer *kafka.Writer
}

// NewKafkaDriver builds a KafkaDriver producing to topic on brokers.
func NewKafkaDriver(brokers []string, topic string) *KafkaDriver {
	return &KafkaDriver{brokers: brokers, topic: topic}
}

func (d *KafkaDriver) Initialize(ctx context.Context) error {
	d.mu.Lock()
	d.writer = &kafka.Writer{
		Addr:                   kafka.TCP(d.brokers...),
		Topic:                  d.topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	d.mu.Unlock()
	return nil
}

func (d *KafkaDriver) write(ctx context.Context, key string, payload any) error {
	d.mu.RLock()
	writer := d.writer
	d.mu.RUnlock()
	if writer == nil {
		return fmt.Errorf("kafka driver: not initialized")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("kafka driver: marshaling payload: %w", err)
	}

	return writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: body})
}

func (d *KafkaDriver) UpdateAction(ctx context.Context, data action.MeasurementData) error {
	return d.write(ctx, "update", map[string]any{
		"concentration_ppm": data.ConcentrationPPM,
		"peak_frequency_hz": data.PeakFrequencyHz,
		"peak_amplitude":    data.PeakAmplitude,
		"source":            data.Source,
		"timestamp":         data.Timestamp.UTC(),
	})
}

func (d *KafkaDriver) ShowAlert(ctx context.Context, alert action.AlertData) error {
	return d.write(ctx, "alert", map[string]any{
		"type":      alert.Type,
		"severity":  alert.Severity,
		"message":   alert.Message,
		"timestamp": alert.Timestamp.UTC(),
		"meta":      alert.Meta,
	})
}

func (d *KafkaDriver) ClearAction(ctx context.Context) error {
	return d.write(ctx, "clear", map[string]any{"event": "clear"})
}

func (d *KafkaDriver) GetStatus(ctx context.Context) (map[string]any, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return map[string]any{
		"driver_type": d.DriverType(),
		"brokers":     d.brokers,
		"topic":       d.topic,
		"connected":   d.writer != nil,
	}, nil
}

func (d *KafkaDriver) DriverType() string { return "kafka" }

func (d *KafkaDriver) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.writer == nil {
		return nil
	}
	err := d.writer.Close()
	d.writer = nil
	return err
}
