package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/weatherdesk/degreeday/internal/config"
	"github.com/weatherdesk/degreeday/internal/domain"
)

// Writer produces report messages to a Kafka topic.
// It implements pipeline.Reporter.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishBatch serializes and publishes reports to the sink topic in a
// single WriteMessages call. Messages are keyed model/run so every report
// for one run lands on the same partition, in order.
func (w *Writer) PublishBatch(ctx context.Context, reports []domain.Report) error {
	if len(reports) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(reports))
	for i := range reports {
		msg, err := serializeToMessage(reports[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Report into a Kafka message.
func serializeToMessage(report domain.Report) (kafkago.Message, error) {
	data, err := json.Marshal(report.Payload)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s report: %w", report.Kind, err)
	}
	return kafkago.Message{
		Key:   []byte(report.Model + "/" + report.RunID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(report.Kind)},
			{Key: "model", Value: []byte(report.Model)},
			{Key: "run_id", Value: []byte(report.RunID)},
		},
	}, nil
}
