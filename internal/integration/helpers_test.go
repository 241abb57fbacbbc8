//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"strconv"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/weatherdesk/degreeday/internal/domain"
)

// startKafka launches a single-broker Kafka container and returns its
// bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("degreeday-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve kafka brokers")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "resolve controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// makeFieldPayload serializes a uniform 2x2 fahrenheit field over a CONUS
// sub-grid.
func makeFieldPayload(t *testing.T, model, runID, date string, temp float64) []byte {
	t.Helper()
	payload := map[string]any{
		"model":  model,
		"run_id": runID,
		"date":   date,
		"unit":   "F",
		"lats":   []float64{40, 41},
		"lons":   []float64{265, 266},
		"values": [][]float64{{temp, temp}, {temp, temp}},
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return data
}

// reportMessage holds a deserialized message read from the sink topic.
type reportMessage struct {
	Key     string
	Value   []byte
	Headers map[string]string
}

func (m reportMessage) record(t *testing.T) domain.DegreeDayRecord {
	t.Helper()
	var rec domain.DegreeDayRecord
	require.NoError(t, json.Unmarshal(m.Value, &rec), "unmarshal degree-day report")
	return rec
}
