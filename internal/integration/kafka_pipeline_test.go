//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatherdesk/degreeday/internal/adapter/kafka"
	"github.com/weatherdesk/degreeday/internal/config"
	"github.com/weatherdesk/degreeday/internal/demand"
	"github.com/weatherdesk/degreeday/internal/domain"
	"github.com/weatherdesk/degreeday/internal/observability"
	"github.com/weatherdesk/degreeday/internal/pipeline"
	"github.com/weatherdesk/degreeday/internal/store"
)

const (
	testSourceTopic = "test-fields"
	testSinkTopic   = "test-reports"
)

// readReport reads a single message from the sink consumer.
func readReport(ctx context.Context, t *testing.T, consumer *kafkago.Reader) reportMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return reportMessage{
		Key:     string(msg.Key),
		Value:   msg.Value,
		Headers: headers,
	}
}

// TestKafkaReaderWriter verifies the adapter layer: kafka.Reader (extractor)
// and kafka.Writer (reporter) correctly round-trip a message through Kafka.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("test-reader-%d", time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}

	payload := makeFieldPayload(t, "gfs", "20260114_00z", "2026-01-15", 50)

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	require.NoError(t, producer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte("gfs/20260114_00z/2026-01-15"),
		Value: payload,
	}))

	// Extract via kafka.Reader.
	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned and messages become available.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []domain.RawEvent
	for {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
		if len(batch) > 0 {
			break
		}
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for message from source topic")
		}
	}
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("gfs/20260114_00z/2026-01-15"), raw.Key)
	assert.Equal(t, payload, raw.Value)
	assert.Equal(t, testSourceTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")

	// Commit the offset.
	require.NoError(t, raw.Commit(ctx))

	// Process the raw event into a record and publish it as a report.
	metrics := observability.NewMetricsForTesting()
	processor := pipeline.NewProcessor(demand.DefaultGridSpec().Domain(), nil, discardLogger(), metrics)
	rec, err := processor.Process(ctx, raw)
	require.NoError(t, err)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	require.NoError(t, writer.PublishBatch(ctx, []domain.Report{{
		Kind:    domain.ReportDegreeDay,
		Model:   rec.Model,
		RunID:   rec.RunID,
		Payload: rec,
	}}))

	// Read from the sink topic and verify headers + value.
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	rm := readReport(ctx, t, consumer)
	assert.Equal(t, "gfs/20260114_00z", rm.Key)
	assert.Equal(t, domain.ReportDegreeDay, rm.Headers["kind"])
	assert.Equal(t, "gfs", rm.Headers["model"])
	assert.Equal(t, "20260114_00z", rm.Headers["run_id"])

	got := rm.record(t)
	assert.Equal(t, 50.0, got.MeanTemp)
	assert.Equal(t, 15.0, got.HDD)
	assert.Equal(t, 0.0, got.CDD)
}

// TestPipelineEndToEnd wires the full pipeline (Reader, Processor, Store,
// Writer) with real Kafka and SQLite and verifies that two model runs
// produce degree-day reports and a run-to-run delta.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("test-pipeline-%d", time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}

	// Two runs of the same model, two days each; the later run is colder.
	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	msgs := []kafkago.Message{
		{Key: []byte("a1"), Value: makeFieldPayload(t, "gfs", "20260113_12z", "2026-01-15", 50)},
		{Key: []byte("a2"), Value: makeFieldPayload(t, "gfs", "20260113_12z", "2026-01-16", 50)},
		{Key: []byte("b1"), Value: makeFieldPayload(t, "gfs", "20260114_00z", "2026-01-15", 42)},
		{Key: []byte("b2"), Value: makeFieldPayload(t, "gfs", "20260114_00z", "2026-01-16", 42)},
	}
	require.NoError(t, producer.WriteMessages(ctx, msgs...))

	// Wire up the pipeline.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	recordStore, err := store.Open(filepath.Join(t.TempDir(), "records.db"), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = recordStore.Close() })

	metrics := observability.NewMetricsForTesting()
	processor := pipeline.NewProcessor(demand.DefaultGridSpec().Domain(), nil, discardLogger(), metrics)
	p := pipeline.New(reader, processor, recordStore, writer,
		domain.DefaultComparator(), nil, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	// Read reports from the sink until the run delta arrives.
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	degreeDays := 0
	var delta *domain.RunDelta
	for delta == nil {
		rm := readReport(ctx, t, consumer)
		switch rm.Headers["kind"] {
		case domain.ReportDegreeDay:
			degreeDays++
		case domain.ReportRunDelta:
			var d domain.RunDelta
			require.NoError(t, json.Unmarshal(rm.Value, &d))
			delta = &d
		}
	}

	pipelineCancel()
	require.NoError(t, <-errCh)

	assert.Equal(t, 4, degreeDays, "degree-day report count")
	assert.Equal(t, "20260114_00z", delta.LatestRun)
	assert.Equal(t, "20260113_12z", delta.PrevRun)
	require.Len(t, delta.Entries, 2)
	// 42F vs 50F: +8 HDD per overlapping day.
	assert.InDelta(t, 16.0, delta.Total, 1e-9)

	// Records landed in the store as well.
	recs, err := recordStore.Snapshot(ctx, "gfs")
	require.NoError(t, err)
	assert.Len(t, recs, 4)
}

// TestPipelinePoisonPill verifies that an invalid message is skipped and the
// pipeline continues processing valid messages.
func TestPipelinePoisonPill(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("test-poison-%d", time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		kafkago.Message{Key: []byte("good"), Value: makeFieldPayload(t, "gfs", "20260114_00z", "2026-01-15", 50)},
	))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	recordStore, err := store.Open(filepath.Join(t.TempDir(), "records.db"), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = recordStore.Close() })

	metrics := observability.NewMetricsForTesting()
	processor := pipeline.NewProcessor(demand.DefaultGridSpec().Domain(), nil, discardLogger(), metrics)
	p := pipeline.New(reader, processor, recordStore, writer,
		domain.DefaultComparator(), nil, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	// Only the valid message should produce a report.
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	rm := readReport(ctx, t, consumer)
	assert.Equal(t, domain.ReportDegreeDay, rm.Headers["kind"])
	assert.Equal(t, 15.0, rm.record(t).HDD)

	// Verify no second message arrives (the poison pill was skipped).
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err = consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no second message on sink topic")

	pipelineCancel()
	require.NoError(t, <-errCh)
}
