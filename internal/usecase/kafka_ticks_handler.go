package usecase

import (
	"context"
	"encoding/json"
	"time"

	"CoinScope/internal/domain/models"
	domrepo "CoinScope/internal/domain/repository"
	pkgkafka "CoinScope/pkg/kafka"
)

// KafkaTicksHandler is the consumer half of the kafka ingestion backend:
// it decodes topic messages, stores the ticks and feeds the bar builder.
type KafkaTicksHandler struct {
	topic   string
	store   domrepo.TickStore
	builder *BarBuilder
	metrics domrepo.Metrics
}

func NewKafkaTicksHandler(topic string, store domrepo.TickStore, builder *BarBuilder, metrics domrepo.Metrics) *KafkaTicksHandler {
	return &KafkaTicksHandler{topic: topic, store: store, builder: builder, metrics: metrics}
}

func (h *KafkaTicksHandler) Topic() string { return h.topic }

func (h *KafkaTicksHandler) Handle(ctx context.Context, b []byte) error {
	var m models.TickMessage
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.T > 1e11 {
		m.T /= 1000 // producer sent milliseconds
	}
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(m.T, 0)).Seconds())

	tick := &models.Tick{
		Symbol:    m.Symbol,
		Timestamp: m.T,
		Price:     m.C,
		Volume:    m.V,
		Source:    "kafka",
	}

	start := time.Now()
	if err := h.store.Store(ctx, tick); err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	h.metrics.RecordMessageSent("clickhouse", m.Symbol)

	if h.builder != nil {
		if err := h.builder.Add(ctx, tick); err != nil {
			h.metrics.RecordError("consumer_bar_build")
			return err
		}
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaTicksHandler)(nil)
