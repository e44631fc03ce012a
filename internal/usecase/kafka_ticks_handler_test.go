package usecase

import (
	"context"
	"strconv"
	"testing"
	"time"
)

func TestKafkaTicksHandlerStoresDecodedTick(t *testing.T) {
	store := &memTickStore{}
	m := &countMetrics{}
	h := NewKafkaTicksHandler("coinscope.ticks", store, nil, m)

	msg := []byte(`{"symbol":"BTC","t":1710064800,"c":64250.5,"v":0.25}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if store.stored() != 1 {
		t.Fatalf("stored = %d, want 1", store.stored())
	}
	if m.sent != 1 {
		t.Fatalf("sent = %d, want 1", m.sent)
	}
	if store.last.Symbol != "BTC" || store.last.Source != "kafka" {
		t.Fatalf("stored tick = %+v", store.last)
	}
}

func TestKafkaTicksHandlerNormalizesMilliseconds(t *testing.T) {
	store := &memTickStore{}
	h := NewKafkaTicksHandler("coinscope.ticks", store, nil, &countMetrics{})

	when := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	msg := []byte(`{"symbol":"ETH","t":` + strconv.FormatInt(when.UnixMilli(), 10) + `,"c":3500,"v":1}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if store.last.Timestamp != when.Unix() {
		t.Fatalf("timestamp = %d, want seconds %d", store.last.Timestamp, when.Unix())
	}
}

func TestKafkaTicksHandlerRejectsGarbage(t *testing.T) {
	store := &memTickStore{}
	m := &countMetrics{}
	h := NewKafkaTicksHandler("coinscope.ticks", store, nil, m)

	if err := h.Handle(context.Background(), []byte("not json")); err == nil {
		t.Fatal("expected decode error")
	}
	if store.stored() != 0 {
		t.Fatalf("stored = %d, want 0", store.stored())
	}
	if m.errCount("consumer_unmarshal") != 1 {
		t.Fatalf("unmarshal errors = %d", m.errCount("consumer_unmarshal"))
	}
}
