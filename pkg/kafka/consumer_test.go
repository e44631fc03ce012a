package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type stubHandler struct{ topic string }

func (s stubHandler) Topic() string { return s.topic }

func (s stubHandler) Handle(context.Context, []byte) error { return nil }

func TestNewConsumerRequiresBrokers(t *testing.T) {
	if _, err := NewConsumer(); err == nil {
		t.Fatal("expected an error without brokers")
	}
}

func TestNewConsumerDefaultsAndOverrides(t *testing.T) {
	SetConsumerMetricsRegisterer(prometheus.NewRegistry())

	c, err := NewConsumer(WithConsumerBrokers([]string{"localhost:9092"}))
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	if c.cfg.GroupID != "default" || c.cfg.AutoOffsetReset != "earliest" {
		t.Fatalf("unexpected defaults: %+v", c.cfg)
	}

	c, err = NewConsumer(
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerAutoOffsetReset("latest"),
		WithConsumerBufferSize(3),
	)
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	if c.cfg.AutoOffsetReset != "latest" {
		t.Fatalf("offset reset override lost: %q", c.cfg.AutoOffsetReset)
	}
	if cap(c.queue) != 3 {
		t.Fatalf("queue cap = %d, want 3", cap(c.queue))
	}
}

func TestRegisterHandlerIgnoresDuplicates(t *testing.T) {
	SetConsumerMetricsRegisterer(prometheus.NewRegistry())
	c, err := NewConsumer(WithConsumerBrokers([]string{"localhost:9092"}))
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	c.RegisterHandler(stubHandler{topic: "ticks"})
	c.RegisterHandler(stubHandler{topic: "ticks"})
	if len(c.handlers) != 1 {
		t.Fatalf("expected one handler, got %d", len(c.handlers))
	}
}

func TestBackoffWithJitterBounds(t *testing.T) {
	min, max := 50*time.Millisecond, 2*time.Second
	for attempt := 1; attempt <= 8; attempt++ {
		exp := min * time.Duration(1<<uint(attempt-1))
		if exp > max {
			exp = max
		}
		for i := 0; i < 20; i++ {
			d := backoffWithJitter(min, max, attempt)
			if d <= 0 || d > exp {
				t.Fatalf("attempt %d: backoff %v outside (0, %v]", attempt, d, exp)
			}
			if d*2 < exp {
				t.Fatalf("attempt %d: backoff %v jittered below half of %v", attempt, d, exp)
			}
		}
	}
}

func TestPartitionLockIdentity(t *testing.T) {
	SetConsumerMetricsRegisterer(prometheus.NewRegistry())
	c, err := NewConsumer(WithConsumerBrokers([]string{"localhost:9092"}))
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	a := c.partitionLock("ticks", 0)
	if c.partitionLock("ticks", 0) != a {
		t.Fatal("same partition should reuse its lock")
	}
	if c.partitionLock("ticks", 1) == a || c.partitionLock("bars", 0) == a {
		t.Fatal("distinct partitions should get distinct locks")
	}
}
