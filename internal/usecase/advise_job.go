package usecase

import (
	"context"
	"errors"

	applogger "CoinScope/pkg/logger"
	"CoinScope/pkg/queue"
)

// AdviseMessageType is the queue message type carrying advisory jobs.
const AdviseMessageType = "advise.generate"

// AdvisePayload is the queue payload for one advisory job.
type AdvisePayload struct {
	Symbol string `json:"symbol"`
}

// AdviseJob executes queued advisory requests. A run skipped because the
// symbol's lock is held counts as success so the queue does not retry it.
type AdviseJob struct {
	uc *AdvisoryUseCase
	l  *applogger.Logger
}

func NewAdviseJob(uc *AdvisoryUseCase, l *applogger.Logger) *AdviseJob {
	return &AdviseJob{uc: uc, l: l}
}

func (j *AdviseJob) Name() string { return "advise-generate" }
func (j *AdviseJob) Type() string { return AdviseMessageType }

func (j *AdviseJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[AdvisePayload](payload)
	if err != nil {
		return err
	}
	advice, err := j.uc.Advise(ctx, p.Symbol)
	if err != nil {
		if errors.Is(err, ErrAdviceInProgress) {
			if j.l != nil {
				j.l.Info("advise job skipped, lock held", applogger.String("symbol", p.Symbol))
			}
			return nil
		}
		return err
	}
	if j.l != nil {
		j.l.Debug("advise job done",
			applogger.String("symbol", advice.Symbol),
			applogger.String("action", advice.Action),
		)
	}
	return nil
}

var _ queue.Job = (*AdviseJob)(nil)

// EnqueueAdviceJobs queues one advisory job per symbol.
func EnqueueAdviceJobs(ctx context.Context, q *queue.RedisQueue, symbols []string) error {
	var firstErr error
	for _, sym := range symbols {
		if err := q.Enqueue(ctx, AdviseMessageType, AdvisePayload{Symbol: sym}); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
