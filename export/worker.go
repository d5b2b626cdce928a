package export

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SubmissionStore loads and saves submissions. Load returns (nil, nil)
// when the id does not resolve.
type SubmissionStore interface {
	Load(ctx context.Context, id string) (*Submission, error)
	Save(ctx context.Context, sub *Submission) error
}

// OrderStore resolves the order a submission references, if any.
// LoadForSubmission returns (nil, nil) when there is no order.
type OrderStore interface {
	LoadForSubmission(ctx context.Context, sub *Submission) (*Order, error)
	MarkRemoteSent(ctx context.Context, orderID string) error
}

// QueueItem is one claimed unit of work.
type QueueItem struct {
	ID           int64
	SubmissionID string
	Attempts     int
}

// ErrQueueEmpty is returned by Dequeue when no work is available.
var ErrQueueEmpty = errors.New("queue is empty")

// Queue is the durable work queue the pipeline runs on. Redelivery,
// backoff and dead-lettering are the queue's responsibility; the worker
// only acks or nacks.
type Queue interface {
	Enqueue(ctx context.Context, submissionID string) error
	Dequeue(ctx context.Context) (*QueueItem, error)
	Ack(ctx context.Context, item *QueueItem) error
	Nack(ctx context.Context, item *QueueItem) error
}

// Worker drives one submission id through gate, mapper and submitter.
// It never mutates the submission itself; state feedback happens through
// the outcome event subscribers.
type Worker struct {
	Submissions SubmissionStore
	Orders      OrderStore
	Gate        Gate
	Mapper      Mapper
	Submitter   Submitter
	Log         *zap.Logger
}

// ProcessItem handles one dequeued submission id. A nil return means the
// item is done (successfully exported, skipped, or permanently dropped);
// ErrRetryLater requests redelivery. No other error escapes.
func (w *Worker) ProcessItem(ctx context.Context, id string) error {
	sub, err := w.Submissions.Load(ctx, id)
	if err != nil {
		w.Log.Error("failed to load submission", zap.String("submission_id", id), zap.Error(err))
		return ErrRetryLater
	}
	if sub == nil {
		w.Log.Warn("failed to find a submission when trying to process it, dropped it from the queue",
			zap.String("submission_id", id))
		return nil
	}

	if !w.Gate.Evaluate(sub).Proceedable() {
		return nil
	}

	order, err := w.Orders.LoadForSubmission(ctx, sub)
	if err != nil {
		// Attribution and payment channel degrade to defaults without
		// an order; the donation itself is still exportable.
		w.Log.Warn("failed to load order for submission",
			zap.String("submission_id", id), zap.Error(err))
		order = nil
	}

	payload := w.Mapper.Map(sub, order)
	if payload == nil {
		w.Log.Info("no mapping rule for submission, nothing to submit",
			zap.String("submission_id", id),
			zap.String("order_type", sub.Field("order_type")))
		return nil
	}

	meta := Meta{SubmissionID: sub.ID, Kind: sub.Kind(), Data: sub.Data}
	if _, err := w.Submitter.Submit(ctx, payload, meta); err != nil {
		if errors.Is(err, ErrRetryLater) {
			return err
		}
		w.Log.Error("dropping submission after terminal submit failure",
			zap.String("submission_id", id), zap.Error(err))
		return nil
	}
	return nil
}

// Run pulls items from the queue until the context is cancelled,
// sleeping for poll between empty polls.
func (w *Worker) Run(ctx context.Context, queue Queue, poll time.Duration) {
	for {
		item, err := queue.Dequeue(ctx)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return
		case errors.Is(err, ErrQueueEmpty):
			select {
			case <-ctx.Done():
				return
			case <-time.After(poll):
			}
			continue
		case err != nil:
			w.Log.Error("failed to dequeue work item", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(poll):
			}
			continue
		}

		if err := w.ProcessItem(ctx, item.SubmissionID); errors.Is(err, ErrRetryLater) {
			if err := queue.Nack(ctx, item); err != nil {
				w.Log.Error("failed to nack work item", zap.Int64("item_id", item.ID), zap.Error(err))
			}
			continue
		}
		if err := queue.Ack(ctx, item); err != nil {
			w.Log.Error("failed to ack work item", zap.Int64("item_id", item.ID), zap.Error(err))
		}
	}
}

// RunPool runs n workers over the same queue and blocks until all stop.
func (w *Worker) RunPool(ctx context.Context, queue Queue, n int, poll time.Duration) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx, queue, poll)
		}()
	}
	wg.Wait()
}
