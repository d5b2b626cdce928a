package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/digitalist-se/unhcr-salesforce/export"
)

func testQueue(t *testing.T, now *time.Time) *Queue {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatal(err)
	}
	return &Queue{
		DB:          testDB(t),
		GenID:       node,
		Now:         func() time.Time { return *now },
		MaxAttempts: 3,
		RetryDelay:  time.Minute,
	}
}

func TestQueueDeliversInOrder(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	queue := testQueue(t, &now)

	for _, id := range []string{"sub-1", "sub-2", "sub-3"} {
		if err := queue.Enqueue(ctx, id); err != nil {
			t.Fatal(err)
		}
	}

	for _, want := range []string{"sub-1", "sub-2", "sub-3"} {
		item, err := queue.Dequeue(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if item.SubmissionID != want {
			t.Errorf("dequeued %s, want %s", item.SubmissionID, want)
		}
		if item.Attempts != 1 {
			t.Errorf("attempts = %d, want 1", item.Attempts)
		}
		if err := queue.Ack(ctx, item); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := queue.Dequeue(ctx); !errors.Is(err, export.ErrQueueEmpty) {
		t.Errorf("err = %v, want ErrQueueEmpty", err)
	}
}

func TestQueueClaimedItemIsInvisible(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	queue := testQueue(t, &now)

	if err := queue.Enqueue(ctx, "sub-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := queue.Dequeue(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := queue.Dequeue(ctx); !errors.Is(err, export.ErrQueueEmpty) {
		t.Errorf("claimed item should not be redelivered, err = %v", err)
	}
}

func TestQueueNackRedeliversAfterDelay(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	queue := testQueue(t, &now)

	if err := queue.Enqueue(ctx, "sub-1"); err != nil {
		t.Fatal(err)
	}
	item, err := queue.Dequeue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := queue.Nack(ctx, item); err != nil {
		t.Fatal(err)
	}

	// Not yet visible inside the retry delay.
	if _, err := queue.Dequeue(ctx); !errors.Is(err, export.ErrQueueEmpty) {
		t.Fatalf("nacked item redelivered too early, err = %v", err)
	}

	now = now.Add(2 * time.Minute)
	item, err = queue.Dequeue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if item.SubmissionID != "sub-1" {
		t.Errorf("redelivered %s", item.SubmissionID)
	}
	if item.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", item.Attempts)
	}
}

func TestQueueDeadLettersAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	queue := testQueue(t, &now)

	if err := queue.Enqueue(ctx, "sub-1"); err != nil {
		t.Fatal(err)
	}

	for attempt := 1; attempt <= queue.MaxAttempts; attempt++ {
		item, err := queue.Dequeue(ctx)
		if err != nil {
			t.Fatalf("attempt %d: %v", attempt, err)
		}
		if item.Attempts != attempt {
			t.Errorf("attempt %d reported as %d", attempt, item.Attempts)
		}
		if err := queue.Nack(ctx, item); err != nil {
			t.Fatal(err)
		}
		now = now.Add(2 * time.Minute)
	}

	// The item is parked, not redelivered.
	if _, err := queue.Dequeue(ctx); !errors.Is(err, export.ErrQueueEmpty) {
		t.Errorf("dead item redelivered, err = %v", err)
	}

	var row queueItem
	if err := queue.DB.First(&row).Error; err != nil {
		t.Fatal(err)
	}
	if row.Status != statusDead {
		t.Errorf("status = %s, want %s", row.Status, statusDead)
	}
	if row.Attempts != queue.MaxAttempts {
		t.Errorf("attempts = %d, want %d", row.Attempts, queue.MaxAttempts)
	}
}

func TestQueueAckRemovesItem(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	queue := testQueue(t, &now)

	if err := queue.Enqueue(ctx, "sub-1"); err != nil {
		t.Fatal(err)
	}
	item, err := queue.Dequeue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := queue.Ack(ctx, item); err != nil {
		t.Fatal(err)
	}

	var count int64
	if err := queue.DB.Model(&queueItem{}).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("queue table has %d rows after ack, want 0", count)
	}
}
