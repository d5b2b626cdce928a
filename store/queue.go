package store

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/digitalist-se/unhcr-salesforce/export"
)

const (
	statusPending = "pending"
	statusClaimed = "claimed"
	statusDead    = "dead"
)

type queueItem struct {
	ID           int64 `gorm:"primaryKey;autoIncrement:false"`
	SubmissionID string
	Status       string `gorm:"index"`
	Attempts     int
	AvailableAt  time.Time
	ClaimedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (queueItem) TableName() string { return "salesforce_queue" }

// Queue is a durable work queue over a database table. Items are
// redelivered after RetryDelay when nacked; after MaxAttempts they are
// parked as dead instead of redelivered.
type Queue struct {
	DB          *gorm.DB
	GenID       *snowflake.Node
	Now         func() time.Time
	MaxAttempts int
	RetryDelay  time.Duration
}

// Enqueue adds a submission id as a pending work item.
func (q *Queue) Enqueue(ctx context.Context, submissionID string) error {
	now := q.Now()
	return q.DB.WithContext(ctx).Create(&queueItem{
		ID:           q.GenID.Generate().Int64(),
		SubmissionID: submissionID,
		Status:       statusPending,
		AvailableAt:  now,
	}).Error
}

// Dequeue claims the oldest available item, or export.ErrQueueEmpty.
func (q *Queue) Dequeue(ctx context.Context) (*export.QueueItem, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var row queueItem
		err := q.DB.WithContext(ctx).
			Where("status = ? AND available_at <= ?", statusPending, q.Now()).
			Order("id").
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, export.ErrQueueEmpty
		}
		if err != nil {
			return nil, err
		}

		now := q.Now()
		res := q.DB.WithContext(ctx).
			Model(&queueItem{}).
			Where("id = ? AND status = ?", row.ID, statusPending).
			Updates(map[string]interface{}{
				"status":     statusClaimed,
				"attempts":   row.Attempts + 1,
				"claimed_at": &now,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			// Another worker claimed it first, look for the next one.
			continue
		}
		return &export.QueueItem{
			ID:           row.ID,
			SubmissionID: row.SubmissionID,
			Attempts:     row.Attempts + 1,
		}, nil
	}
}

// Ack removes a completed item.
func (q *Queue) Ack(ctx context.Context, item *export.QueueItem) error {
	return q.DB.WithContext(ctx).Delete(&queueItem{}, "id = ?", item.ID).Error
}

// Nack schedules the item for redelivery, or parks it as dead once it
// has exhausted its attempts.
func (q *Queue) Nack(ctx context.Context, item *export.QueueItem) error {
	if q.MaxAttempts > 0 && item.Attempts >= q.MaxAttempts {
		return q.DB.WithContext(ctx).
			Model(&queueItem{}).
			Where("id = ?", item.ID).
			Update("status", statusDead).Error
	}
	return q.DB.WithContext(ctx).
		Model(&queueItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"status":       statusPending,
			"available_at": q.Now().Add(q.RetryDelay),
		}).Error
}
