// Package store provides the gorm-backed implementations of the
// collaborator interfaces the export pipeline depends on: the
// submission and order stores and the durable work queue.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/digitalist-se/unhcr-salesforce/export"
)

// Submission is the database row behind export.Submission.
type Submission struct {
	ID        string `gorm:"primaryKey"`
	State     string `gorm:"index"`
	ErrorType string
	Campaign  string
	Recruiter string
	Data      datatypes.JSON
	OrderID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Submission) TableName() string { return "unhcr_form_submissions" }

// Order is the database row behind export.Order.
type Order struct {
	ID                      string `gorm:"primaryKey"`
	PaymentGateway          string
	SubscriptionPaymentType string
	UTMSource               string
	UTMMedium               string
	UTMCampaign             string
	UTMContent              string
	UTMTerm                 string
	Items                   datatypes.JSON
	RemoteSent              bool
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func (Order) TableName() string { return "commerce_orders" }

// AutoMigrate creates or updates the tables this package owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Submission{}, &Order{}, &queueItem{})
}

// Submissions loads and saves submissions.
type Submissions struct {
	db *gorm.DB
}

func NewSubmissions(db *gorm.DB) *Submissions {
	return &Submissions{db: db}
}

// Load returns (nil, nil) when the id does not resolve.
func (s *Submissions) Load(ctx context.Context, id string) (*export.Submission, error) {
	var row Submission
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &export.Submission{
		ID:        row.ID,
		State:     export.State(row.State),
		ErrorType: export.ErrorType(row.ErrorType),
		Campaign:  row.Campaign,
		Recruiter: row.Recruiter,
		Data:      json.RawMessage(row.Data),
		OrderID:   row.OrderID,
	}, nil
}

// Save upserts the submission. Only the mutable columns are written on
// conflict, so created_at keeps the original insertion time.
func (s *Submissions) Save(ctx context.Context, sub *export.Submission) error {
	row := Submission{
		ID:        sub.ID,
		State:     string(sub.State),
		ErrorType: string(sub.ErrorType),
		Campaign:  sub.Campaign,
		Recruiter: sub.Recruiter,
		Data:      datatypes.JSON(sub.Data),
		OrderID:   sub.OrderID,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"state", "error_type", "campaign", "recruiter", "data", "order_id", "updated_at",
		}),
	}).Create(&row).Error
}

// Orders resolves the order a submission references.
type Orders struct {
	db *gorm.DB
}

func NewOrders(db *gorm.DB) *Orders {
	return &Orders{db: db}
}

// LoadForSubmission follows the submission's order reference, falling
// back to the order id captured in the raw form data. Returns (nil, nil)
// when the submission has no order.
func (o *Orders) LoadForSubmission(ctx context.Context, sub *export.Submission) (*export.Order, error) {
	id := sub.OrderID
	if id == "" {
		id = sub.Field("order_id")
	}
	if id == "" {
		return nil, nil
	}

	var row Order
	err := o.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var items []export.OrderItem
	if len(row.Items) > 0 {
		if err := json.Unmarshal(row.Items, &items); err != nil {
			return nil, err
		}
	}
	return &export.Order{
		ID:                      row.ID,
		PaymentGateway:          row.PaymentGateway,
		SubscriptionPaymentType: row.SubscriptionPaymentType,
		Attribution: export.Attribution{
			Source:   row.UTMSource,
			Medium:   row.UTMMedium,
			Campaign: row.UTMCampaign,
			Content:  row.UTMContent,
			Term:     row.UTMTerm,
		},
		Items:      items,
		RemoteSent: row.RemoteSent,
	}, nil
}

// MarkRemoteSent flags the order as mirrored to the CRM.
func (o *Orders) MarkRemoteSent(ctx context.Context, orderID string) error {
	return o.db.WithContext(ctx).
		Model(&Order{}).
		Where("id = ?", orderID).
		Update("remote_sent", true).Error
}
