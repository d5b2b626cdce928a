package export

import (
	"context"

	"github.com/tidwall/sjson"
	"go.uber.org/zap"
)

// OutcomeRecorder reacts to confirmed donations: it merges the CRM
// acknowledgement into the submission's raw data for audit, advances the
// submission to crm_success and flags the order as sent.
type OutcomeRecorder struct {
	Submissions SubmissionStore
	Orders      OrderStore
	Log         *zap.Logger
}

// HandleDonationCreated is subscribed to the event bus.
func (r OutcomeRecorder) HandleDonationCreated(ctx context.Context, event DonationCreatedEvent) error {
	sub, err := r.Submissions.Load(ctx, event.SubmissionID)
	if err != nil {
		return err
	}
	if sub == nil {
		r.Log.Warn("donation confirmed for unknown submission",
			zap.String("submission_id", event.SubmissionID))
		return nil
	}

	if len(event.Ack) > 0 {
		merged, err := sjson.SetRawBytes(sub.Data, "salesforce_response", event.Ack)
		if err != nil {
			r.Log.Warn("failed to merge acknowledgement into submission data",
				zap.String("submission_id", sub.ID), zap.Error(err))
		} else {
			sub.Data = merged
		}
	}

	sub.State = StateCRMSuccess
	sub.ErrorType = ""
	if err := r.Submissions.Save(ctx, sub); err != nil {
		return err
	}

	if sub.OrderID != "" {
		if err := r.Orders.MarkRemoteSent(ctx, sub.OrderID); err != nil {
			r.Log.Warn("failed to flag order as sent to the CRM",
				zap.String("order_id", sub.OrderID), zap.Error(err))
		}
	}
	return nil
}
