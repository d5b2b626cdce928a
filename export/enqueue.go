package export

import (
	"context"

	"go.uber.org/zap"
)

// Trigger decides whether a saved submission should be queued for
// export. The decision table mirrors the form lifecycle: submissions
// going through remote e-signing are queued once the mandate is signed
// (or pushed unsigned for interest-only and paper flows); everything
// else is queued exactly once, on creation.
type Trigger struct {
	Queue  Queue
	Orders OrderStore
	Log    *zap.Logger
}

// OnPostSave reacts to a submission being created or updated.
func (t Trigger) OnPostSave(ctx context.Context, sub *Submission, update bool) error {
	// Skip submissions already processed successfully.
	if sub.State == StateCRMSuccess {
		return nil
	}

	enqueue := false
	if sub.HasESignCase() {
		// Monthly subscriptions are queued on update, once signing has
		// progressed far enough.
		if update {
			order, err := t.Orders.LoadForSubmission(ctx, sub)
			if err != nil {
				t.Log.Warn("failed to load order while queueing submission",
					zap.String("submission_id", sub.ID), zap.Error(err))
			}
			switch {
			case order != nil && order.SubscriptionPaymentType == "paper":
				// Signing on paper carries no e-sign progress; push as is.
				enqueue = true
			case sub.State == StateSigned, sub.State == StateMissingBankSigned,
				sub.State == StateMissingBankInterestQueued:
				enqueue = true
			}
		}
	} else if !update {
		enqueue = true
	}

	if !enqueue {
		return nil
	}
	t.Log.Info("queueing submission for Salesforce export",
		zap.String("submission_id", sub.ID), zap.String("state", string(sub.State)))
	return t.Queue.Enqueue(ctx, sub.ID)
}
