package export

import "go.uber.org/zap"

// Decision is the eligibility gate's verdict for one submission.
type Decision int

const (
	// Proceed means the submission should be exported now.
	Proceed Decision = iota
	// SkipAlreadySent means a previous export succeeded; the item is
	// dropped without contacting the CRM.
	SkipAlreadySent
	// SkipPermanentError means the submission errored in a way that
	// retrying cannot fix.
	SkipPermanentError
	// SkipIneligibleState means the lifecycle state does not allow
	// export; unexpected states land here too.
	SkipIneligibleState
)

// Proceedable reports whether the export should go ahead.
func (d Decision) Proceedable() bool { return d == Proceed }

// Gate decides from the lifecycle state alone whether a submission may
// be exported. Every outcome logs a diagnostic carrying the submission
// id and state; that log channel is the gate's only side effect.
type Gate struct {
	// PushUnsignedInterest exports interest-only submissions
	// (missing_bank_interest_queued) without bank details.
	PushUnsignedInterest bool

	Log *zap.Logger
}

// Evaluate applies the state decision table to one submission.
func (g Gate) Evaluate(sub *Submission) Decision {
	log := g.Log.With(zap.String("submission_id", sub.ID), zap.String("state", string(sub.State)))
	switch sub.State {
	case StateSigned:
		log.Info("sending submission to Salesforce")
		return Proceed

	case StateMissingBankSigned:
		log.Info("sending submission bank details continuation to Salesforce")
		return Proceed

	case StateMissingBankInterestQueued:
		if !g.PushUnsignedInterest {
			log.Warn("interest-only push disabled, skipping submission")
			return SkipIneligibleState
		}
		log.Info("sending submission to Salesforce without bank details")
		return Proceed

	case StateCreatedBisnode, StateMissingBankInterestCreated:
		log.Warn("submission was already sent to Salesforce, skipping")
		return SkipAlreadySent

	case StateError:
		if sub.ErrorType == ErrorTypeCommunication {
			log.Info("retrying previously errored submission")
			return Proceed
		}
		log.Error("submission is in a permanent error state, will not retry",
			zap.String("error_type", string(sub.ErrorType)))
		return SkipPermanentError

	default:
		log.Error("submission is in the wrong state to be sent to Salesforce, skipping")
		return SkipIneligibleState
	}
}
