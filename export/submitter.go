package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/carlmjohnson/requests"
	"go.uber.org/zap"
)

// ErrRetryLater signals that an export attempt failed on the remote
// side and the work item should be redelivered by the queue.
var ErrRetryLater = errors.New("salesforce error, try this one again later")

// crmDataPath is the Give Clarity bulk data endpoint.
const crmDataPath = "/services/apexrest/gcis/v1/data"

// APIError is one field or record error returned by the CRM.
type APIError struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// Ack is the CRM's acknowledgement of a create call. Errors is non-empty
// when the CRM rejected part of the payload.
type Ack struct {
	Raw    json.RawMessage
	Errors []APIError
}

// CRMClient is the narrow transport interface the submitter depends on.
type CRMClient interface {
	CreateDonation(ctx context.Context, payload *Payload) (*Ack, error)
}

// GiveClarityClient sends export payloads to the Give Clarity Salesforce
// endpoint.
type GiveClarityClient struct {
	Settings APISettings
}

func (c GiveClarityClient) apiBuilder() *requests.Builder {
	return requests.
		URL(c.Settings.Endpoint).
		Client(&http.Client{Timeout: HTTPRequestTimeout})
}

// CreateDonation PUTs the payload to the bulk data endpoint and decodes
// the acknowledgement envelope.
func (c GiveClarityClient) CreateDonation(ctx context.Context, payload *Payload) (*Ack, error) {
	var buf bytes.Buffer
	err := c.apiBuilder().
		Path(crmDataPath).
		Header("Authorization", "Bearer "+c.Settings.Key).
		Put().
		BodyJSON(payload).
		ToBytesBuffer(&buf).
		Fetch(ctx)
	if err != nil {
		return nil, err
	}

	ack := Ack{Raw: append([]byte(nil), buf.Bytes()...)}
	var envelope struct {
		Errors []APIError `json:"errors"`
	}
	if err := json.Unmarshal(ack.Raw, &envelope); err != nil {
		return nil, fmt.Errorf("malformed salesforce response %w", err)
	}
	ack.Errors = envelope.Errors
	return &ack, nil
}

// Meta travels with a submit call so the outcome event can identify the
// submission without another lookup.
type Meta struct {
	SubmissionID string
	Kind         DonationKind
	Data         json.RawMessage
}

// Submitter sends a mapped payload to the CRM, classifies the response
// and publishes the outcome. All failures are treated as transient and
// reported as ErrRetryLater; the original cause is kept in the logs only.
type Submitter struct {
	Client CRMClient
	Bus    EventBus
	Log    *zap.Logger
}

// Submit performs one synchronous create call. The outcome event is
// published only after the remote call is confirmed successful and is
// never retried.
func (s Submitter) Submit(ctx context.Context, payload *Payload, meta Meta) (*Ack, error) {
	if err := payload.Validate(); err != nil {
		s.Log.Error("refusing to submit invalid payload",
			zap.String("submission_id", meta.SubmissionID),
			zap.Error(err))
		return nil, fmt.Errorf("invalid payload for submission %s: %w", meta.SubmissionID, err)
	}

	ack, err := s.Client.CreateDonation(ctx, payload)
	if err != nil {
		s.Log.Error("salesforce call failed",
			zap.String("submission_id", meta.SubmissionID),
			zap.Error(err))
		return nil, ErrRetryLater
	}
	if len(ack.Errors) > 0 {
		for _, apiErr := range ack.Errors {
			s.Log.Error("salesforce rejected record",
				zap.String("submission_id", meta.SubmissionID),
				zap.String("message", apiErr.Message),
				zap.String("detail", apiErr.Detail))
		}
		return nil, ErrRetryLater
	}

	s.Bus.Publish(ctx, DonationCreatedEvent{
		SubmissionID: meta.SubmissionID,
		Kind:         meta.Kind,
		Data:         meta.Data,
		Ack:          ack.Raw,
	})
	return ack, nil
}
