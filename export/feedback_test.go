package export

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestOutcomeRecorderAdvancesSubmission(t *testing.T) {
	sub := &Submission{
		ID:        "sub-1",
		State:     StateSigned,
		ErrorType: ErrorTypeCommunication,
		OrderID:   "55",
		Data:      []byte(`{"order_type":"unhcr_monthly_order_type"}`),
	}
	subs := &memSubmissions{subs: map[string]*Submission{sub.ID: sub}}
	orders := &memOrders{}
	recorder := OutcomeRecorder{Submissions: subs, Orders: orders, Log: zap.NewNop()}

	event := DonationCreatedEvent{
		SubmissionID: "sub-1",
		Kind:         KindRecurring,
		Ack:          []byte(`{"data":[{"id":"003XX0001"}]}`),
	}
	if err := recorder.HandleDonationCreated(context.Background(), event); err != nil {
		t.Fatal(err)
	}

	saved := subs.subs["sub-1"]
	if saved.State != StateCRMSuccess {
		t.Errorf("state = %s, want crm_success", saved.State)
	}
	if saved.ErrorType != "" {
		t.Errorf("error type should be cleared, got %q", saved.ErrorType)
	}
	if saved.Field("salesforce_response.data.0.id") != "003XX0001" {
		t.Errorf("acknowledgement missing from submission data: %s", saved.Data)
	}
	if len(orders.marked) != 1 || orders.marked[0] != "55" {
		t.Errorf("marked orders = %v, want [55]", orders.marked)
	}
}

func TestOutcomeRecorderWithoutOrder(t *testing.T) {
	sub := &Submission{ID: "sub-1", State: StateSigned, Data: []byte(`{}`)}
	subs := &memSubmissions{subs: map[string]*Submission{sub.ID: sub}}
	orders := &memOrders{}
	recorder := OutcomeRecorder{Submissions: subs, Orders: orders, Log: zap.NewNop()}

	event := DonationCreatedEvent{SubmissionID: "sub-1"}
	if err := recorder.HandleDonationCreated(context.Background(), event); err != nil {
		t.Fatal(err)
	}
	if len(orders.marked) != 0 {
		t.Errorf("no order should be marked, got %v", orders.marked)
	}
}

func TestOutcomeRecorderIgnoresUnknownSubmission(t *testing.T) {
	subs := &memSubmissions{subs: map[string]*Submission{}}
	recorder := OutcomeRecorder{Submissions: subs, Orders: &memOrders{}, Log: zap.NewNop()}

	event := DonationCreatedEvent{SubmissionID: "missing"}
	if err := recorder.HandleDonationCreated(context.Background(), event); err != nil {
		t.Errorf("unknown submission should be ignored, got %v", err)
	}
}

func TestDispatcherDeliversInOrderAndSurvivesHandlerErrors(t *testing.T) {
	bus := &Dispatcher{Log: zap.NewNop()}
	var order []string
	bus.Subscribe(func(ctx context.Context, event DonationCreatedEvent) error {
		order = append(order, "first")
		return context.Canceled
	})
	bus.Subscribe(func(ctx context.Context, event DonationCreatedEvent) error {
		order = append(order, "second")
		return nil
	})

	bus.Publish(context.Background(), DonationCreatedEvent{SubmissionID: "sub-1"})
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("delivery order = %v", order)
	}
}
