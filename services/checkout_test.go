package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"foodies-telegram/api"
	"foodies-telegram/logger"
	"foodies-telegram/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeForm() models.DeliveryForm {
	return models.DeliveryForm{
		FirstName:   "Somchai",
		LastName:    "Jaidee",
		Email:       "somchai@example.com",
		PhoneNumber: "0812345678",
		Address:     "99 Sukhumvit Rd",
		Country:     "ประเทศไทย",
		Province:    "Bangkok",
		Zip:         "10110",
	}
}

func sampleCart() ([]CartLine, models.QuantityMap) {
	catalog := []models.FoodItem{food("a", "120.00"), food("b", "45.50"), food("c", "99.00")}
	q := models.QuantityMap{"a": 2, "b": 1}
	return CartLines(catalog, q), q
}

func TestSubmit_Success(t *testing.T) {
	backend := newFakeBackend()
	backend.createResult = &models.CreateOrderResult{ID: "o-1", ApprovalURL: "https://pay.example/approve/o-1"}
	flow := NewOrderSubmissionFlow(backend, DefaultPricing(), logger.Discard())
	lines, q := sampleCart()

	res, err := flow.Submit(context.Background(), completeForm(), lines, q, "tok")

	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/approve/o-1", res.ApprovalURL)
	assert.True(t, flow.IsSubmitting(), "flow stays locked once the customer is sent to the payment page")

	require.Len(t, backend.payloads, 1)
	p := backend.payloads[0]
	assert.Equal(t, "354.05", p.Amount)
	assert.Equal(t, models.OrderStatusPreparing, p.OrderStatus)
	assert.Equal(t, "Somchai Jaidee, 99 Sukhumvit Rd, ประเทศไทย, Bangkok, 10110", p.UserAddress)
	assert.Equal(t, "0812345678", p.PhoneNumber)
	assert.Equal(t, "somchai@example.com", p.Email)
	require.Len(t, p.OrderedItems, 2)
	assert.Equal(t, "a", p.OrderedItems[0].FoodID)
	assert.Equal(t, 2, p.OrderedItems[0].Quantity)
	assert.Equal(t, "240.00", Money(p.OrderedItems[0].Price), "item price is the line total")
	assert.Equal(t, "b", p.OrderedItems[1].FoodID)
}

func TestSubmit_ValidationNeverReachesBackend(t *testing.T) {
	lines, q := sampleCart()
	incomplete := completeForm()
	incomplete.Zip = ""

	tests := []struct {
		name    string
		form    models.DeliveryForm
		lines   []CartLine
		wantErr error
		wantMsg string
	}{
		{"empty cart", completeForm(), nil, ErrEmptyCart, MsgEmptyCart},
		{"empty cart wins over incomplete form", models.DeliveryForm{}, nil, ErrEmptyCart, MsgEmptyCart},
		{"missing zip", incomplete, lines, ErrIncompleteForm, MsgIncompleteForm},
		{"blank form", models.DeliveryForm{}, lines, ErrIncompleteForm, MsgIncompleteForm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			flow := NewOrderSubmissionFlow(backend, DefaultPricing(), logger.Discard())

			_, err := flow.Submit(context.Background(), tt.form, tt.lines, q, "tok")

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantMsg, UserMessage(err))
			assert.Empty(t, backend.Calls())
			assert.False(t, flow.IsSubmitting())
		})
	}
}

func TestSubmit_ServerErrorMessage(t *testing.T) {
	backend := newFakeBackend()
	backend.createErr = &api.Error{StatusCode: 400, Message: "Out of stock"}
	flow := NewOrderSubmissionFlow(backend, DefaultPricing(), logger.Discard())
	lines, q := sampleCart()

	_, err := flow.Submit(context.Background(), completeForm(), lines, q, "tok")

	var se *SubmitError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Failed to place order. Out of stock", se.Message)
	assert.False(t, flow.IsSubmitting(), "a failed submission can be retried")
}

func TestSubmit_TransportErrorMessage(t *testing.T) {
	backend := newFakeBackend()
	backend.createErr = errors.New("connection refused")
	flow := NewOrderSubmissionFlow(backend, DefaultPricing(), logger.Discard())
	lines, q := sampleCart()

	_, err := flow.Submit(context.Background(), completeForm(), lines, q, "tok")

	assert.Equal(t, "Failed to place order. connection refused", UserMessage(err))
	assert.ErrorIs(t, err, backend.createErr)
}

func TestSubmit_MissingApprovalURL(t *testing.T) {
	backend := newFakeBackend()
	backend.createResult = &models.CreateOrderResult{ID: "o-2"}
	flow := NewOrderSubmissionFlow(backend, DefaultPricing(), logger.Discard())
	lines, q := sampleCart()

	_, err := flow.Submit(context.Background(), completeForm(), lines, q, "tok")

	assert.Equal(t, MsgUnexpectedError, UserMessage(err))
	assert.False(t, flow.IsSubmitting())
}

func TestSubmit_RejectsWhileInFlight(t *testing.T) {
	backend := newFakeBackend()
	backend.createGate = make(chan struct{})
	backend.createResult = &models.CreateOrderResult{ID: "o-3", ApprovalURL: "https://pay.example/o-3"}
	flow := NewOrderSubmissionFlow(backend, DefaultPricing(), logger.Discard())
	lines, q := sampleCart()

	done := make(chan error, 1)
	go func() {
		_, err := flow.Submit(context.Background(), completeForm(), lines, q, "tok")
		done <- err
	}()
	require.Eventually(t, flow.IsSubmitting, time.Second, 5*time.Millisecond)

	_, err := flow.Submit(context.Background(), completeForm(), lines, q, "tok")
	assert.ErrorIs(t, err, ErrSubmissionInProgress)

	close(backend.createGate)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"create"}, backend.Calls())
}

func TestMissingFields(t *testing.T) {
	form := completeForm()
	form.Email = ""
	form.Province = ""

	assert.Equal(t, []string{"email", "province"}, MissingFields(form))
	assert.Empty(t, MissingFields(completeForm()))
}
