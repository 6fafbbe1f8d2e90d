package services

import (
	"context"
	"testing"

	"foodies-telegram/logger"
	"foodies-telegram/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVerification(t *testing.T, backend *fakeBackend, token string) (*PaymentVerification, *QuantityStore) {
	t.Helper()
	store := NewQuantityStore(backend, logger.Discard())
	store.SetCredential(token)
	v, err := NewPaymentVerification("o-42", backend, backend, store, logger.Discard())
	require.NoError(t, err)
	return v, store
}

func TestNewPaymentVerification_MissingOrderID(t *testing.T) {
	v, err := NewPaymentVerification("", newFakeBackend(), newFakeBackend(), nil, nil)

	assert.ErrorIs(t, err, ErrMissingOrderID)
	assert.Nil(t, v)
}

func TestPaymentVerification_Outcomes(t *testing.T) {
	tests := []struct {
		name      string
		status    string
		statusErr error
		wantTag   VerificationTag
		wantMsg   string
		wantCalls []string
	}{
		{
			name:      "completed clears and reloads twice",
			status:    models.PaymentStatusCompleted,
			wantTag:   VerificationSuccess,
			wantCalls: []string{"status:o-42", "clear", "get", "get"},
		},
		{
			name:      "cancelled leaves the cart alone",
			status:    models.PaymentStatusCancelled,
			wantTag:   VerificationCancelled,
			wantCalls: []string{"status:o-42"},
		},
		{
			name:      "pending is a failure",
			status:    models.PaymentStatusPending,
			wantTag:   VerificationFailed,
			wantMsg:   "Your payment could not be completed.",
			wantCalls: []string{"status:o-42"},
		},
		{
			name:      "missing status is a failure",
			status:    "",
			wantTag:   VerificationFailed,
			wantMsg:   "Your payment could not be completed.",
			wantCalls: []string{"status:o-42"},
		},
		{
			name:      "status query error",
			statusErr: errBackendDown,
			wantTag:   VerificationFailed,
			wantMsg:   "An error occurred while verifying your payment.",
			wantCalls: []string{"status:o-42"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			backend.paymentStatus = tt.status
			backend.paymentErr = tt.statusErr
			v, _ := newVerification(t, backend, "tok")

			state := v.Run(context.Background())

			assert.Equal(t, tt.wantTag, state.Tag)
			assert.Equal(t, "o-42", state.OrderID)
			assert.Equal(t, tt.wantMsg, state.Message)
			assert.Equal(t, tt.wantCalls, backend.Calls())
		})
	}
}

func TestPaymentVerification_CompletedEmptiesLocalCart(t *testing.T) {
	backend := newFakeBackend()
	backend.paymentStatus = models.PaymentStatusCompleted
	v, store := newVerification(t, backend, "tok")
	store.Increase(context.Background(), "f1")
	store.Increase(context.Background(), "f2")
	store.Wait()

	v.Run(context.Background())

	assert.Equal(t, 0, store.Count())
}

func TestPaymentVerification_CartFollowUpFailureFails(t *testing.T) {
	tests := []struct {
		name      string
		failClear bool
		failGetAt int // 1-based GetCart call that fails, 0 for none
		wantCalls []string
	}{
		{"clear fails", true, 0, []string{"status:o-42", "clear"}},
		{"first reload fails", false, 1, []string{"status:o-42", "clear", "get"}},
		{"second reload fails", false, 2, []string{"status:o-42", "clear", "get", "get"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			backend.paymentStatus = models.PaymentStatusCompleted
			backend.failClear = tt.failClear
			gets := 0
			backend.onGet = func() {
				gets++
				backend.failGet = gets == tt.failGetAt
			}
			v, _ := newVerification(t, backend, "tok")

			state := v.Run(context.Background())

			assert.Equal(t, VerificationFailed, state.Tag)
			assert.Equal(t, "An error occurred while verifying your payment.", state.Message)
			assert.Equal(t, tt.wantCalls, backend.Calls())
		})
	}
}

func TestPaymentVerification_CompletedSettlesBetweenReloads(t *testing.T) {
	backend := newFakeBackend()
	backend.paymentStatus = models.PaymentStatusCompleted
	v, _ := newVerification(t, backend, "tok")
	var seen []VerificationTag
	backend.onGet = func() { seen = append(seen, v.State().Tag) }

	state := v.Run(context.Background())

	assert.Equal(t, VerificationSuccess, state.Tag)
	assert.Equal(t, []VerificationTag{VerificationLoading, VerificationSuccess}, seen)
}

func TestPaymentVerification_RunsOnce(t *testing.T) {
	backend := newFakeBackend()
	backend.paymentStatus = models.PaymentStatusCancelled
	v, _ := newVerification(t, backend, "tok")

	first := v.Run(context.Background())
	backend.paymentStatus = models.PaymentStatusCompleted
	second := v.Run(context.Background())

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"status:o-42"}, backend.Calls())
}

func TestPaymentVerification_GuestCompletedResetsLocally(t *testing.T) {
	backend := newFakeBackend()
	backend.paymentStatus = models.PaymentStatusCompleted
	v, store := newVerification(t, backend, "")
	store.Increase(context.Background(), "f1")

	state := v.Run(context.Background())

	assert.Equal(t, VerificationSuccess, state.Tag)
	assert.Equal(t, 0, store.Count())
	assert.Equal(t, []string{"status:o-42"}, backend.Calls())
}

func TestPaymentVerification_StartsLoading(t *testing.T) {
	v, _ := newVerification(t, newFakeBackend(), "tok")

	assert.Equal(t, VerificationLoading, v.State().Tag)
	assert.False(t, v.State().Terminal())
}

func TestViewFor(t *testing.T) {
	success := ViewFor(VerificationState{Tag: VerificationSuccess, OrderID: "o-1"})
	assert.Equal(t, "Payment Successful!", success.Title)
	assert.Contains(t, success.Body, "Your Order ID: o-1")
	assert.Equal(t, "Track My Orders", success.Primary.Label)
	assert.Equal(t, "Continue Shopping", success.Secondary.Label)

	failed := ViewFor(VerificationState{Tag: VerificationFailed, OrderID: "o-1", Message: "boom"})
	assert.Equal(t, "Payment Failed", failed.Title)
	assert.Equal(t, "boom", failed.Body)
	assert.Equal(t, "View My Orders", failed.Primary.Label)
	assert.Equal(t, "Back to Home", failed.Secondary.Label)

	cancelled := ViewFor(VerificationState{Tag: VerificationCancelled, OrderID: "o-1"})
	assert.Equal(t, TargetOrders, cancelled.Primary.Target)
	assert.Equal(t, TargetHome, cancelled.Secondary.Target)

	for tag := range VerificationViews {
		assert.NotEmpty(t, VerificationViews[tag].Title, tag)
	}
}
