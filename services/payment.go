package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"foodies-telegram/logger"
	"foodies-telegram/models"
)

var ErrMissingOrderID = errors.New("missing order id")

type VerificationTag string

const (
	VerificationLoading   VerificationTag = "loading"
	VerificationSuccess   VerificationTag = "success"
	VerificationCancelled VerificationTag = "cancelled"
	VerificationFailed    VerificationTag = "failed"
)

const (
	msgPaymentNotCompleted = "Your payment could not be completed."
	msgPaymentVerifyError  = "An error occurred while verifying your payment."
)

// VerificationState is loading until Run moves it to a terminal tag. A completed payment
// whose cart follow-up fails ends in failed, even after passing through success.
// Message is only set for failed.
type VerificationState struct {
	Tag     VerificationTag
	OrderID string
	Message string
}

func (s VerificationState) Terminal() bool { return s.Tag != VerificationLoading }

type PaymentStatusQuerier interface {
	PaymentStatus(ctx context.Context, orderID, token string) (*models.PaymentStatusResult, error)
}

// PaymentVerification classifies the result of one payment return.
type PaymentVerification struct {
	orderID  string
	payments PaymentStatusQuerier
	cart     CartSyncer
	store    *QuantityStore
	log      *slog.Logger

	once  sync.Once
	mu    sync.Mutex
	state VerificationState
}

// NewPaymentVerification returns ErrMissingOrderID when there is nothing to verify;
// the caller sends the customer home instead.
func NewPaymentVerification(orderID string, payments PaymentStatusQuerier, cart CartSyncer, store *QuantityStore, log *slog.Logger) (*PaymentVerification, error) {
	if orderID == "" {
		return nil, ErrMissingOrderID
	}
	return &PaymentVerification{
		orderID:  orderID,
		payments: payments,
		cart:     cart,
		store:    store,
		log:      logger.OrDefault(log).With("order_id", orderID),
		state:    VerificationState{Tag: VerificationLoading, OrderID: orderID},
	}, nil
}

func (v *PaymentVerification) State() VerificationState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Run queries the payment status and settles the state. Only the first call does any work;
// every call returns the terminal state.
func (v *PaymentVerification) Run(ctx context.Context) VerificationState {
	v.once.Do(func() { v.run(ctx) })
	return v.State()
}

func (v *PaymentVerification) run(ctx context.Context) {
	token := v.store.Credential()

	res, err := v.payments.PaymentStatus(ctx, v.orderID, token)
	if err != nil {
		v.fail(OpPaymentStatus, err)
		return
	}

	switch res.PaymentStatus {
	case models.PaymentStatusCompleted:
		if err := v.clearCart(ctx, token); err != nil {
			v.fail(OpPaymentClearCart, err)
			return
		}
		if err := v.reload(ctx, token); err != nil {
			v.fail(OpPaymentReload, err)
			return
		}
		v.settle(VerificationSuccess, "")
		if err := v.reload(ctx, token); err != nil {
			v.fail(OpPaymentReload, err)
		}
	case models.PaymentStatusCancelled:
		v.settle(VerificationCancelled, "")
	default:
		v.log.Warn("payment not completed", "payment_status", res.PaymentStatus)
		v.settle(VerificationFailed, msgPaymentNotCompleted)
	}
}

func (v *PaymentVerification) clearCart(ctx context.Context, token string) error {
	if token == "" {
		v.store.Reset()
		return nil
	}
	return absorb(v.log, OpPaymentClearCart, v.cart.ClearCart(ctx, token))
}

func (v *PaymentVerification) reload(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return absorb(v.log, OpPaymentReload, v.store.Load(ctx, token))
}

func (v *PaymentVerification) fail(op string, err error) {
	v.log.Error("payment verification failed", "op", op, "error", err)
	v.settle(VerificationFailed, msgPaymentVerifyError)
}

func (v *PaymentVerification) settle(tag VerificationTag, message string) {
	v.mu.Lock()
	v.state = VerificationState{Tag: tag, OrderID: v.orderID, Message: message}
	v.mu.Unlock()
	v.log.Info("payment verified", "outcome", string(tag))
}

// Navigation targets for the view actions.
const (
	TargetOrders = "orders"
	TargetMenu   = "menu"
	TargetHome   = "home"
)

type ViewAction struct {
	Label  string
	Target string
}

type VerificationView struct {
	Title     string
	Icon      string
	Body      string
	Primary   ViewAction
	Secondary ViewAction
}

// VerificationViews maps each state tag to its presentation. An empty Body is filled from the state.
var VerificationViews = map[VerificationTag]VerificationView{
	VerificationLoading: {
		Title: "Verifying Payment...",
		Icon:  "⏳",
		Body:  "Please wait while we confirm your payment.",
	},
	VerificationSuccess: {
		Title:     "Payment Successful!",
		Icon:      "📦",
		Body:      "Your order has been confirmed. Thank you for your purchase.\nYour Order ID: %s",
		Primary:   ViewAction{Label: "Track My Orders", Target: TargetOrders},
		Secondary: ViewAction{Label: "Continue Shopping", Target: TargetMenu},
	},
	VerificationCancelled: {
		Title:     "Payment Cancelled",
		Icon:      "🚫",
		Body:      "Your payment was cancelled as requested. You have not been charged.",
		Primary:   ViewAction{Label: "View My Orders", Target: TargetOrders},
		Secondary: ViewAction{Label: "Back to Home", Target: TargetHome},
	},
	VerificationFailed: {
		Title:     "Payment Failed",
		Icon:      "❌",
		Primary:   ViewAction{Label: "View My Orders", Target: TargetOrders},
		Secondary: ViewAction{Label: "Back to Home", Target: TargetHome},
	},
}

// ViewFor renders the table entry for s.
func ViewFor(s VerificationState) VerificationView {
	view := VerificationViews[s.Tag]
	switch s.Tag {
	case VerificationSuccess:
		view.Body = fmt.Sprintf(view.Body, s.OrderID)
	case VerificationFailed:
		view.Body = s.Message
	}
	return view
}
