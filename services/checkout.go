package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"foodies-telegram/api"
	"foodies-telegram/logger"
	"foodies-telegram/models"
)

var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrIncompleteForm       = errors.New("delivery form is incomplete")
	ErrSubmissionInProgress = errors.New("order submission already in progress")
)

const (
	MsgEmptyCart       = "Your cart is empty. Please add items to place an order."
	MsgIncompleteForm  = "Please fill in all the delivery information fields."
	MsgInProgress      = "Your order is being processed..."
	MsgUnexpectedError = "An unexpected error occurred."
	MsgOrderPlaced     = "Order placed successfully! Redirecting to payment..."
	msgOrderFailed     = "Failed to place order. "
)

// SubmitError is a user-visible submission failure.
type SubmitError struct {
	Message string
	Err     error
}

func (e *SubmitError) Error() string { return e.Message }
func (e *SubmitError) Unwrap() error { return e.Err }

// UserMessage maps a Submit error to the text shown to the customer.
func UserMessage(err error) string {
	var se *SubmitError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyCart):
		return MsgEmptyCart
	case errors.Is(err, ErrIncompleteForm):
		return MsgIncompleteForm
	case errors.Is(err, ErrSubmissionInProgress):
		return MsgInProgress
	case errors.As(err, &se):
		return se.Message
	default:
		return MsgUnexpectedError
	}
}

type OrderCreator interface {
	CreateOrder(ctx context.Context, payload models.OrderPayload, token string) (*models.CreateOrderResult, error)
}

// SubmitResult tells the caller where to send the customer to approve the payment.
type SubmitResult struct {
	ApprovalURL string
	Payload     models.OrderPayload
}

// OrderSubmissionFlow is one checkout form. At most one submission is in flight; after a
// successful submission the flow stays locked since the customer leaves for the payment page.
type OrderSubmissionFlow struct {
	orders  OrderCreator
	pricing Pricing
	log     *slog.Logger

	mu         sync.Mutex
	submitting bool
}

func NewOrderSubmissionFlow(orders OrderCreator, pricing Pricing, log *slog.Logger) *OrderSubmissionFlow {
	return &OrderSubmissionFlow{orders: orders, pricing: pricing, log: logger.OrDefault(log)}
}

func (f *OrderSubmissionFlow) IsSubmitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// Submit validates the form against the cart, builds the order payload and creates the order.
// Validation failures never reach the backend: an empty cart is reported before an incomplete form.
func (f *OrderSubmissionFlow) Submit(ctx context.Context, form models.DeliveryForm, lines []CartLine, quantities models.QuantityMap, token string) (*SubmitResult, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return nil, ErrSubmissionInProgress
	}
	if len(lines) == 0 {
		f.mu.Unlock()
		return nil, ErrEmptyCart
	}
	if missing := MissingFields(form); len(missing) > 0 {
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrIncompleteForm, missing)
	}
	f.submitting = true
	f.mu.Unlock()

	payload := BuildOrderPayload(form, lines, quantities, f.pricing)
	res, err := f.orders.CreateOrder(ctx, payload, token)
	if err != nil {
		f.release()
		msg := err.Error()
		if serverMsg, ok := api.ServerMessage(err); ok {
			msg = serverMsg
		}
		f.log.Error("order submission failed", "op", OpOrderSubmit, "amount", payload.Amount, "error", err)
		return nil, &SubmitError{Message: msgOrderFailed + msg, Err: err}
	}
	if res == nil || res.ApprovalURL == "" {
		f.release()
		f.log.Error("order created without approval url", "op", OpOrderSubmit, "amount", payload.Amount)
		return nil, &SubmitError{Message: MsgUnexpectedError}
	}

	f.log.Info("order submitted", "order_id", res.ID, "amount", payload.Amount, "items", len(payload.OrderedItems))
	return &SubmitResult{ApprovalURL: res.ApprovalURL, Payload: payload}, nil
}

func (f *OrderSubmissionFlow) release() {
	f.mu.Lock()
	f.submitting = false
	f.mu.Unlock()
}

// FormFields lists the form fields in prompt order with accessors.
var FormFields = []struct {
	Name  string
	Label string
	Get   func(*models.DeliveryForm) *string
}{
	{"firstName", "First name", func(d *models.DeliveryForm) *string { return &d.FirstName }},
	{"lastName", "Last name", func(d *models.DeliveryForm) *string { return &d.LastName }},
	{"email", "Email", func(d *models.DeliveryForm) *string { return &d.Email }},
	{"phoneNumber", "Phone Number", func(d *models.DeliveryForm) *string { return &d.PhoneNumber }},
	{"address", "Address", func(d *models.DeliveryForm) *string { return &d.Address }},
	{"country", "Country", func(d *models.DeliveryForm) *string { return &d.Country }},
	{"province", "Province", func(d *models.DeliveryForm) *string { return &d.Province }},
	{"zip", "Zip", func(d *models.DeliveryForm) *string { return &d.Zip }},
}

// MissingFields returns the names of the empty form fields, in form order.
func MissingFields(form models.DeliveryForm) []string {
	var missing []string
	for _, field := range FormFields {
		if *field.Get(&form) == "" {
			missing = append(missing, field.Name)
		}
	}
	return missing
}

func FormatUserAddress(form models.DeliveryForm) string {
	return fmt.Sprintf("%s %s, %s, %s, %s, %s",
		form.FirstName, form.LastName, form.Address, form.Country, form.Province, form.Zip)
}

// BuildOrderPayload assembles the order body. Each item price is the line total.
func BuildOrderPayload(form models.DeliveryForm, lines []CartLine, quantities models.QuantityMap, p Pricing) models.OrderPayload {
	totals := ComputeTotals(lines, quantities, p)

	items := make([]models.OrderedItem, 0, len(lines))
	for _, l := range lines {
		qty := quantities[l.Item.ID]
		items = append(items, models.OrderedItem{
			FoodID:      l.Item.ID,
			Quantity:    qty,
			Price:       CartLine{Item: l.Item, Quantity: qty}.LineTotal(),
			Category:    l.Item.Category,
			ImageURL:    l.Item.ImageURL,
			Description: l.Item.Description,
			Name:        l.Item.Name,
		})
	}

	return models.OrderPayload{
		UserAddress:  FormatUserAddress(form),
		PhoneNumber:  form.PhoneNumber,
		Email:        form.Email,
		OrderedItems: items,
		Amount:       Money(totals.Total),
		OrderStatus:  models.OrderStatusPreparing,
	}
}
