package models

import "github.com/shopspring/decimal"

const (
	OrderStatusPreparing      = "Preparing"
	OrderStatusOutForDelivery = "Out for delivery"
	OrderStatusDelivered      = "Delivered"
)

// OrderStatuses lists the admin-selectable statuses in display order.
var OrderStatuses = []string{OrderStatusPreparing, OrderStatusOutForDelivery, OrderStatusDelivered}

const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusCancelled = "CANCELLED"
)

// DeliveryForm is the checkout form. Every field is required.
type DeliveryForm struct {
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	Address     string
	Country     string
	Province    string
	Zip         string
}

// OrderedItem is one line of an order. Price is the line total (unit price x quantity).
type OrderedItem struct {
	FoodID      string          `json:"foodId"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"imageUrl"`
	Description string          `json:"description"`
	Name        string          `json:"name"`
}

// OrderPayload is the body of POST /orders. Built once per submission and sent verbatim.
type OrderPayload struct {
	UserAddress  string        `json:"userAddress"`
	PhoneNumber  string        `json:"phoneNumber"`
	Email        string        `json:"email"`
	OrderedItems []OrderedItem `json:"orderedItems"`
	Amount       string        `json:"amount"`
	OrderStatus  string        `json:"orderStatus"`
}

// Order is a server-owned order as returned by the orders endpoints.
type Order struct {
	ID            string          `json:"id"`
	OrderedItems  []OrderedItem   `json:"orderedItems"`
	Amount        decimal.Decimal `json:"amount"`
	UserAddress   string          `json:"userAddress"`
	PhoneNumber   string          `json:"phoneNumber,omitempty"`
	Email         string          `json:"email,omitempty"`
	PaymentStatus string          `json:"paymentStatus,omitempty"`
	OrderStatus   string          `json:"orderStatus"`
}

// CreateOrderResult is the order-create response; ApprovalURL is empty when the backend did not start a payment.
type CreateOrderResult struct {
	ID          string `json:"id"`
	ApprovalURL string `json:"approvalUrl"`
}

// PaymentStatusResult is the body of GET /orders/payment/status/{id}.
type PaymentStatusResult struct {
	OrderID       string `json:"orderId"`
	PaymentStatus string `json:"paymentStatus"`
}
