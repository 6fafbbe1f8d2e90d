package services

import (
	"fmt"
	"strconv"
	"strings"

	"foodies-telegram/models"
)

// OrderCardButton is one inline button (text + callback_data or url).
type OrderCardButton struct {
	Text         string
	CallbackData string
	URL          string // if set, use as URL button instead of callback
}

// OrderCardContent is the text and optional inline keyboard for an order card.
type OrderCardContent struct {
	Text    string
	Buttons [][]OrderCardButton
}

const orderStatusCallbackPrefix = "order_status:"

func statusIcon(status string) string {
	switch status {
	case models.OrderStatusPreparing:
		return "🍳"
	case models.OrderStatusOutForDelivery:
		return "🛵"
	case models.OrderStatusDelivered:
		return "✅"
	default:
		return "•"
	}
}

// ItemsSummary renders "name x qty, name x qty".
func ItemsSummary(items []models.OrderedItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%s x %d", it.Name, it.Quantity))
	}
	return strings.Join(parts, ", ")
}

func orderCardText(o *models.Order) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📦 %s\n", ItemsSummary(o.OrderedItems))
	fmt.Fprintf(&sb, "💵 ฿%s\n", Money(o.Amount))
	fmt.Fprintf(&sb, "Items: %d\n", len(o.OrderedItems))
	fmt.Fprintf(&sb, "%s %s", statusIcon(o.OrderStatus), o.OrderStatus)
	return sb.String()
}

// BuildCustomerCard is the card shown in the customer's order list.
func BuildCustomerCard(o *models.Order) OrderCardContent {
	return OrderCardContent{Text: orderCardText(o)}
}

// BuildAdminCard adds the delivery address and one button per status; the current status is marked.
func BuildAdminCard(o *models.Order, index int) OrderCardContent {
	text := fmt.Sprintf("Order #%s\n", o.ID) + orderCardText(o)
	if o.UserAddress != "" {
		text += "\n\n📍 " + o.UserAddress
	}
	if o.PhoneNumber != "" {
		text += "\n📞 " + o.PhoneNumber
	}

	row := make([]OrderCardButton, 0, len(models.OrderStatuses))
	for i, s := range models.OrderStatuses {
		label := s
		if s == o.OrderStatus {
			label = "✓ " + s
		}
		row = append(row, OrderCardButton{Text: label, CallbackData: OrderStatusCallback(index, i)})
	}
	return OrderCardContent{Text: text, Buttons: [][]OrderCardButton{row}}
}

// OrderStatusCallback encodes a status button as "order_status:<list index>:<status index>".
// Indexes keep the payload inside Telegram's 64-byte callback limit whatever the order id looks like.
func OrderStatusCallback(orderIndex, statusIndex int) string {
	return orderStatusCallbackPrefix + strconv.Itoa(orderIndex) + ":" + strconv.Itoa(statusIndex)
}

// ParseOrderStatusCallback is the inverse of OrderStatusCallback.
func ParseOrderStatusCallback(data string) (orderIndex int, status string, ok bool) {
	rest, found := strings.CutPrefix(data, orderStatusCallbackPrefix)
	if !found {
		return 0, "", false
	}
	parts := strings.Split(rest, ":")
	if len(parts) != 2 {
		return 0, "", false
	}
	orderIndex, err := strconv.Atoi(parts[0])
	if err != nil || orderIndex < 0 {
		return 0, "", false
	}
	statusIndex, err := strconv.Atoi(parts[1])
	if err != nil || statusIndex < 0 || statusIndex >= len(models.OrderStatuses) {
		return 0, "", false
	}
	return orderIndex, models.OrderStatuses[statusIndex], true
}

// OrderPointers converts a fetched order list into the shape the status editor works on.
func OrderPointers(orders []models.Order) []*models.Order {
	out := make([]*models.Order, len(orders))
	for i := range orders {
		out[i] = &orders[i]
	}
	return out
}
