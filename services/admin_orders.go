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

var ErrUnknownOrderStatus = errors.New("unknown order status")

func ValidOrderStatus(status string) bool {
	for _, s := range models.OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type OrderStatusUpdater interface {
	UpdateOrderStatus(ctx context.Context, orderID, status string) error
}

// AdminOrderStatusEditor applies status changes to the admin's in-memory order list and
// pushes them to the backend in the background. Any status may follow any other.
type AdminOrderStatusEditor struct {
	orders OrderStatusUpdater
	log    *slog.Logger
	wg     sync.WaitGroup
}

func NewAdminOrderStatusEditor(orders OrderStatusUpdater, log *slog.Logger) *AdminOrderStatusEditor {
	return &AdminOrderStatusEditor{orders: orders, log: logger.OrDefault(log)}
}

// SetStatus returns a new list where the order with orderID is replaced by a copy carrying
// newStatus. Every other entry is the same pointer as in list. The remote update runs detached
// from ctx's cancellation; its failure is logged and the returned list is not rolled back.
func (e *AdminOrderStatusEditor) SetStatus(ctx context.Context, orderID, newStatus string, list []*models.Order) ([]*models.Order, error) {
	if !ValidOrderStatus(newStatus) {
		return list, fmt.Errorf("%w: %q", ErrUnknownOrderStatus, newStatus)
	}

	out := make([]*models.Order, len(list))
	for i, o := range list {
		if o != nil && o.ID == orderID {
			changed := *o
			changed.OrderStatus = newStatus
			out[i] = &changed
			continue
		}
		out[i] = o
	}

	bg := context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.orders.UpdateOrderStatus(bg, orderID, newStatus); err != nil {
			_ = absorb(e.log, OpAdminSetStatus, err, "order_id", orderID, "status", newStatus)
			return
		}
		e.log.Info("order status updated", "order_id", orderID, "status", newStatus)
	}()

	return out, nil
}

// Wait blocks until every update started by SetStatus has finished.
func (e *AdminOrderStatusEditor) Wait() {
	e.wg.Wait()
}
