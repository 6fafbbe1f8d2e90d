package services

import (
	"context"
	"errors"
	"sync"

	"foodies-telegram/models"
)

var errBackendDown = errors.New("backend down")

// fakeBackend is an in-memory Foodies backend that records every call in order.
type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	cart map[string]models.QuantityMap // by token

	failAdd, failRemove, failClear, failGet bool

	cartGate chan struct{} // when set, AddToCart and RemoveFromCart block until closed
	onGet    func()        // called on every GetCart before it answers

	createResult *models.CreateOrderResult
	createErr    error
	payloads     []models.OrderPayload
	createGate   chan struct{} // when set, CreateOrder blocks until closed

	paymentStatus string
	paymentErr    error

	statusUpdateErr error
	statusUpdates   []string

	foods    []models.FoodItem
	foodsErr error
	regions  []models.Region
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{cart: map[string]models.QuantityMap{}}
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) GetCart(ctx context.Context, token string) (models.QuantityMap, error) {
	f.record("get")
	if f.onGet != nil {
		f.onGet()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet {
		return nil, errBackendDown
	}
	out := models.QuantityMap{}
	for id, n := range f.cart[token] {
		out[id] = n
	}
	return out, nil
}

func (f *fakeBackend) AddToCart(ctx context.Context, foodID, token string) error {
	f.record("add:" + foodID)
	if f.cartGate != nil {
		<-f.cartGate
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAdd {
		return errBackendDown
	}
	if f.cart[token] == nil {
		f.cart[token] = models.QuantityMap{}
	}
	f.cart[token][foodID]++
	return nil
}

func (f *fakeBackend) RemoveFromCart(ctx context.Context, foodID, token string) error {
	f.record("remove:" + foodID)
	if f.cartGate != nil {
		<-f.cartGate
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRemove {
		return errBackendDown
	}
	if f.cart[token][foodID] > 1 {
		f.cart[token][foodID]--
	} else {
		delete(f.cart[token], foodID)
	}
	return nil
}

func (f *fakeBackend) ClearCart(ctx context.Context, token string) error {
	f.record("clear")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failClear {
		return errBackendDown
	}
	delete(f.cart, token)
	return nil
}

func (f *fakeBackend) CreateOrder(ctx context.Context, payload models.OrderPayload, token string) (*models.CreateOrderResult, error) {
	f.record("create")
	if f.createGate != nil {
		<-f.createGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createResult == nil {
		return &models.CreateOrderResult{}, nil
	}
	return f.createResult, nil
}

func (f *fakeBackend) PaymentStatus(ctx context.Context, orderID, token string) (*models.PaymentStatusResult, error) {
	f.record("status:" + orderID)
	if f.paymentErr != nil {
		return nil, f.paymentErr
	}
	return &models.PaymentStatusResult{OrderID: orderID, PaymentStatus: f.paymentStatus}, nil
}

func (f *fakeBackend) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	f.record("patch:" + orderID)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusUpdates = append(f.statusUpdates, orderID+"="+status)
	return f.statusUpdateErr
}

func (f *fakeBackend) Foods(ctx context.Context) ([]models.FoodItem, error) {
	f.record("foods")
	if f.foodsErr != nil {
		return nil, f.foodsErr
	}
	return f.foods, nil
}

func (f *fakeBackend) Regions(ctx context.Context) ([]models.Region, error) {
	f.record("regions")
	return f.regions, nil
}
