package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"foodies-telegram/config"
	"foodies-telegram/logger"
	"foodies-telegram/models"
	"foodies-telegram/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// AdminBackend lists every order for the admin panel.
type AdminBackend interface {
	AllOrders(ctx context.Context) ([]models.Order, error)
}

// adminPanel is one admin's view: the order list as last fetched and updated, and which card
// message shows which order.
type adminPanel struct {
	orders []*models.Order
	cards  map[int]string // message id -> order id
}

// AdminBot is the admin panel bot (ADMIN_TOKEN). Only ADMIN_ID may use it.
type AdminBot struct {
	api     *tgbotapi.BotAPI
	adminID int64
	orders  AdminBackend
	editor  *services.AdminOrderStatusEditor
	log     *slog.Logger

	stateMu sync.Mutex
	panels  map[int64]*adminPanel
}

func NewAdminBot(cfg *config.Config, orders AdminBackend, editor *services.AdminOrderStatusEditor, log *slog.Logger) (*AdminBot, error) {
	if cfg.Telegram.AdminToken == "" {
		return nil, fmt.Errorf("ADMIN_TOKEN not set")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.AdminToken)
	if err != nil {
		return nil, err
	}
	return &AdminBot{
		api:     api,
		adminID: cfg.Telegram.AdminID,
		orders:  orders,
		editor:  editor,
		log:     logger.OrDefault(log).With("bot", "admin"),
		panels:  make(map[int64]*adminPanel),
	}, nil
}

func (a *AdminBot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := a.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			a.handleUpdate(ctx, update)
		}
	}
}

func (a *AdminBot) isAdmin(userID int64) bool {
	return a.adminID != 0 && userID == a.adminID
}

func (a *AdminBot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		a.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message == nil || update.Message.From == nil {
		return
	}
	msg := update.Message
	if !a.isAdmin(msg.From.ID) {
		a.send(msg.Chat.ID, "🔒 This panel is for Foodies staff only.")
		return
	}

	switch strings.TrimSpace(msg.Text) {
	case "/start", "/orders", "/refresh":
		a.sendOrders(ctx, msg.Chat.ID)
	default:
		a.send(msg.Chat.ID, "Send /refresh to load the latest orders.")
	}
}

func (a *AdminBot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := a.api.Send(msg); err != nil {
		a.log.Error("send failed", "chat_id", chatID, "error", err)
	}
}

// sendOrders refetches every order and sends one card per order.
func (a *AdminBot) sendOrders(ctx context.Context, chatID int64) {
	fetched, err := a.orders.AllOrders(ctx)
	if err != nil {
		a.log.Error("list all orders failed", "error", err)
		a.send(chatID, "Could not load orders. Try /refresh again.")
		return
	}
	panel := &adminPanel{orders: services.OrderPointers(fetched), cards: make(map[int]string)}

	a.stateMu.Lock()
	a.panels[chatID] = panel
	a.stateMu.Unlock()

	if len(panel.orders) == 0 {
		a.send(chatID, "📭 No orders yet.")
		return
	}
	a.send(chatID, fmt.Sprintf("📋 %d orders", len(panel.orders)))
	for i, o := range panel.orders {
		content := services.BuildAdminCard(o, i)
		msg := tgbotapi.NewMessage(chatID, content.Text)
		if kb := cardMarkup(content); kb != nil {
			msg.ReplyMarkup = *kb
		}
		sent, err := a.api.Send(msg)
		if err != nil {
			a.log.Error("send order card failed", "order_id", o.ID, "error", err)
			continue
		}
		a.stateMu.Lock()
		panel.cards[sent.MessageID] = o.ID
		a.stateMu.Unlock()
	}
}

func (a *AdminBot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil {
		return
	}
	if !a.isAdmin(cq.From.ID) {
		a.answer(cq.ID, "Not allowed")
		return
	}
	index, status, ok := services.ParseOrderStatusCallback(cq.Data)
	if !ok {
		a.answer(cq.ID, "")
		return
	}
	chatID := cq.Message.Chat.ID

	a.stateMu.Lock()
	panel := a.panels[chatID]
	var orderID string
	stale := true
	if panel != nil && index < len(panel.orders) {
		orderID = panel.orders[index].ID
		stale = panel.cards[cq.Message.MessageID] != orderID
	}
	a.stateMu.Unlock()
	if stale {
		a.answer(cq.ID, "This card is out of date. Send /refresh.")
		return
	}

	updated, err := a.applyStatus(ctx, chatID, orderID, status)
	if err != nil {
		a.answer(cq.ID, err.Error())
		return
	}
	a.answer(cq.ID, "Status: "+status)

	content := services.BuildAdminCard(updated, index)
	edit := tgbotapi.NewEditMessageText(chatID, cq.Message.MessageID, content.Text)
	if kb := cardMarkup(content); kb != nil {
		edit.ReplyMarkup = kb
	}
	if _, err := a.api.Send(edit); err != nil && !strings.Contains(err.Error(), "not modified") {
		a.log.Warn("edit order card failed", "order_id", orderID, "error", err)
	}
}

// applyStatus runs the status editor on the panel's list and keeps its result.
func (a *AdminBot) applyStatus(ctx context.Context, chatID int64, orderID, status string) (*models.Order, error) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	panel := a.panels[chatID]

	next, err := a.editor.SetStatus(ctx, orderID, status, panel.orders)
	if err != nil {
		return nil, err
	}
	panel.orders = next
	for _, o := range next {
		if o.ID == orderID {
			return o, nil
		}
	}
	return nil, fmt.Errorf("order %s not in panel", orderID)
}

func (a *AdminBot) answer(callbackID, text string) {
	if _, err := a.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		a.log.Debug("answer callback failed", "error", err)
	}
}
