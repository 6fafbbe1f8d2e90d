package bot

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"foodies-telegram/config"
	"foodies-telegram/logger"
	"foodies-telegram/models"
	"foodies-telegram/services"
	"foodies-telegram/web"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Backend is the part of the Foodies API the customer bot talks to.
type Backend interface {
	services.CartSyncer
	services.OrderCreator
	services.PaymentStatusQuerier
	UserOrders(ctx context.Context, token string) ([]models.Order, error)
}

type browseState struct {
	category string
	search   string
}

// Bot is the customer storefront bot (TOKEN).
type Bot struct {
	api      *tgbotapi.BotAPI
	cfg      *config.Config
	backend  Backend
	sessions *services.Sessions
	pricing  services.Pricing
	log      *slog.Logger

	stateMu   sync.RWMutex
	checkouts map[int64]*checkoutState
	browse    map[int64]browseState
}

func New(cfg *config.Config, backend Backend, sessions *services.Sessions, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:       api,
		cfg:       cfg,
		backend:   backend,
		sessions:  sessions,
		pricing:   services.Pricing{ShippingFee: cfg.Pricing.ShippingFee, TaxRate: cfg.Pricing.TaxRate},
		log:       logger.OrDefault(log).With("bot", "customer"),
		checkouts: make(map[int64]*checkoutState),
		browse:    make(map[int64]browseState),
	}, nil
}

// Username is the bot's Telegram username, used for payment return deep links.
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

func (b *Bot) setBotCommands() error {
	cfg := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Home"},
		tgbotapi.BotCommand{Command: "menu", Description: "Browse the menu"},
		tgbotapi.BotCommand{Command: "cart", Description: "Your cart"},
		tgbotapi.BotCommand{Command: "orders", Description: "My orders"},
		tgbotapi.BotCommand{Command: "search", Description: "Search dishes by name"},
		tgbotapi.BotCommand{Command: "login", Description: "Sign in with your Foodies token"},
		tgbotapi.BotCommand{Command: "logout", Description: "Sign out"},
	)
	_, err := b.api.Request(cfg)
	return err
}

// Start polls for updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	if err := b.setBotCommands(); err != nil {
		b.log.Warn("set bot commands failed", "error", err)
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message == nil || update.Message.From == nil {
		return
	}
	msg := update.Message
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if msg.IsCommand() {
		args := strings.TrimSpace(msg.CommandArguments())
		switch msg.Command() {
		case "start":
			b.handleStart(ctx, chatID, userID, args)
		case "menu":
			b.sendMenu(ctx, chatID, userID, 0)
		case "cart":
			b.sendCart(ctx, chatID, userID, 0)
		case "orders":
			b.sendOrders(ctx, chatID, userID, 0)
		case "search":
			b.setBrowse(userID, func(s *browseState) { s.search = args })
			b.sendMenu(ctx, chatID, userID, 0)
		case "login":
			b.handleLogin(ctx, msg, args)
		case "logout":
			b.handleLogout(ctx, chatID, userID)
		case "checkout":
			b.startCheckout(ctx, chatID, userID)
		case "cancel":
			b.cancelCheckout(chatID, userID)
		default:
			b.sendHome(ctx, chatID, userID, 0)
		}
		return
	}

	if st := b.checkout(userID); st != nil && !st.done() {
		b.handleFormAnswer(ctx, chatID, userID, st, msg.Text)
		return
	}
	b.sendHome(ctx, chatID, userID, 0)
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send failed", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) sendWithInline(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	sent, err := b.api.Send(msg)
	if err != nil {
		b.log.Error("send failed", "chat_id", chatID, "error", err)
	}
	return sent, err
}

// render edits messageID in place, or sends a new message when messageID is 0 or the edit fails.
func (b *Bot) render(chatID int64, messageID int, text string, kb tgbotapi.InlineKeyboardMarkup) {
	if messageID != 0 {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, kb)
		_, err := b.api.Send(edit)
		if err == nil || strings.Contains(err.Error(), "not modified") {
			return
		}
		b.log.Warn("edit failed, sending new message", "chat_id", chatID, "message_id", messageID, "error", err)
	}
	_, _ = b.sendWithInline(chatID, text, kb)
}

func (b *Bot) getBrowse(userID int64) browseState {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	return b.browse[userID]
}

func (b *Bot) setBrowse(userID int64, update func(*browseState)) {
	b.stateMu.Lock()
	s := b.browse[userID]
	update(&s)
	b.browse[userID] = s
	b.stateMu.Unlock()
}

func (b *Bot) handleStart(ctx context.Context, chatID, userID int64, payload string) {
	if orderID, ok := strings.CutPrefix(payload, web.VerifyStartPrefix); ok {
		b.verifyPayment(ctx, chatID, userID, orderID)
		return
	}
	b.sendHome(ctx, chatID, userID, 0)
}

func (b *Bot) sendHome(ctx context.Context, chatID, userID int64, messageID int) {
	sess := b.sessions.Get(ctx, userID)
	b.render(chatID, messageID, homeText(sess.Quantities.Credential() != ""), homeKeyboard())
}

func (b *Bot) sendMenu(ctx context.Context, chatID, userID int64, messageID int) {
	sess := b.sessions.Get(ctx, userID)
	if len(sess.Catalog()) == 0 {
		if err := b.sessions.RefreshCatalog(ctx, sess); err != nil {
			b.log.Warn("catalog refresh failed", "user_id", userID, "error", err)
		}
	}
	catalog := sess.Catalog()
	bs := b.getBrowse(userID)
	foods := services.FilterFoods(catalog, bs.category, bs.search)
	q := sess.Quantities.Snapshot()
	b.render(chatID, messageID, menuText(foods, q, bs.category, bs.search), menuKeyboard(foods, q, services.Categories(catalog), bs.category))
}

func (b *Bot) sendCart(ctx context.Context, chatID, userID int64, messageID int) {
	sess := b.sessions.Get(ctx, userID)
	lines, q := sess.Lines()
	b.render(chatID, messageID, cartText(lines, q, b.pricing), cartKeyboard(lines))
}

func (b *Bot) sendOrders(ctx context.Context, chatID, userID int64, messageID int) {
	token := b.sessions.Get(ctx, userID).Quantities.Credential()
	if token == "" {
		b.render(chatID, messageID, "Please sign in with /login <token> to see your orders.", homeKeyboard())
		return
	}
	orders, err := b.backend.UserOrders(ctx, token)
	if err != nil {
		b.log.Error("list orders failed", "user_id", userID, "error", err)
		b.render(chatID, messageID, "Could not load your orders. Please try again.", ordersKeyboard())
		return
	}
	b.render(chatID, messageID, ordersText(orders), ordersKeyboard())
}

func (b *Bot) handleLogin(ctx context.Context, msg *tgbotapi.Message, token string) {
	chatID, userID := msg.Chat.ID, msg.From.ID
	if token == "" {
		b.send(chatID, "Usage: /login <token>")
		return
	}
	// The token should not linger in the chat history.
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, msg.MessageID)); err != nil {
		b.log.Warn("delete login message failed", "user_id", userID, "error", err)
	}
	if err := b.sessions.Login(ctx, userID, token); err != nil {
		b.log.Error("login failed", "user_id", userID, "error", err)
		b.send(chatID, "Could not sign you in right now. Please try again.")
		return
	}
	b.log.Info("customer signed in", "user_id", userID)
	b.send(chatID, "✅ Signed in. Your cart is synced.")
	b.sendHome(ctx, chatID, userID, 0)
}

func (b *Bot) handleLogout(ctx context.Context, chatID, userID int64) {
	if err := b.sessions.Logout(ctx, userID); err != nil {
		b.log.Error("logout failed", "user_id", userID, "error", err)
		b.send(chatID, "Could not sign you out right now. Please try again.")
		return
	}
	b.clearCheckout(userID)
	b.send(chatID, "👋 Signed out.")
}

func (b *Bot) verifyPayment(ctx context.Context, chatID, userID int64, orderID string) {
	sess := b.sessions.Get(ctx, userID)
	v, err := services.NewPaymentVerification(orderID, b.backend, b.backend, sess.Quantities, b.log)
	if errors.Is(err, services.ErrMissingOrderID) {
		b.sendHome(ctx, chatID, userID, 0)
		return
	}

	text, _ := verificationMessage(v.State())
	sent, sendErr := b.api.Send(tgbotapi.NewMessage(chatID, text))

	state := v.Run(ctx)
	if state.Tag == services.VerificationSuccess {
		b.clearCheckout(userID)
	}
	text, kb := verificationMessage(state)
	messageID := 0
	if sendErr == nil {
		messageID = sent.MessageID
	}
	b.render(chatID, messageID, text, *kb)
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil {
		return
	}
	chatID := cq.Message.Chat.ID
	userID := cq.From.ID
	messageID := cq.Message.MessageID
	data := cq.Data

	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		b.log.Debug("answer callback failed", "error", err)
	}

	switch {
	case data == cbNoop:
	case data == cbHome:
		b.sendHome(ctx, chatID, userID, messageID)
	case data == cbMenu:
		b.sendMenu(ctx, chatID, userID, messageID)
	case data == cbCart:
		b.sendCart(ctx, chatID, userID, messageID)
	case data == cbOrders:
		b.sendOrders(ctx, chatID, userID, messageID)
	case data == cbCheckout:
		b.startCheckout(ctx, chatID, userID)
	case data == cbPlaceOrder:
		b.placeOrder(ctx, chatID, userID)
	case data == cbCancelForm:
		b.cancelCheckout(chatID, userID)
	case data == cbDefaultCountry:
		if st := b.checkout(userID); st != nil && st.fieldName() == "country" {
			b.handleFormAnswer(ctx, chatID, userID, st, b.cfg.Checkout.DefaultCountry)
		}
	case strings.HasPrefix(data, cbCategoryPrefix):
		sess := b.sessions.Get(ctx, userID)
		categories := services.Categories(sess.Catalog())
		i, err := strconv.Atoi(strings.TrimPrefix(data, cbCategoryPrefix))
		if err != nil || i < 0 || i >= len(categories) {
			return
		}
		b.setBrowse(userID, func(s *browseState) { s.category = categories[i] })
		b.sendMenu(ctx, chatID, userID, messageID)
	case strings.HasPrefix(data, cbIncPrefix):
		b.sessions.Get(ctx, userID).Quantities.Increase(ctx, strings.TrimPrefix(data, cbIncPrefix))
		b.sendMenu(ctx, chatID, userID, messageID)
	case strings.HasPrefix(data, cbDecPrefix):
		b.sessions.Get(ctx, userID).Quantities.Decrease(ctx, strings.TrimPrefix(data, cbDecPrefix), func() {
			b.sendMenu(ctx, chatID, userID, messageID)
		})
	case strings.HasPrefix(data, cbCartIncPrefix):
		b.sessions.Get(ctx, userID).Quantities.Increase(ctx, strings.TrimPrefix(data, cbCartIncPrefix))
		b.sendCart(ctx, chatID, userID, messageID)
	case strings.HasPrefix(data, cbCartDecPrefix):
		b.sessions.Get(ctx, userID).Quantities.Decrease(ctx, strings.TrimPrefix(data, cbCartDecPrefix), func() {
			b.sendCart(ctx, chatID, userID, messageID)
		})
	case strings.HasPrefix(data, cbRemovePrefix):
		b.sessions.Get(ctx, userID).Quantities.RemoveAll(strings.TrimPrefix(data, cbRemovePrefix))
		b.sendCart(ctx, chatID, userID, messageID)
	case strings.HasPrefix(data, cbProvincePage):
		page, _ := strconv.Atoi(strings.TrimPrefix(data, cbProvincePage))
		regions := b.sessions.Get(ctx, userID).Regions()
		edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, provinceKeyboard(regions, page))
		if _, err := b.api.Send(edit); err != nil {
			b.log.Debug("province page edit failed", "error", err)
		}
	case strings.HasPrefix(data, cbProvincePrefix):
		st := b.checkout(userID)
		if st == nil || st.fieldName() != "province" {
			return
		}
		id, err := strconv.Atoi(strings.TrimPrefix(data, cbProvincePrefix))
		if err != nil {
			return
		}
		if name, ok := regionName(b.sessions.Get(ctx, userID).Regions(), id); ok {
			b.handleFormAnswer(ctx, chatID, userID, st, name)
		}
	}
}

func (b *Bot) checkout(userID int64) *checkoutState {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	return b.checkouts[userID]
}

func (b *Bot) clearCheckout(userID int64) {
	b.stateMu.Lock()
	delete(b.checkouts, userID)
	b.stateMu.Unlock()
}

func (b *Bot) startCheckout(ctx context.Context, chatID, userID int64) {
	lines, _ := b.sessions.Get(ctx, userID).Lines()
	if len(lines) == 0 {
		b.send(chatID, services.MsgEmptyCart)
		return
	}
	st := newCheckoutState(services.NewOrderSubmissionFlow(b.backend, b.pricing, b.log))
	b.stateMu.Lock()
	b.checkouts[userID] = st
	b.stateMu.Unlock()
	b.promptStep(ctx, chatID, userID, st)
}

func (b *Bot) cancelCheckout(chatID, userID int64) {
	if b.checkout(userID) == nil {
		return
	}
	b.clearCheckout(userID)
	_, _ = b.sendWithInline(chatID, "Checkout cancelled. Your cart is still here.", homeKeyboard())
}

func (b *Bot) promptStep(ctx context.Context, chatID, userID int64, st *checkoutState) {
	if st.done() {
		lines, q := b.sessions.Get(ctx, userID).Lines()
		_, _ = b.sendWithInline(chatID, checkoutSummary(st.form, lines, q, b.pricing), checkoutSummaryKeyboard())
		return
	}

	field := st.fieldName()
	text := prompt(field, b.cfg.Checkout.DefaultCountry)
	switch field {
	case "country":
		_, _ = b.sendWithInline(chatID, text, tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(b.cfg.Checkout.DefaultCountry, cbDefaultCountry),
		)))
	case "province":
		if regions := b.sessions.Get(ctx, userID).Regions(); len(regions) > 0 {
			_, _ = b.sendWithInline(chatID, text, provinceKeyboard(regions, 0))
			return
		}
		b.send(chatID, text)
	default:
		b.send(chatID, text)
	}
}

func (b *Bot) handleFormAnswer(ctx context.Context, chatID, userID int64, st *checkoutState, text string) {
	if !st.answer(text) {
		b.send(chatID, services.MsgIncompleteForm)
	}
	b.promptStep(ctx, chatID, userID, st)
}

func (b *Bot) placeOrder(ctx context.Context, chatID, userID int64) {
	st := b.checkout(userID)
	if st == nil {
		b.send(chatID, "No checkout in progress. Open your cart and tap Checkout.")
		return
	}
	sess := b.sessions.Get(ctx, userID)
	lines, q := sess.Lines()

	res, err := st.flow.Submit(ctx, st.form, lines, q, sess.Quantities.Credential())
	if err != nil {
		b.send(chatID, services.UserMessage(err))
		return
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonURL("💳 Pay now", res.ApprovalURL),
	))
	_, _ = b.sendWithInline(chatID, services.MsgOrderPlaced, kb)
}
