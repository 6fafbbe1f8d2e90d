package bot

import (
	"fmt"
	"strconv"
	"strings"

	"foodies-telegram/models"
	"foodies-telegram/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
)

// Callback data understood by the customer bot.
const (
	cbHome           = "home"
	cbMenu           = "menu"
	cbCart           = "cart"
	cbOrders         = "orders"
	cbCheckout       = "checkout"
	cbPlaceOrder     = "place_order"
	cbCancelForm     = "cancel_form"
	cbDefaultCountry = "country_default"
	cbNoop           = "noop"

	cbCategoryPrefix = "cat:"
	cbIncPrefix      = "inc:"
	cbDecPrefix      = "dec:"
	cbCartIncPrefix  = "cinc:"
	cbCartDecPrefix  = "cdec:"
	cbRemovePrefix   = "rm:"
	cbProvincePrefix = "prov:"
	cbProvincePage   = "prov_page:"
)

const provincesPerPage = 10

func price(d decimal.Decimal) string {
	return "฿" + services.Money(d)
}

// cardMarkup converts OrderCardContent.Buttons to Telegram inline keyboard (URL vs callback).
func cardMarkup(c services.OrderCardContent) *tgbotapi.InlineKeyboardMarkup {
	if len(c.Buttons) == 0 {
		return nil
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, row := range c.Buttons {
		var btns []tgbotapi.InlineKeyboardButton
		for _, btn := range row {
			if btn.URL != "" {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonURL(btn.Text, btn.URL))
			} else {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.CallbackData))
			}
		}
		rows = append(rows, btns)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func homeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🍽 Menu", cbMenu),
			tgbotapi.NewInlineKeyboardButtonData("🛒 Cart", cbCart),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📦 My Orders", cbOrders),
		),
	)
}

func homeText(loggedIn bool) string {
	text := "Welcome to Foodies! 🍜\n\nBrowse the menu, fill your cart and check out in a few taps."
	if !loggedIn {
		text += "\n\nYou are browsing as a guest. Send /login <token> to sync your cart and see your orders."
	}
	return text
}

// menuText lists the filtered foods with their price and cart quantity.
func menuText(foods []models.FoodItem, q models.QuantityMap, category, search string) string {
	var sb strings.Builder
	sb.WriteString("🍽 Menu")
	if category != "" && category != models.CategoryAll {
		sb.WriteString(" · " + category)
	}
	if search != "" {
		fmt.Fprintf(&sb, " · \"%s\"", search)
	}
	sb.WriteString("\n\n")
	if len(foods) == 0 {
		sb.WriteString("No dishes found.")
		return sb.String()
	}
	for _, f := range foods {
		fmt.Fprintf(&sb, "• %s — %s", f.Name, price(f.Price))
		if n := q[f.ID]; n > 0 {
			fmt.Fprintf(&sb, " (in cart: %d)", n)
		}
		if f.Description != "" {
			sb.WriteString("\n   " + f.Description)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func menuKeyboard(foods []models.FoodItem, q models.QuantityMap, categories []string, category string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	var catRow []tgbotapi.InlineKeyboardButton
	for i, c := range categories {
		label := c
		if c == category || (category == "" && c == models.CategoryAll) {
			label = "• " + c
		}
		catRow = append(catRow, tgbotapi.NewInlineKeyboardButtonData(label, cbCategoryPrefix+strconv.Itoa(i)))
		if len(catRow) == 3 {
			rows = append(rows, catRow)
			catRow = nil
		}
	}
	if len(catRow) > 0 {
		rows = append(rows, catRow)
	}

	for _, f := range foods {
		row := []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("➕ "+f.Name, cbIncPrefix+f.ID),
		}
		if n := q[f.ID]; n > 0 {
			row = append(row,
				tgbotapi.NewInlineKeyboardButtonData(strconv.Itoa(n), cbNoop),
				tgbotapi.NewInlineKeyboardButtonData("–", cbDecPrefix+f.ID),
			)
		}
		rows = append(rows, row)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🛒 Cart (%d)", len(q)), cbCart),
		tgbotapi.NewInlineKeyboardButtonData("🏠 Home", cbHome),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// taxLabel renders "Tax (10%)" from the configured rate.
func taxLabel(rate decimal.Decimal) string {
	return fmt.Sprintf("Tax (%s%%)", rate.Mul(decimal.NewFromInt(100)).String())
}

func totalsText(t services.CartTotals, p services.Pricing) string {
	return fmt.Sprintf("Subtotal: %s\nShipping: %s\n%s: %s\nTotal: %s",
		price(t.Subtotal), price(t.Shipping), taxLabel(p.TaxRate), price(t.Tax), price(t.Total))
}

func cartText(lines []services.CartLine, q models.QuantityMap, p services.Pricing) string {
	var sb strings.Builder
	sb.WriteString("🛒 Your cart\n\n")
	if len(lines) == 0 {
		sb.WriteString("Your cart is empty.\n\n")
	}
	for _, l := range lines {
		fmt.Fprintf(&sb, "• %s x %d — %s\n", l.Item.Name, l.Quantity, price(l.LineTotal()))
	}
	if len(lines) > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString(totalsText(services.ComputeTotals(lines, q, p), p))
	return sb.String()
}

func cartKeyboard(lines []services.CartLine) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, l := range lines {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("–", cbCartDecPrefix+l.Item.ID),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s x %d", l.Item.Name, l.Quantity), cbNoop),
			tgbotapi.NewInlineKeyboardButtonData("+", cbCartIncPrefix+l.Item.ID),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cbRemovePrefix+l.Item.ID),
		))
	}
	last := []tgbotapi.InlineKeyboardButton{tgbotapi.NewInlineKeyboardButtonData("🍽 Menu", cbMenu)}
	if len(lines) > 0 {
		last = append(last, tgbotapi.NewInlineKeyboardButtonData("✅ Checkout", cbCheckout))
	}
	rows = append(rows, last)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// verificationMessage renders a payment verification state from the views table.
func verificationMessage(s services.VerificationState) (string, *tgbotapi.InlineKeyboardMarkup) {
	view := services.ViewFor(s)
	text := view.Icon + " " + view.Title
	if view.Body != "" {
		text += "\n\n" + view.Body
	}
	if !s.Terminal() {
		return text, nil
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(view.Primary.Label, view.Primary.Target),
		tgbotapi.NewInlineKeyboardButtonData(view.Secondary.Label, view.Secondary.Target),
	))
	return text, &kb
}

func ordersText(orders []models.Order) string {
	if len(orders) == 0 {
		return "📦 My Orders\n\nYou have no orders yet."
	}
	parts := []string{"📦 My Orders"}
	for i := range orders {
		parts = append(parts, services.BuildCustomerCard(&orders[i]).Text)
	}
	return strings.Join(parts, "\n\n")
}

func ordersKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔄 Refresh", cbOrders),
		tgbotapi.NewInlineKeyboardButtonData("🏠 Home", cbHome),
	))
}

func provinceKeyboard(regions []models.Region, page int) tgbotapi.InlineKeyboardMarkup {
	pages := (len(regions) + provincesPerPage - 1) / provincesPerPage
	if page < 0 || page >= pages {
		page = 0
	}
	start := page * provincesPerPage
	end := min(start+provincesPerPage, len(regions))

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, r := range regions[start:end] {
		label := r.NameTH
		if r.NameEN != "" {
			label += " (" + r.NameEN + ")"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cbProvincePrefix+strconv.Itoa(r.ID)),
		))
	}
	var nav []tgbotapi.InlineKeyboardButton
	if page > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️", cbProvincePage+strconv.Itoa(page-1)))
	}
	if page < pages-1 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("➡️", cbProvincePage+strconv.Itoa(page+1)))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", cbCancelForm)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func checkoutSummary(form models.DeliveryForm, lines []services.CartLine, q models.QuantityMap, p services.Pricing) string {
	var sb strings.Builder
	sb.WriteString("🧾 Order summary\n\n")
	for _, l := range lines {
		fmt.Fprintf(&sb, "• %s x %d — %s\n", l.Item.Name, l.Quantity, price(l.LineTotal()))
	}
	sb.WriteString("\n" + totalsText(services.ComputeTotals(lines, q, p), p))
	fmt.Fprintf(&sb, "\n\n📍 %s\n📞 %s\n✉️ %s", services.FormatUserAddress(form), form.PhoneNumber, form.Email)
	return sb.String()
}

func checkoutSummaryKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("💳 Place Order", cbPlaceOrder),
		tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", cbCancelForm),
	))
}
