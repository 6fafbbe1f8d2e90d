package bot

import (
	"strings"

	"foodies-telegram/models"
	"foodies-telegram/services"
)

// checkoutState walks the customer through the delivery form one field at a time.
type checkoutState struct {
	form models.DeliveryForm
	step int // index into services.FormFields; len(FormFields) once every field is filled
	flow *services.OrderSubmissionFlow
}

func newCheckoutState(flow *services.OrderSubmissionFlow) *checkoutState {
	return &checkoutState{flow: flow}
}

func (c *checkoutState) done() bool {
	return c.step >= len(services.FormFields)
}

func (c *checkoutState) fieldName() string {
	if c.done() {
		return ""
	}
	return services.FormFields[c.step].Name
}

// answer fills the current field and moves on. Blank answers are refused.
func (c *checkoutState) answer(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" || c.done() {
		return false
	}
	*services.FormFields[c.step].Get(&c.form) = value
	c.step++
	return true
}

func prompt(field, defaultCountry string) string {
	switch field {
	case "firstName":
		return "📝 Delivery information\n\nWhat is your first name?\n(/cancel to stop)"
	case "lastName":
		return "Your last name?"
	case "email":
		return "✉️ Your email address?"
	case "phoneNumber":
		return "📞 Your phone number?"
	case "address":
		return "📍 Street address (house number, street, district)?"
	case "country":
		return "🌏 Country? Type it or tap the button to use " + defaultCountry + "."
	case "province":
		return "🗺 Province? Pick one below or type it."
	case "zip":
		return "📮 Zip code?"
	default:
		return ""
	}
}

func regionName(regions []models.Region, id int) (string, bool) {
	for _, r := range regions {
		if r.ID == id {
			return r.NameTH, true
		}
	}
	return "", false
}
