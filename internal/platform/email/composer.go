package email

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// Template names, also sent as the "template" attribute on queued mail.
const (
	TemplatePasswordCode      = "password_code"
	TemplatePasswordChanged   = "password_changed"
	TemplateOrderConfirmation = "order_confirmation"
	TemplateOrderShipped      = "order_shipped"
	TemplateOrderDelivered    = "order_delivered"
	TemplateReturnReceived    = "return_received"
)

//go:embed templates/*.html
var templateFS embed.FS

var subjects = map[string]string{
	TemplatePasswordCode:      "Şifre değiştirme kodunuz",
	TemplatePasswordChanged:   "Şifreniz değiştirildi",
	TemplateOrderConfirmation: "Siparişiniz alındı: %s",
	TemplateOrderShipped:      "Siparişiniz kargoda: %s",
	TemplateOrderDelivered:    "Siparişiniz teslim edildi: %s",
	TemplateReturnReceived:    "İade talebiniz alındı: %s",
}

// Recipient identifies who the mail goes to.
type Recipient struct {
	Email string
	Name  string
}

type PasswordCodeData struct {
	Name             string
	Code             string
	ExpiresInMinutes int
}

type PasswordChangedData struct {
	Name      string
	ChangedAt time.Time
}

type LineItem struct {
	Name  string
	Qty   int
	Total int64
}

type OrderConfirmationData struct {
	Name          string
	OrderNumber   string
	Items         []LineItem
	ItemsPrice    int64
	ShippingPrice int64
	TotalPrice    int64
	Address       string
}

type OrderShippedData struct {
	Name           string
	OrderNumber    string
	Carrier        string
	TrackingNumber string
	TrackingURL    string
}

type OrderDeliveredData struct {
	Name             string
	OrderNumber      string
	ReturnWindowDays int
}

type ReturnReceivedData struct {
	Name         string
	OrderNumber  string
	RefundAmount int64
	Reason       string
	Note         string
}

// Composer renders the transactional templates. User-supplied strings are
// stripped of markup before rendering.
type Composer struct {
	brand         string
	storefrontURL string
	templates     map[string]*template.Template
	policy        *bluemonday.Policy
}

// NewComposer parses the embedded templates.
func NewComposer(brand, storefrontURL string) (*Composer, error) {
	if strings.TrimSpace(brand) == "" {
		brand = "Jewelry Storefront"
	}
	funcs := template.FuncMap{"money": FormatTRY}
	layout, err := template.New("layout").Funcs(funcs).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("email: parse layout: %w", err)
	}

	templates := make(map[string]*template.Template, len(subjects))
	for name := range subjects {
		clone, err := layout.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("email: parse %s: %w", name, err)
		}
		templates[name] = clone
	}
	return &Composer{
		brand:         brand,
		storefrontURL: strings.TrimRight(strings.TrimSpace(storefrontURL), "/"),
		templates:     templates,
		policy:        bluemonday.StrictPolicy(),
	}, nil
}

func (c *Composer) PasswordCode(to Recipient, data PasswordCodeData) (Message, error) {
	data.Name = c.clean(data.Name)
	text := fmt.Sprintf("Şifre değiştirme kodunuz: %s (%d dakika geçerli)", data.Code, data.ExpiresInMinutes)
	return c.render(TemplatePasswordCode, to, "", data, text)
}

func (c *Composer) PasswordChanged(to Recipient, data PasswordChangedData) (Message, error) {
	data.Name = c.clean(data.Name)
	return c.render(TemplatePasswordChanged, to, "", data, "Hesabınızın şifresi değiştirildi.")
}

func (c *Composer) OrderConfirmation(to Recipient, data OrderConfirmationData) (Message, error) {
	data.Name = c.clean(data.Name)
	data.Address = c.clean(data.Address)
	for i := range data.Items {
		data.Items[i].Name = c.clean(data.Items[i].Name)
	}
	text := fmt.Sprintf("Siparişiniz alındı. Sipariş numarası: %s, toplam: %s", data.OrderNumber, FormatTRY(data.TotalPrice))
	return c.render(TemplateOrderConfirmation, to, data.OrderNumber, data, text)
}

func (c *Composer) OrderShipped(to Recipient, data OrderShippedData) (Message, error) {
	data.Name = c.clean(data.Name)
	text := fmt.Sprintf("%s numaralı siparişiniz kargoya verildi. Takip numarası: %s", data.OrderNumber, data.TrackingNumber)
	return c.render(TemplateOrderShipped, to, data.OrderNumber, data, text)
}

func (c *Composer) OrderDelivered(to Recipient, data OrderDeliveredData) (Message, error) {
	data.Name = c.clean(data.Name)
	text := fmt.Sprintf("%s numaralı siparişiniz teslim edildi.", data.OrderNumber)
	return c.render(TemplateOrderDelivered, to, data.OrderNumber, data, text)
}

func (c *Composer) ReturnReceived(to Recipient, data ReturnReceivedData) (Message, error) {
	data.Name = c.clean(data.Name)
	data.Note = c.clean(data.Note)
	text := fmt.Sprintf("%s numaralı sipariş için iade talebiniz alındı. İade tutarı: %s", data.OrderNumber, FormatTRY(data.RefundAmount))
	return c.render(TemplateReturnReceived, to, data.OrderNumber, data, text)
}

func (c *Composer) render(name string, to Recipient, subjectArg string, data any, text string) (Message, error) {
	tmpl, ok := c.templates[name]
	if !ok {
		return Message{}, fmt.Errorf("email: unknown template %q", name)
	}
	subject := subjects[name]
	if strings.Contains(subject, "%s") {
		subject = fmt.Sprintf(subject, subjectArg)
	}

	var buf bytes.Buffer
	err := tmpl.ExecuteTemplate(&buf, "layout", map[string]any{
		"Brand":         c.brand,
		"StorefrontURL": c.storefrontURL,
		"Subject":       subject,
		"Data":          data,
	})
	if err != nil {
		return Message{}, fmt.Errorf("email: render %s: %w", name, err)
	}
	msg := Message{
		To:       strings.TrimSpace(to.Email),
		ToName:   c.clean(to.Name),
		Subject:  subject,
		HTML:     buf.String(),
		Text:     text,
		Template: name,
	}
	return msg, msg.Validate()
}

// clean strips tags and returns plain text; html/template escapes it again.
func (c *Composer) clean(value string) string {
	return strings.TrimSpace(html.UnescapeString(c.policy.Sanitize(value)))
}

// FormatTRY renders an amount in kuruş the way Turkish storefronts show it,
// e.g. 123456 -> "1.234,56 TL".
func FormatTRY(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	lira := strconv.FormatInt(amount/100, 10)
	var grouped strings.Builder
	for i, r := range lira {
		if i > 0 && (len(lira)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}
	return fmt.Sprintf("%s%s,%02d TL", sign, grouped.String(), amount%100)
}
