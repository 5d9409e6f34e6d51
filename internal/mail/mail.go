// Package mail turns payment reminders into email and delivers them over
// SMTP.
package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"text/template"
	"time"

	"github.com/shopspring/decimal"
	gomail "github.com/wneessen/go-mail"

	"workday/internal/amqp"
	"workday/internal/calendar"
	"workday/internal/log"
)

//go:embed templates/*
var templateFS embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html"))
	textTemplates = template.Must(template.ParseFS(templateFS, "templates/*.txt"))
)

const reminderSubject = "Payment reminder: %d unpaid work day(s)"

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Sender delivers built messages.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// Notifier emails payment reminders.
type Notifier struct {
	sender Sender
	from   string
	logger *log.Logger
}

// NewSMTPClient creates an SMTP client using implicit TLS and PLAIN auth.
func NewSMTPClient(cfg Config) (*gomail.Client, error) {
	client, err := gomail.NewClient(cfg.Host,
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithSSL(),
		gomail.WithPort(cfg.Port),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
		gomail.WithTimeout(15*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create SMTP client: %w", err)
	}
	return client, nil
}

func NewNotifier(sender Sender, from string, logger *log.Logger) *Notifier {
	return &Notifier{
		sender: sender,
		from:   from,
		logger: logger.WithComponent(log.ComponentMail),
	}
}

type reminderLine struct {
	Date   string
	Amount string
}

type reminderView struct {
	Name         string
	ReminderDays int
	Days         []reminderLine
	Total        string
}

// Rendered holds the parts of a reminder email.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

func formatAmount(currency string, v decimal.Decimal) string {
	return currency + v.StringFixed(2)
}

func formatDate(key string) string {
	t, err := calendar.ParseDateISO(key)
	if err != nil {
		return key
	}
	return t.Format("Mon 2 Jan 2006")
}

// Render produces the subject and bodies for msg.
func Render(msg *amqp.PaymentReminderMessage) (Rendered, error) {
	view := reminderView{
		Name:         msg.WorkerName,
		ReminderDays: msg.ReminderDays,
		Total:        formatAmount(msg.CurrencySymbol, decimal.NewFromFloat(msg.Total)),
	}
	if view.Name == "" {
		view.Name = "there"
	}
	for _, d := range msg.Overdue {
		view.Days = append(view.Days, reminderLine{
			Date:   formatDate(d.DateKey),
			Amount: formatAmount(msg.CurrencySymbol, decimal.NewFromFloat(d.Earnings)),
		})
	}

	var text, html bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&text, "payment_reminder.txt", view); err != nil {
		return Rendered{}, fmt.Errorf("render text body: %w", err)
	}
	if err := htmlTemplates.ExecuteTemplate(&html, "payment_reminder.html", view); err != nil {
		return Rendered{}, fmt.Errorf("render html body: %w", err)
	}
	return Rendered{
		Subject: fmt.Sprintf(reminderSubject, len(msg.Overdue)),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

// Build creates the email for msg.
func (n *Notifier) Build(msg *amqp.PaymentReminderMessage) (*gomail.Msg, error) {
	r, err := Render(msg)
	if err != nil {
		return nil, err
	}
	m := gomail.NewMsg()
	if err := m.From(n.from); err != nil {
		return nil, fmt.Errorf("set sender: %w", err)
	}
	if err := m.To(msg.Email); err != nil {
		return nil, fmt.Errorf("set recipient: %w", err)
	}
	m.Subject(r.Subject)
	m.SetMessageIDWithValue(msg.MessageID)
	m.SetBodyString(gomail.TypeTextPlain, r.Text)
	m.AddAlternativeString(gomail.TypeTextHTML, r.HTML)
	return m, nil
}

// HandlePaymentReminder emails one reminder. It has the handler signature
// expected by amqp.Client.ConsumePaymentReminders.
func (n *Notifier) HandlePaymentReminder(ctx context.Context, msg *amqp.PaymentReminderMessage) error {
	m, err := n.Build(msg)
	if err != nil {
		return err
	}
	if err := n.sender.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send reminder email: %w", err)
	}
	n.logger.InfoContext(ctx, "Sent payment reminder email",
		log.FieldUID, msg.UID,
		log.FieldMessageID, msg.MessageID,
		log.FieldCount, len(msg.Overdue))
	return nil
}
