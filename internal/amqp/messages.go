package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OverdueDay is one unpaid day listed in a reminder.
type OverdueDay struct {
	DateKey  string  `json:"dateKey"`
	Earnings float64 `json:"earnings"`
}

// PaymentReminderMessage asks the notifier to remind a worker about days
// that have been waiting for payment longer than their reminder period.
type PaymentReminderMessage struct {
	MessageID      string       `json:"messageId"`
	UID            string       `json:"uid"`
	Email          string       `json:"email"`
	WorkerName     string       `json:"workerName"`
	CurrencySymbol string       `json:"currencySymbol"`
	ReminderDays   int          `json:"reminderDays"`
	Overdue        []OverdueDay `json:"overdue"`
	Total          float64      `json:"total"`
	Timestamp      time.Time    `json:"timestamp"`
}

// NewPaymentReminderMessage creates a reminder with a fresh message ID.
func NewPaymentReminderMessage(uid, email, workerName, currency string, reminderDays int, overdue []OverdueDay, total float64) *PaymentReminderMessage {
	return &PaymentReminderMessage{
		MessageID:      uuid.NewString(),
		UID:            uid,
		Email:          email,
		WorkerName:     workerName,
		CurrencySymbol: currency,
		ReminderDays:   reminderDays,
		Overdue:        overdue,
		Total:          total,
		Timestamp:      time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *PaymentReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PaymentReminderMessageFromJSON decodes and checks a message body.
func PaymentReminderMessageFromJSON(data []byte) (*PaymentReminderMessage, error) {
	var msg PaymentReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UID == "" {
		return nil, fmt.Errorf("reminder message %q has no uid", msg.MessageID)
	}
	return &msg, nil
}
