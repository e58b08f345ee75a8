package settings

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Frequency is how often batched notifications are delivered.
type Frequency string

const (
	FrequencyImmediate Frequency = "immediate"
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
)

// ErrInvalidFrequency is returned for an unknown Frequency.
var ErrInvalidFrequency = errors.New("settings: invalid frequency")

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyImmediate, FrequencyDaily, FrequencyWeekly:
		return true
	}
	return false
}

// ParseFrequency parses s as a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(s)
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
	}
	return f, nil
}

// NotificationSettings is the user's notification preferences, as sent to
// and returned by the backend.
type NotificationSettings struct {
	EmailNotifications bool      `json:"emailNotifications"`
	SMSNotifications   bool      `json:"smsNotifications"`
	PushNotifications  bool      `json:"pushNotifications"`
	PaymentReminders   bool      `json:"paymentReminders"`
	PromotionalOffers  bool      `json:"promotionalOffers"`
	Frequency          Frequency `json:"frequency"`
}

// Defaults returns the settings of a user who never changed them.
func Defaults() NotificationSettings {
	return NotificationSettings{
		EmailNotifications: true,
		PushNotifications:  true,
		PaymentReminders:   true,
		Frequency:          FrequencyImmediate,
	}
}

// Field names a boolean setting.
type Field string

const (
	FieldEmail            Field = "emailNotifications"
	FieldSMS              Field = "smsNotifications"
	FieldPush             Field = "pushNotifications"
	FieldPaymentReminders Field = "paymentReminders"
	FieldPromotional      Field = "promotionalOffers"
)

// ErrUnknownField is returned by Toggle for an unknown Field.
var ErrUnknownField = errors.New("settings: unknown field")

// Fields lists every boolean setting.
func Fields() []Field {
	return []Field{FieldEmail, FieldSMS, FieldPush, FieldPaymentReminders, FieldPromotional}
}

// flag returns a pointer to the boolean named by f.
func (s *NotificationSettings) flag(f Field) (*bool, error) {
	switch f {
	case FieldEmail:
		return &s.EmailNotifications, nil
	case FieldSMS:
		return &s.SMSNotifications, nil
	case FieldPush:
		return &s.PushNotifications, nil
	case FieldPaymentReminders:
		return &s.PaymentReminders, nil
	case FieldPromotional:
		return &s.PromotionalOffers, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownField, f)
}

// Get returns the value of boolean field f.
func (s NotificationSettings) Get(f Field) (bool, error) {
	p, err := s.flag(f)
	if err != nil {
		return false, err
	}
	return *p, nil
}

// Toggled returns a copy of s with field f inverted.
func (s NotificationSettings) Toggled(f Field) (NotificationSettings, error) {
	p, err := s.flag(f)
	if err != nil {
		return s, err
	}
	*p = !*p
	return s, nil
}

// UnmarshalJSON accepts a missing or empty frequency as immediate.
func (s *NotificationSettings) UnmarshalJSON(data []byte) error {
	type plain NotificationSettings
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Frequency == "" {
		p.Frequency = FrequencyImmediate
	}
	*s = NotificationSettings(p)
	return nil
}
