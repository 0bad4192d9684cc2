package amqp

import (
	"encoding/json"
	"time"

	"fintrack/internal/notify"
)

// PasswordResetMessage carries everything the worker needs to render the
// reset email without touching the database.
type PasswordResetMessage struct {
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPasswordResetMessage stamps r with the publish time
func NewPasswordResetMessage(r notify.PasswordReset) *PasswordResetMessage {
	return &PasswordResetMessage{
		Email:     r.Email,
		FullName:  r.FullName,
		Token:     r.Token,
		ExpiresAt: r.ExpiresAt.UTC(),
		Timestamp: time.Now().UTC(),
	}
}

func (m *PasswordResetMessage) PasswordReset() notify.PasswordReset {
	return notify.PasswordReset{
		Email:     m.Email,
		FullName:  m.FullName,
		Token:     m.Token,
		ExpiresAt: m.ExpiresAt,
	}
}

// Expired reports whether the token lapsed while the message sat in the queue.
func (m *PasswordResetMessage) Expired(now time.Time) bool {
	return !now.Before(m.ExpiresAt)
}

// ToJSON converts the message to JSON bytes
func (m *PasswordResetMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PasswordResetMessageFromJSON decodes a delivery body
func PasswordResetMessageFromJSON(data []byte) (*PasswordResetMessage, error) {
	var msg PasswordResetMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
