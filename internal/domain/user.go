package domain

import "time"

type User struct {
	ID          uint      `json:"id"`
	Email       string    `json:"email"`
	Password    string    `json:"-"`
	Name        string    `json:"name"`
	PhotoURL    string    `json:"photo_url"`
	MPConnected bool      `json:"mp_connected"`
	// Opaque payment-gateway credential obtained during account linking.
	// Stored verbatim, never serialized out.
	MPAccessToken string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
