package entity

import (
	"time"
)

// User is the aggregate root for the account domain.
// HashedPassword holds a bcrypt digest and must never be serialized or
// logged; the HTTP layer exposes users through PublicUser only.
type User struct {
	ID             string
	Username       string
	Email          string
	HashedPassword string
	Name           string
	Age            int
	Gender         string
	PhoneNumber    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PublicUser is the externally visible view of a user record.
type PublicUser struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Age         int       `json:"age"`
	Gender      string    `json:"gender"`
	PhoneNumber string    `json:"phone_number"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Public strips credential material from the record.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Name:        u.Name,
		Age:         u.Age,
		Gender:      u.Gender,
		PhoneNumber: u.PhoneNumber,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
