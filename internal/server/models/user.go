// Package models defines the persisted row types shared by repositories and
// services on the server side.
package models

import "time"

// User is a vault account. PasswordHash is a one-way bcrypt hash used for
// login verification only; it is never key material for vault encryption.
// The hash is replaced by guardian recovery and otherwise only written at
// signup.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
