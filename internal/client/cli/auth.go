package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/avorobjovs/keyguard/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for account details and creates a new account.
func (a *App) Register(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if _, err := a.api.SignUp(ctx, username, email, string(password)); err != nil {
		log.Printf("Registration failed: %s", err.Error())
		return err
	}

	fmt.Println("Account created, you can log in now.")
	return nil
}

// Login authenticates against the server. On success the password stays in
// memory as the vault secret; every record read or write needs it to derive
// the encryption key.
func (a *App) Login(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout, "Enter password")
	if err != nil {
		return err
	}

	user, err := a.api.Login(ctx, username, string(password))
	if err != nil {
		common.WipeByteArray(password)
		log.Printf("Login failed: %s", err.Error())
		return err
	}

	a.username = user.Username
	a.vaultSecret = password
	fmt.Println("Logged in as", user.Username)
	return nil
}

// Logout ends the session and wipes the in-memory vault secret.
func (a *App) Logout(ctx context.Context) error {
	err := a.api.Logout(ctx)
	a.clearSession()
	if err != nil {
		log.Printf("Logout: %s", err.Error())
		return err
	}
	fmt.Println("Logged out.")
	return nil
}
