package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/avorobjovs/keyguard/internal/common"
)

// Recover resets an account password using two guardian keys. It works
// without a session. Records encrypted under the old password stay
// unreadable; the warning below is printed so users are not surprised.
func (a *App) Recover(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Account email", os.Stdout)
	if err != nil {
		return err
	}
	key1, err := getSimpleText(a.reader, "First guardian key", os.Stdout)
	if err != nil {
		return err
	}
	key2, err := getSimpleText(a.reader, "Second guardian key", os.Stdout)
	if err != nil {
		return err
	}
	newPassword, err := getPassword(os.Stdout, "New password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(newPassword)

	result, err := a.api.Recover(ctx, email, key1, key2, string(newPassword))
	if err != nil {
		log.Printf("Recovery failed: %s", err.Error())
		return err
	}

	fmt.Printf("Password reset for %s (%s).\n", result.Username, result.Email)
	fmt.Println("Note: records stored before the reset cannot be decrypted with the new password.")
	return nil
}
