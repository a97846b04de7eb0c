package cli

import (
	"context"
	"fmt"
	"log"
	"os"
)

// Guardians prints the caller's edges split by role. For edges where the
// caller is the guardian, the recovery key is shown; the guardian is
// expected to pass it to the account owner out of band when recovery is
// actually needed.
func (a *App) Guardians(ctx context.Context) error {
	overview, err := a.api.ListGuardians(ctx)
	if err != nil {
		log.Printf("Guardians failed: %s", err.Error())
		return err
	}

	fmt.Println("You protect:")
	if len(overview.Protecting) == 0 {
		fmt.Println("  (nobody)")
	}
	for _, e := range overview.Protecting {
		fmt.Printf("  %s  %s  key=%s\n", e.ID, e.ProtectedEmail, e.RecoveryKey)
	}

	fmt.Println("Your guardians:")
	if len(overview.ProtectedBy) == 0 {
		fmt.Println("  (none)")
	}
	for _, e := range overview.ProtectedBy {
		fmt.Printf("  %s\n", e.ID)
	}
	return nil
}

// AddGuardian registers another account as a guardian for the caller.
func (a *App) AddGuardian(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Guardian email", os.Stdout)
	if err != nil {
		return err
	}

	edge, err := a.api.AddGuardian(ctx, email)
	if err != nil {
		log.Printf("AddGuardian failed: %s", err.Error())
		return err
	}

	fmt.Println("Guardian registered, edge", edge.ID)
	return nil
}

// RemoveGuardian deletes a guardian edge by id.
func (a *App) RemoveGuardian(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Edge id", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.api.RemoveGuardian(ctx, id); err != nil {
		log.Printf("RemoveGuardian failed: %s", err.Error())
		return err
	}

	fmt.Println("Removed.")
	return nil
}
