package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/avorobjovs/keyguard/internal/client/api"
	"github.com/avorobjovs/keyguard/internal/common"
)

// Add prompts for a new record and stores it.
func (a *App) Add(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Record name", os.Stdout)
	if err != nil {
		return err
	}
	username, err := getSimpleText(a.reader, "Login (optional)", os.Stdout)
	if err != nil {
		return err
	}
	secret, err := getPassword(os.Stdout, "Secret")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(secret)

	url, err := getSimpleText(a.reader, "URL (optional)", os.Stdout)
	if err != nil {
		return err
	}
	notes, err := getSimpleText(a.reader, "Notes (optional)", os.Stdout)
	if err != nil {
		return err
	}

	input := &api.CredentialInput{
		Name:     name,
		Username: username,
		Secret:   string(secret),
		URL:      url,
		Notes:    notes,
	}

	folderID, err := getSimpleText(a.reader, "Folder id (optional)", os.Stdout)
	if err != nil {
		return err
	}
	if folderID != "" {
		input.FolderID = &folderID
	}

	cred, err := a.api.CreateCredential(ctx, a.secret(), input)
	if err != nil {
		log.Printf("Add failed: %s", err.Error())
		return err
	}

	fmt.Println("Stored with id", cred.ID)
	return nil
}

// List prints the metadata of all records. Secrets are not fetched.
func (a *App) List(ctx context.Context) error {
	creds, err := a.api.ListCredentials(ctx)
	if err != nil {
		log.Printf("List failed: %s", err.Error())
		return err
	}

	if len(creds) == 0 {
		fmt.Println("Vault is empty.")
		return nil
	}

	for _, c := range creds {
		folder := "-"
		if c.FolderID != nil {
			folder = *c.FolderID
		}
		fmt.Printf("%s  %-20s  login=%s  folder=%s  %s\n", c.ID, c.Name, c.Username, folder, c.URL)
	}
	return nil
}

// Show fetches and prints one record including the decrypted secret.
func (a *App) Show(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Record id", os.Stdout)
	if err != nil {
		return err
	}

	cred, err := a.api.GetCredential(ctx, a.secret(), id)
	if err != nil {
		log.Printf("Show failed: %s", err.Error())
		return err
	}

	fmt.Printf("Name:   %s\n", cred.Name)
	fmt.Printf("Login:  %s\n", cred.Username)
	fmt.Printf("Secret: %s\n", cred.Secret)
	fmt.Printf("URL:    %s\n", cred.URL)
	fmt.Printf("Notes:  %s\n", cred.Notes)
	return nil
}

// Delete removes one record.
func (a *App) Delete(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Record id", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.api.DeleteCredential(ctx, id); err != nil {
		log.Printf("Delete failed: %s", err.Error())
		return err
	}

	fmt.Println("Deleted.")
	return nil
}

// Move changes the folder of a record. An empty folder id moves the record
// to the vault root.
func (a *App) Move(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Record id", os.Stdout)
	if err != nil {
		return err
	}
	folderID, err := getSimpleText(a.reader, "Target folder id (empty for root)", os.Stdout)
	if err != nil {
		return err
	}

	upd := &api.CredentialUpdate{}
	if folderID == "" {
		upd.ClearFolder = true
	} else {
		upd.FolderID = &folderID
	}

	if _, err := a.api.UpdateCredential(ctx, a.secret(), id, upd); err != nil {
		log.Printf("Move failed: %s", err.Error())
		return err
	}

	fmt.Println("Moved.")
	return nil
}
