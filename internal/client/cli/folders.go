package cli

import (
	"context"
	"fmt"
	"log"
	"os"
)

// Folders lists the user's folders.
func (a *App) Folders(ctx context.Context) error {
	folders, err := a.api.ListFolders(ctx)
	if err != nil {
		log.Printf("Folders failed: %s", err.Error())
		return err
	}

	if len(folders) == 0 {
		fmt.Println("No folders.")
		return nil
	}

	for _, f := range folders {
		fmt.Printf("%s  %s\n", f.ID, f.Name)
	}
	return nil
}

// AddFolder creates a folder.
func (a *App) AddFolder(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Folder name", os.Stdout)
	if err != nil {
		return err
	}

	folder, err := a.api.CreateFolder(ctx, name)
	if err != nil {
		log.Printf("AddFolder failed: %s", err.Error())
		return err
	}

	fmt.Println("Created folder", folder.ID)
	return nil
}

// DeleteFolder removes a folder together with every record inside it.
func (a *App) DeleteFolder(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Folder id", os.Stdout)
	if err != nil {
		return err
	}

	confirm, err := getSimpleText(a.reader, "This deletes all records in the folder. Type yes to continue", os.Stdout)
	if err != nil {
		return err
	}
	if confirm != "yes" {
		fmt.Println("Aborted.")
		return nil
	}

	if err := a.api.DeleteFolder(ctx, id); err != nil {
		log.Printf("DeleteFolder failed: %s", err.Error())
		return err
	}

	fmt.Println("Deleted.")
	return nil
}
