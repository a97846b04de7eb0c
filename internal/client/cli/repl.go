package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Add(ctx context.Context) error
	List(ctx context.Context) error
	Show(ctx context.Context) error
	Delete(ctx context.Context) error
	Move(ctx context.Context) error
	Folders(ctx context.Context) error
	AddFolder(ctx context.Context) error
	DeleteFolder(ctx context.Context) error
	Guardians(ctx context.Context) error
	AddGuardian(ctx context.Context) error
	RemoveGuardian(ctx context.Context) error
	Recover(ctx context.Context) error
}

// runREPL starts a read-eval-print loop for the KeyGuard CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Any errors returned by command handlers are ignored here; handlers print
// their own errors. This keeps the loop focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("kg> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: add, (l)ist, show, delete, move, folders, addfolder, delfolder, guardians, addguardian, delguardian, logout, exit")
			} else {
				printlnFn("Available commands: register, login, recover, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "add":
			_ = a.Add(ctx)

		case "l", "list":
			_ = a.List(ctx)

		case "show":
			_ = a.Show(ctx)

		case "delete":
			_ = a.Delete(ctx)

		case "move":
			_ = a.Move(ctx)

		case "folders":
			_ = a.Folders(ctx)

		case "addfolder":
			_ = a.AddFolder(ctx)

		case "delfolder":
			_ = a.DeleteFolder(ctx)

		case "guardians":
			_ = a.Guardians(ctx)

		case "addguardian":
			_ = a.AddGuardian(ctx)

		case "delguardian":
			_ = a.RemoveGuardian(ctx)

		case "recover":
			_ = a.Recover(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
