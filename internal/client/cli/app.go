// Package cli implements the interactive KeyGuard client: a REPL over the
// REST API with the session secret held only in process memory.
package cli

import (
	"bufio"
	"context"
	"os"

	"github.com/avorobjovs/keyguard/internal/client/api"
	"github.com/avorobjovs/keyguard/internal/client/config"
	"github.com/avorobjovs/keyguard/internal/common"
)

type App struct {
	config *config.Config
	api    *api.Client
	reader *bufio.Reader

	// Session state. vaultSecret is the plaintext login password, kept only
	// for deriving the server-side encryption key on vault calls; it is wiped
	// on logout and never written anywhere.
	username    string
	vaultSecret []byte
}

func NewApp(c *config.Config) *App {
	return &App{
		config: c,
		api:    api.New(c.ServerEndpointAddr, c.RequestTimeout),
		reader: bufio.NewReader(os.Stdin),
	}
}

func (a *App) isLoggedIn() bool {
	return a.api.IsAuthenticated()
}

func (a *App) secret() string {
	return string(a.vaultSecret)
}

func (a *App) clearSession() {
	common.WipeByteArray(a.vaultSecret)
	a.vaultSecret = nil
	a.username = ""
}

func (a *App) Run(ctx context.Context) {
	runREPL(ctx, a, func() string {
		if a.isLoggedIn() {
			return a.username
		}
		return "not logged in"
	}, bufio.NewScanner(os.Stdin))
}
