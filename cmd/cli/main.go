package main

import (
	"context"

	"github.com/avorobjovs/keyguard/internal/client/cli"
	"github.com/avorobjovs/keyguard/internal/client/config"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	app := cli.NewApp(cfg)
	app.Run(ctx)
}
