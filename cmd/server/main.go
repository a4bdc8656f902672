package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/Skufu/radiolens/internal/logging"
)

const version = "2.0.0"

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "radiolens",
		Usage:   "Medical image analysis API",
		Version: version,
		Action:  serve,
		Commands: []*cli.Command{
			CmdServe,
			CmdMigrate,
		},
	}
}

func main() {
	logging.Init()

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
