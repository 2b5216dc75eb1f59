package main

import (
	"github.com/urfave/cli/v2"
)

// newApp builds the CLI. Running without a command starts the server.
func newApp() *cli.App {
	s := &srv{}
	return &cli.App{
		Name:  "chat-server",
		Usage: "Real-time group chat backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				Usage:   "dotenv file loaded before reading configuration",
				Value:   ".env",
				EnvVars: []string{"ENV_FILE"},
			},
		},
		Before: s.loadConfig,
		Action: s.startServer,
		Commands: []*cli.Command{
			{
				Action:      s.startServer,
				Name:        "serve",
				Usage:       "Start the HTTP API and realtime gateway",
				Category:    "Server",
				Description: `Runs migrations, then serves the API, the websocket gateway and the orphan sweeper until SIGINT or SIGTERM.`,
			},
			{
				Action:      s.runMigrate,
				Name:        "migrate",
				Usage:       "Create or update the database schema",
				Category:    "Database",
				Description: `Applies the schema for users, messages and attachments and exits.`,
			},
			{
				Action:      s.runSweep,
				Name:        "sweep",
				Usage:       "Remove orphaned attachments once",
				Category:    "Maintenance",
				Description: `Deletes attachment rows no message references and upload files no row references, then exits.`,
			},
		},
	}
}
