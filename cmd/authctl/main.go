package main

import (
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/carlmjohnson/versioninfo"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(-1)
	}
}

var globalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "backend",
		Usage:   "method, hostname, and port of the auth backend",
		Value:   "http://localhost:8080",
		EnvVars: []string{"AUTHCTL_BACKEND_URL"},
	},
	&cli.StringFlag{
		Name:    "proxy-url",
		Usage:   "route requests through a proxy path on your own domain (overrides --backend)",
		EnvVars: []string{"AUTHCTL_PROXY_URL"},
	},
	&cli.StringFlag{
		Name:    "client-id",
		Usage:   "application identifier sent with every request",
		EnvVars: []string{"AUTHCTL_CLIENT_ID"},
	},
	&cli.StringFlag{
		Name:    "state-file",
		Usage:   "where device state is kept (default: $XDG_STATE_HOME/authctl/state.json)",
		EnvVars: []string{"AUTHCTL_STATE_FILE"},
	},
	&cli.StringFlag{
		Name:    "state-db",
		Usage:   "keep device state in this sqlite database instead of the state file",
		EnvVars: []string{"AUTHCTL_STATE_DB"},
	},
	&cli.StringFlag{
		Name:    "store-key",
		Usage:   "passphrase used to encrypt device state at rest",
		EnvVars: []string{"AUTHCTL_STORE_KEY"},
	},
	&cli.StringFlag{
		Name:    "log-level",
		Usage:   "debug, info, warn or error",
		Value:   "warn",
		EnvVars: []string{"AUTHCTL_LOG_LEVEL"},
	},
}

func newApp() *cli.App {
	app := &cli.App{
		Name:      "authctl",
		Usage:     "drive authentication sessions from the terminal",
		Version:   versioninfo.Short(),
		Flags:     globalFlags,
		Reader:    os.Stdin,
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
	}
	app.Commands = []*cli.Command{
		cmdSignIn,
		cmdSignUp,
		cmdToken,
		cmdSessions,
		cmdSignOut,
		cmdWatch,
		cmdTOTP,
	}
	return app
}

func run(args []string) error {
	return newApp().Run(args)
}
