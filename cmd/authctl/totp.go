package main

import (
	"fmt"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/urfave/cli/v2"
)

var cmdTOTP = &cli.Command{
	Name:  "totp",
	Usage: "sub-commands for authenticator app codes",
	Subcommands: []*cli.Command{
		&cli.Command{
			Name:      "code",
			Usage:     "print the current code for a base32 secret",
			ArgsUsage: "<secret>",
			Flags: []cli.Flag{
				&cli.TimestampFlag{
					Name:   "at",
					Usage:  "generate the code for this time instead of now",
					Layout: time.RFC3339,
				},
			},
			Action: runTOTPCode,
		},
		&cli.Command{
			Name:  "generate",
			Usage: "create a new secret and print its otpauth URL",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "issuer",
					Value: "authsession",
				},
				&cli.StringFlag{
					Name:     "account",
					Usage:    "account name shown in the authenticator app",
					Required: true,
				},
			},
			Action: runTOTPGenerate,
		},
	},
}

func runTOTPCode(cctx *cli.Context) error {
	secret := cctx.Args().First()
	if secret == "" {
		return fmt.Errorf("need to provide a secret as an argument")
	}

	at := time.Now()
	if ts := cctx.Timestamp("at"); ts != nil {
		at = *ts
	}

	code, err := totp.GenerateCode(secret, at)
	if err != nil {
		return err
	}
	fmt.Fprintln(cctx.App.Writer, code)
	return nil
}

func runTOTPGenerate(cctx *cli.Context) error {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      cctx.String("issuer"),
		AccountName: cctx.String("account"),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cctx.App.Writer, "secret: %s\nurl:    %s\n", key.Secret(), key.URL())
	return nil
}
