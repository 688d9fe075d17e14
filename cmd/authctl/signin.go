package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/urfave/cli/v2"

	"github.com/aussiebroadwan/authsession/pkg/authsdk"
	"github.com/aussiebroadwan/authsession/pkg/strategy"
)

var cmdSignIn = &cli.Command{
	Name:  "signin",
	Usage: "sign in and make the new session active",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "identifier",
			Aliases: []string{"i"},
			Usage:   "email address, phone number or username",
			EnvVars: []string{"AUTHCTL_IDENTIFIER"},
		},
		&cli.StringFlag{
			Name:    "password",
			Aliases: []string{"p"},
			Usage:   "account password, prompted for when the password factor is chosen",
			EnvVars: []string{"AUTHCTL_PASSWORD"},
		},
		&cli.StringFlag{
			Name:  "prefer",
			Usage: "first factor preference: password or otp",
			Value: "password",
		},
		&cli.StringFlag{
			Name:  "code",
			Usage: "one-time code for the email or phone factor",
		},
		&cli.StringFlag{
			Name:    "totp-secret",
			Usage:   "generate the TOTP second factor from this base32 secret",
			EnvVars: []string{"AUTHCTL_TOTP_SECRET"},
		},
		&cli.StringFlag{
			Name:  "totp-code",
			Usage: "TOTP code for the second factor",
		},
		&cli.StringFlag{
			Name:  "backup-code",
			Usage: "use a backup code as the second factor",
		},
		&cli.StringFlag{
			Name:  "oauth",
			Usage: "sign in with an OAuth provider (e.g. google, github) instead of an identifier",
		},
	},
	Action: runSignIn,
}

func runSignIn(cctx *cli.Context) error {
	ctx := cctx.Context

	s, err := openSession(cctx, false)
	if err != nil {
		return err
	}
	defer s.Close()

	if provider := cctx.String("oauth"); provider != "" {
		res, err := s.sdk.SignInWithRedirect(ctx, strategy.OAuth{Provider: provider}, s.authenticator())
		if err != nil {
			return err
		}
		if res.SignUp != nil {
			return reportSignUp(s, res.SignUp)
		}
		return finishSignIn(cctx, s, res.SignIn)
	}

	identifier, err := s.valueOrPrompt(cctx.String("identifier"), "Identifier")
	if err != nil {
		return err
	}

	si, err := s.sdk.SignIn(ctx, strategy.Identifier{
		Identifier: identifier,
		Password:   cctx.String("password"),
	})
	if err != nil {
		return err
	}
	return finishSignIn(cctx, s, si)
}

// finishSignIn walks the attempt through its remaining steps.
func finishSignIn(cctx *cli.Context, s *session, si *authsdk.SignIn) error {
	ctx := cctx.Context

	for {
		var err error
		switch si.Status {
		case authsdk.SignInComplete:
			fmt.Fprintf(s.out, "signed in, session %s\n", si.CreatedSessionID)
			return nil
		case authsdk.SignInNeedsFirstFactor:
			si, err = attemptFirstFactor(ctx, cctx, s, si)
		case authsdk.SignInNeedsSecondFactor:
			si, err = attemptSecondFactor(ctx, cctx, s, si)
		case authsdk.SignInNeedsNewPassword:
			var password string
			if password, err = s.prompt("New password"); err == nil {
				si, err = si.ResetPassword(ctx, authsdk.ResetPasswordParams{Password: password})
			}
		default:
			return fmt.Errorf("sign-in cannot continue from status %q", si.Status)
		}
		if err != nil {
			return err
		}
	}
}

func attemptFirstFactor(ctx context.Context, cctx *cli.Context, s *session, si *authsdk.SignIn) (*authsdk.SignIn, error) {
	factor, ok := si.SelectFirstFactor(authsdk.PolicyFor(cctx.String("prefer")))
	if !ok {
		return nil, fmt.Errorf("sign-in offers no first factor")
	}
	s.logger.Debug("first factor selected", "strategy", factor.Strategy, "sign_in_id", si.ID)

	switch factor.Strategy {
	case strategy.NamePassword:
		password, err := s.valueOrPrompt(cctx.String("password"), "Password")
		if err != nil {
			return nil, err
		}
		return si.AttemptFirstFactor(ctx, strategy.PasswordAttempt{Password: password})

	case strategy.NameEmailCode:
		si, err := si.PrepareFirstFactor(ctx, strategy.EmailCode{EmailAddressID: factor.EmailAddressID})
		if err != nil {
			return nil, err
		}
		code, err := s.valueOrPrompt(cctx.String("code"), "Code sent to "+factor.SafeIdentifier)
		if err != nil {
			return nil, err
		}
		return si.AttemptFirstFactor(ctx, strategy.EmailCodeAttempt{Code: code})

	case strategy.NamePhoneCode:
		si, err := si.PrepareFirstFactor(ctx, strategy.PhoneCode{PhoneNumberID: factor.PhoneNumberID})
		if err != nil {
			return nil, err
		}
		code, err := s.valueOrPrompt(cctx.String("code"), "Code sent to "+factor.SafeIdentifier)
		if err != nil {
			return nil, err
		}
		return si.AttemptFirstFactor(ctx, strategy.PhoneCodeAttempt{Code: code})

	default:
		return nil, fmt.Errorf("first factor %q is not supported from the terminal", factor.Strategy)
	}
}

func attemptSecondFactor(ctx context.Context, cctx *cli.Context, s *session, si *authsdk.SignIn) (*authsdk.SignIn, error) {
	if code := cctx.String("backup-code"); code != "" {
		return si.AttemptSecondFactor(ctx, strategy.BackupCodeAttempt{Code: code})
	}

	factor, ok := si.SelectSecondFactor()
	if !ok {
		return nil, fmt.Errorf("sign-in offers no second factor")
	}

	switch factor.Strategy {
	case strategy.NameTOTP:
		code := cctx.String("totp-code")
		if secret := cctx.String("totp-secret"); code == "" && secret != "" {
			var err error
			if code, err = totp.GenerateCode(secret, time.Now()); err != nil {
				return nil, fmt.Errorf("failed to generate TOTP code: %w", err)
			}
		}
		code, err := s.valueOrPrompt(code, "Authenticator code")
		if err != nil {
			return nil, err
		}
		return si.AttemptSecondFactor(ctx, strategy.TOTPAttempt{Code: code})

	case strategy.NamePhoneCode:
		si, err := si.PrepareSecondFactor(ctx, strategy.PhoneCode{PhoneNumberID: factor.PhoneNumberID})
		if err != nil {
			return nil, err
		}
		code, err := s.valueOrPrompt(cctx.String("code"), "Code sent to "+factor.SafeIdentifier)
		if err != nil {
			return nil, err
		}
		return si.AttemptSecondFactor(ctx, strategy.PhoneCodeAttempt{Code: code})

	default:
		return nil, fmt.Errorf("second factor %q is not supported from the terminal", factor.Strategy)
	}
}
