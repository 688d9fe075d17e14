package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/aussiebroadwan/authsession/pkg/authsdk"
	"github.com/aussiebroadwan/authsession/pkg/strategy"
)

var cmdSignUp = &cli.Command{
	Name:  "signup",
	Usage: "register a new account and sign in to it",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "email",
			Usage: "email address of the new account",
		},
		&cli.StringFlag{
			Name:  "phone",
			Usage: "phone number of the new account",
		},
		&cli.StringFlag{
			Name:  "username",
			Usage: "username of the new account",
		},
		&cli.StringFlag{
			Name:    "password",
			Aliases: []string{"p"},
			EnvVars: []string{"AUTHCTL_PASSWORD"},
		},
		&cli.StringFlag{
			Name: "first-name",
		},
		&cli.StringFlag{
			Name: "last-name",
		},
		&cli.StringFlag{
			Name:  "metadata",
			Usage: "unsafe metadata as a JSON object",
		},
		&cli.BoolFlag{
			Name:  "accept-legal",
			Usage: "accept the terms of service",
		},
		&cli.StringFlag{
			Name:  "code",
			Usage: "verification code for the email address or phone number",
		},
	},
	Action: runSignUp,
}

func runSignUp(cctx *cli.Context) error {
	ctx := cctx.Context

	create := strategy.Standard{
		EmailAddress:  cctx.String("email"),
		PhoneNumber:   cctx.String("phone"),
		Username:      cctx.String("username"),
		Password:      cctx.String("password"),
		FirstName:     cctx.String("first-name"),
		LastName:      cctx.String("last-name"),
		LegalAccepted: cctx.Bool("accept-legal"),
	}
	if raw := cctx.String("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &create.UnsafeMetadata); err != nil {
			return fmt.Errorf("--metadata must be a JSON object: %w", err)
		}
	}

	s, err := openSession(cctx, false)
	if err != nil {
		return err
	}
	defer s.Close()

	su, err := s.sdk.SignUp(ctx, create)
	if err != nil {
		return err
	}

	for su.Status == authsdk.SignUpMissingRequirements {
		switch {
		case len(su.MissingFields) > 0:
			update, err := promptMissing(s, su.MissingFields)
			if err != nil {
				return err
			}
			if su, err = su.Update(ctx, update); err != nil {
				return err
			}

		case len(su.UnverifiedFields) > 0:
			field := su.UnverifiedFields[0]
			var (
				prep    strategy.VerificationPreparation
				attempt func(code string) strategy.VerificationAttempt
			)
			switch field {
			case authsdk.FieldEmailAddress:
				prep = strategy.EmailCode{}
				attempt = func(code string) strategy.VerificationAttempt { return strategy.EmailCodeAttempt{Code: code} }
			case authsdk.FieldPhoneNumber:
				prep = strategy.PhoneCode{}
				attempt = func(code string) strategy.VerificationAttempt { return strategy.PhoneCodeAttempt{Code: code} }
			default:
				return fmt.Errorf("cannot verify %s from the terminal", field)
			}

			if su, err = su.PrepareVerification(ctx, prep); err != nil {
				return err
			}
			code, err := s.valueOrPrompt(cctx.String("code"), "Code sent to your "+strings.ReplaceAll(field, "_", " "))
			if err != nil {
				return err
			}
			if su, err = su.AttemptVerification(ctx, attempt(code)); err != nil {
				return err
			}

		default:
			return reportSignUp(s, su)
		}
	}
	return reportSignUp(s, su)
}

// promptMissing asks for every missing field the terminal can collect.
func promptMissing(s *session, fields []string) (authsdk.SignUpUpdate, error) {
	var update authsdk.SignUpUpdate
	for _, field := range fields {
		var (
			dst   *string
			label string
		)
		switch field {
		case "email_address":
			dst, label = &update.EmailAddress, "Email address"
		case "phone_number":
			dst, label = &update.PhoneNumber, "Phone number"
		case "username":
			dst, label = &update.Username, "Username"
		case "password":
			dst, label = &update.Password, "Password"
		case "first_name":
			dst, label = &update.FirstName, "First name"
		case "last_name":
			dst, label = &update.LastName, "Last name"
		case "legal_accepted":
			return update, fmt.Errorf("the terms of service must be accepted, pass --accept-legal")
		default:
			return update, fmt.Errorf("cannot collect %s from the terminal", field)
		}

		v, err := s.prompt(label)
		if err != nil {
			return update, err
		}
		*dst = v
	}
	return update, nil
}

func reportSignUp(s *session, su *authsdk.SignUp) error {
	if su.Status == authsdk.SignUpComplete {
		fmt.Fprintf(s.out, "signed up as %s, session %s\n", su.CreatedUserID, su.CreatedSessionID)
		return nil
	}
	return fmt.Errorf("sign-up is %s: missing %v, unverified %v", su.Status, su.MissingFields, su.UnverifiedFields)
}
