package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/aussiebroadwan/authsession/pkg/authsdk"
	"github.com/aussiebroadwan/authsession/pkg/jwtx"
)

var cmdToken = &cli.Command{
	Name:  "token",
	Usage: "print a session token for the active session",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "session",
			Usage: "mint for this session instead of the active one",
		},
		&cli.StringFlag{
			Name:    "template",
			Aliases: []string{"t"},
			Usage:   "token template to shape the claims with",
		},
		&cli.BoolFlag{
			Name:  "claims",
			Usage: "print the decoded claims instead of the token",
		},
	},
	Action: runToken,
}

var cmdSessions = &cli.Command{
	Name:   "sessions",
	Usage:  "list the sessions on this device",
	Action: runSessions,
}

var cmdSignOut = &cli.Command{
	Name:      "signout",
	Usage:     "end the active session, or the one named",
	ArgsUsage: "[session-id]",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "all",
			Usage: "end every session on this device",
		},
	},
	Action: runSignOut,
}

func runToken(cctx *cli.Context) error {
	ctx := cctx.Context

	s, err := openSession(cctx, false)
	if err != nil {
		return err
	}
	defer s.Close()

	opts := authsdk.TokenOptions{Template: cctx.String("template")}

	var token string
	if id := cctx.String("session"); id != "" {
		token, err = s.sdk.GetSessionToken(ctx, id, opts)
	} else {
		token, err = s.sdk.GetToken(ctx, opts)
	}
	if errors.Is(err, authsdk.ErrNoActiveSession) {
		return fmt.Errorf("not signed in, run authctl signin first")
	}
	if err != nil {
		return err
	}

	if !cctx.Bool("claims") {
		fmt.Fprintln(s.out, token)
		return nil
	}

	claims, err := jwtx.ParseUnverified(token)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(claims, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, string(out))
	return nil
}

func runSessions(cctx *cli.Context) error {
	s, err := openSession(cctx, false)
	if err != nil {
		return err
	}
	defer s.Close()

	client := s.sdk.Client()
	if client == nil || len(client.Sessions) == 0 {
		fmt.Fprintln(s.out, "no sessions")
		return nil
	}

	active := s.sdk.ActiveSessionID()
	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\tSESSION\tSTATUS\tUSER\tLAST ACTIVE\tEXPIRES")
	for _, sess := range client.Sessions {
		marker := ""
		if sess.ID == active {
			marker = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			marker, sess.ID, sess.Status, userLabel(sess.User),
			formatTime(sess.LastActiveAt), formatTime(sess.ExpireAt))
	}
	return w.Flush()
}

func runSignOut(cctx *cli.Context) error {
	s, err := openSession(cctx, false)
	if err != nil {
		return err
	}
	defer s.Close()

	var id string
	switch {
	case cctx.Bool("all"):
	case cctx.Args().Present():
		id = cctx.Args().First()
	default:
		if id = s.sdk.ActiveSessionID(); id == "" {
			return fmt.Errorf("not signed in")
		}
	}

	if err := s.sdk.SignOut(cctx.Context, id); err != nil {
		return err
	}
	if id == "" {
		fmt.Fprintln(s.out, "signed out of every session")
	} else {
		fmt.Fprintf(s.out, "signed out of %s\n", id)
	}
	return nil
}

func userLabel(u *authsdk.User) string {
	switch {
	case u == nil:
		return "-"
	case u.PrimaryEmailAddress != "":
		return u.PrimaryEmailAddress
	case u.PrimaryPhoneNumber != "":
		return u.PrimaryPhoneNumber
	case u.Username != "":
		return u.Username
	default:
		return u.ID
	}
}

func formatTime(t authsdk.Timestamp) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}
