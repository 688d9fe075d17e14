package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/aussiebroadwan/authsession/pkg/authsdk"
)

var cmdWatch = &cli.Command{
	Name:  "watch",
	Usage: "keep the session fresh and print lifecycle events until interrupted",
	Flags: []cli.Flag{
		&cli.DurationFlag{
			Name:  "interval",
			Usage: "how often the client is re-fetched",
			Value: 10 * time.Second,
		},
	},
	Action: runWatch,
}

func runWatch(cctx *cli.Context) error {
	ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(cctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	events, cancel := s.sdk.Subscribe(0)
	defer cancel()

	ticker := time.NewTicker(cctx.Duration("interval"))
	defer ticker.Stop()

	active := s.sdk.ActiveSessionID()
	fmt.Fprintf(s.out, "%s\twatching, active session %q\n", stamp(time.Now()), active)

	for {
		select {
		case <-ctx.Done():
			return nil

		case e, ok := <-events:
			if !ok {
				return nil
			}
			fmt.Fprintf(s.out, "%s\t%s\n", stamp(e.At), describe(e))

		case <-ticker.C:
			if _, err := s.sdk.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Warn("client refresh failed", "error", err)
				continue
			}
			if now := s.sdk.ActiveSessionID(); now != active {
				fmt.Fprintf(s.out, "%s\tactive session %q -> %q\n", stamp(time.Now()), active, now)
				active = now
			}
		}
	}
}

func describe(e authsdk.Event) string {
	switch {
	case e.SignIn != nil:
		return fmt.Sprintf("%s sign_in=%s session=%s", e.Type, e.SignIn.ID, e.SignIn.CreatedSessionID)
	case e.SignUp != nil:
		return fmt.Sprintf("%s sign_up=%s session=%s", e.Type, e.SignUp.ID, e.SignUp.CreatedSessionID)
	case e.Session != nil:
		return fmt.Sprintf("%s session=%s status=%s", e.Type, e.Session.ID, e.Session.Status)
	default:
		return string(e.Type)
	}
}

func stamp(t time.Time) string { return t.Format(time.TimeOnly) }
