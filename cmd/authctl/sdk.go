package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/carlmjohnson/versioninfo"
	"github.com/urfave/cli/v2"

	"github.com/aussiebroadwan/authsession/pkg/authsdk"
	"github.com/aussiebroadwan/authsession/pkg/cryptox"
	"github.com/aussiebroadwan/authsession/pkg/localstore"
	"github.com/aussiebroadwan/authsession/pkg/localstore/drivers/file"
	"github.com/aussiebroadwan/authsession/pkg/localstore/drivers/sqlite"
	"github.com/aussiebroadwan/authsession/pkg/slogx"
)

const storeKeyInfo = "authsession/localstore"

// session bundles what every command needs: a loaded SDK client and a way
// to ask the user for input.
type session struct {
	sdk    *authsdk.SDKClient
	store  localstore.Store
	logger *slog.Logger
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
}

func (s *session) Close() error {
	return errors.Join(s.sdk.Close(), s.store.Close())
}

// openSession builds the SDK from the global flags and loads the device's
// client. polling enables background token refresh, which only long running
// commands want.
func openSession(cctx *cli.Context, polling bool) (*session, error) {
	logger := slogx.New(slogx.Config{
		Service: "authctl",
		Version: versioninfo.Short(),
		Env:     "cli",
		Level:   cctx.String("log-level"),
		Format:  "text",
		Output:  cctx.App.ErrWriter,
	})

	store, err := openStore(cctx, logger)
	if err != nil {
		return nil, err
	}

	sdk, err := authsdk.NewSDKClient(authsdk.Config{
		BaseURL:             cctx.String("backend"),
		ProxyURL:            cctx.String("proxy-url"),
		ClientID:            cctx.String("client-id"),
		Logger:              logger,
		Store:               store,
		DisableTokenPolling: !polling,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	s := &session{
		sdk:    sdk,
		store:  store,
		logger: logger,
		in:     bufio.NewReader(cctx.App.Reader),
		out:    cctx.App.Writer,
		errOut: cctx.App.ErrWriter,
	}
	if _, err := sdk.Load(cctx.Context); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to load client: %w", err)
	}
	return s, nil
}

func openStore(cctx *cli.Context, logger *slog.Logger) (localstore.Store, error) {
	var (
		store    localstore.Store
		location string
	)
	switch {
	case cctx.String("state-db") != "":
		location = cctx.String("state-db")
		db, err := sqlite.Open(location)
		if err != nil {
			return nil, err
		}
		store = db
	case cctx.String("state-file") != "":
		fstore, err := file.OpenPath(cctx.String("state-file"))
		if err != nil {
			return nil, err
		}
		store, location = fstore, fstore.Path()
	default:
		fstore, err := file.Open("authctl", "state.json")
		if err != nil {
			return nil, err
		}
		store, location = fstore, fstore.Path()
	}

	key := cctx.String("store-key")
	if key == "" {
		logger.Warn("device state is stored unencrypted, set AUTHCTL_STORE_KEY to seal it", "path", location)
		return store, nil
	}

	sealer, err := cryptox.NewSealer([]byte(key), storeKeyInfo)
	if err != nil {
		store.Close()
		return nil, err
	}
	return localstore.Sealed(store, sealer), nil
}

// prompt asks for one line of input. An empty answer is an error.
func (s *session) prompt(label string) (string, error) {
	fmt.Fprintf(s.errOut, "%s: ", label)
	line, err := s.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading %s: %w", label, err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%s is required", label)
	}
	return line, nil
}

// valueOrPrompt returns the flag value when set and asks for it otherwise.
func (s *session) valueOrPrompt(value, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	return s.prompt(label)
}

// authenticator shows the provider URL and waits for the user to paste the
// URL the provider redirected their browser to.
func (s *session) authenticator() authsdk.RedirectAuthenticator {
	return authsdk.RedirectAuthenticatorFunc(func(_ context.Context, authURL *url.URL) (*url.URL, error) {
		fmt.Fprintf(s.errOut, "Open this URL to continue:\n\n  %s\n\n", authURL)
		raw, err := s.prompt("Callback URL")
		if err != nil {
			return nil, err
		}
		return url.Parse(raw)
	})
}
