package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/vango-go/foodtrack/internal/authstore"
	"github.com/vango-go/foodtrack/internal/config"
	"github.com/vango-go/foodtrack/internal/logging"
	"github.com/vango-go/foodtrack/pkg/core/types"
	foodtrack "github.com/vango-go/foodtrack/sdk"
)

const envKey = "env"

// env is the per-invocation state built in Before.
type env struct {
	cfg    *config.Config
	logger zerolog.Logger
	store  *authstore.Store
	in     *bufio.Reader
	out    io.Writer
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "foodtrack",
		Usage:     "Log meals by voice or text",
		Version:   version,
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				EnvVars: []string{"FOODTRACK_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Read FOODTRACK_ variables from `FILE`",
				Value: ".env",
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load(config.Options{Path: c.String("config"), EnvFile: c.String("env-file")})
			if err != nil {
				return err
			}
			logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: c.App.ErrWriter})
			if err != nil {
				return err
			}
			c.App.Metadata = map[string]any{envKey: &env{
				cfg:    cfg,
				logger: logger,
				store:  authstore.New(cfg.Session.Path),
				in:     bufio.NewReader(c.App.Reader),
				out:    c.App.Writer,
			}}
			return nil
		},
		Commands: []*cli.Command{
			loginCommand(),
			logoutCommand(),
			whoamiCommand(),
			chatCommand(),
			logsCommand(),
			classifyCommand(),
			configCommand(),
		},
	}
}

func envFrom(c *cli.Context) *env {
	return c.App.Metadata[envKey].(*env)
}

// client builds a backend client, authenticated when creds is non-nil.
func (e *env) client(creds *types.Credentials) *foodtrack.Client {
	opts := []foodtrack.ClientOption{
		foodtrack.WithBaseURL(e.cfg.Backend.BaseURL),
		foodtrack.WithTimeout(e.cfg.Backend.Timeout),
		foodtrack.WithRateLimit(e.cfg.Backend.RequestsPerSecond, 1),
		foodtrack.WithLogger(e.logger),
	}
	if creds != nil {
		opts = append(opts, foodtrack.WithToken(creds.Token))
	}
	return foodtrack.NewClient(opts...)
}

// session returns the stored login or a hint to run login.
func (e *env) session() (*types.Credentials, error) {
	creds, err := e.store.Load()
	if err != nil {
		if errors.Is(err, authstore.ErrNotLoggedIn) {
			return nil, errors.New("not logged in; run `foodtrack login`")
		}
		return nil, err
	}
	return creds, nil
}

func (e *env) prompt(label string) (string, error) {
	fmt.Fprint(e.out, label)
	line, err := e.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
