package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/vango-go/foodtrack/internal/authstore"
)

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in and remember the session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Account email"},
			&cli.StringFlag{Name: "password", Usage: "Account password", EnvVars: []string{"FOODTRACK_PASSWORD"}},
		},
		Action: runLogin,
	}
}

func runLogin(c *cli.Context) error {
	e := envFrom(c)
	email, password := c.String("email"), c.String("password")

	var err error
	if email == "" {
		if email, err = e.prompt("Email: "); err != nil {
			return fmt.Errorf("read email: %w", err)
		}
	}
	if password == "" {
		if password, err = e.prompt("Password: "); err != nil {
			return fmt.Errorf("read password: %w", err)
		}
	}

	creds, err := e.client(nil).Auth.Login(c.Context, email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if err := e.store.Save(*creds); err != nil {
		return err
	}
	e.logger.Info().Str("user_id", creds.User.ID).Msg("logged in")
	fmt.Fprintf(e.out, "Logged in as %s\n", creds.User.DisplayName())
	return nil
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Forget the stored session",
		Action: func(c *cli.Context) error {
			e := envFrom(c)
			if err := e.store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(e.out, "Logged out")
			return nil
		},
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the logged-in user",
		Action: func(c *cli.Context) error {
			e := envFrom(c)
			creds, err := e.store.Load()
			if errors.Is(err, authstore.ErrNotLoggedIn) {
				fmt.Fprintln(e.out, "Not logged in")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "%s <%s> (id %s)\n", creds.User.DisplayName(), creds.User.Email, creds.User.ID)
			if exp, ok := authstore.TokenExpiry(creds.Token); ok {
				fmt.Fprintf(e.out, "Session expires %s\n", exp.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}
