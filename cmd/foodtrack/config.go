package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/vango-go/foodtrack/internal/config"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write a sample configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
						Value:   "foodtrack.toml",
					},
				},
				Action: func(c *cli.Context) error {
					path := c.String("output")
					if err := config.InitFile(path); err != nil {
						return fmt.Errorf("failed to initialize config: %w", err)
					}
					fmt.Fprintf(envFrom(c).out, "Created configuration file at %s\n", path)
					return nil
				},
			},
			{
				Name:  "validate",
				Usage: "Validate the resolved configuration",
				Action: func(c *cli.Context) error {
					e := envFrom(c)
					if err := config.Validate(e.cfg); err != nil {
						return fmt.Errorf("invalid configuration: %w", err)
					}
					fmt.Fprintln(e.out, "Configuration is valid")
					return nil
				},
			},
		},
	}
}
