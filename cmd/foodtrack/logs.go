package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/vango-go/foodtrack/pkg/core/classify"
	"github.com/vango-go/foodtrack/pkg/core/types"
)

func logsCommand() *cli.Command {
	return &cli.Command{
		Name:  "logs",
		Usage: "List your food logs",
		Action: func(c *cli.Context) error {
			e := envFrom(c)
			creds, err := e.session()
			if err != nil {
				return err
			}
			logs, err := e.client(creds).FoodLogs.List(c.Context, creds.User.ID)
			if err != nil {
				return fmt.Errorf("list food logs: %w", err)
			}
			if len(logs) == 0 {
				fmt.Fprintln(e.out, "No food logs yet")
				return nil
			}
			return printLogs(e, logs)
		},
	}
}

func printLogs(e *env, logs []types.FoodLog) error {
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tMEAL\tFOOD\tNOTES")
	for _, l := range logs {
		notes := ""
		if l.Notes != nil {
			notes = *l.Notes
		}
		fmt.Fprintf(tw, "%s\t%s %s\t%s\t%s\n",
			l.LoggedAt.Local().Format("Jan 2 15:04"),
			l.MealType.Glyph(), l.MealType,
			strings.Join(l.FoodItems, ", "),
			notes)
	}
	return tw.Flush()
}

func classifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "classify",
		Usage:     "Show how an utterance would be logged, without submitting it",
		ArgsUsage: "TEXT",
		Action: func(c *cli.Context) error {
			e := envFrom(c)
			text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if text == "" {
				return errors.New("classify needs some text")
			}
			meal, ok := classify.Classify(text)
			if !ok {
				fmt.Fprintf(e.out, "meal: none\nreply: %s\n", classify.ClarifyReply)
				return nil
			}
			fmt.Fprintf(e.out, "meal: %s %s\nreply: %s\n", meal, meal.Glyph(), classify.LoggedReply(meal))
			return nil
		},
	}
}
