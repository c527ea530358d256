package cli

import (
	"fmt"

	urfave "github.com/urfave/cli/v2"

	"github.com/conversationai/goldeval/pkg/data"
)

const historyLimitDefault = 50

var (
	historyLimitFlag = &urfave.IntFlag{
		Name:  "limit",
		Usage: "Limits the number of runs returned",
		Value: historyLimitDefault,
	}

	runIDFlag = &urfave.Int64Flag{
		Name:     "id",
		Usage:    "Run ID",
		Required: true,
	}

	historyCmd = &urfave.Command{
		Name:            "history",
		Aliases:         []string{"h"},
		HideHelpCommand: true,
		Usage:           "Query previously recorded evaluation runs",
		Subcommands: []*urfave.Command{
			{
				Name:    "list",
				Aliases: []string{"l"},
				Usage:   "List recent runs",
				Action:  cmdListRuns,
				Flags: []urfave.Flag{
					historyLimitFlag,
				},
			},
			{
				Name:    "get",
				Aliases: []string{"g"},
				Usage:   "Get a single run with all its metrics",
				Action:  cmdGetRun,
				Flags: []urfave.Flag{
					runIDFlag,
				},
			},
		},
	}
)

func cmdListRuns(c *urfave.Context) error {
	cfg := getConfig(c)

	limit := c.Int(historyLimitFlag.Name)
	if limit < 1 {
		limit = historyLimitDefault
	}

	list, err := data.ListRuns(cfg.DB, limit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	if err := encode(list); err != nil {
		return fmt.Errorf("error encoding runs: %w", err)
	}
	return nil
}

func cmdGetRun(c *urfave.Context) error {
	cfg := getConfig(c)

	run, err := data.GetRun(cfg.DB, c.Int64(runIDFlag.Name))
	if err != nil {
		return fmt.Errorf("getting run: %w", err)
	}

	if err := encode(run); err != nil {
		return fmt.Errorf("error encoding run: %w", err)
	}
	return nil
}
