package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/chazu/inliner/journal"
)

var (
	limitFlag = &cli.IntFlag{
		Name:    "limit",
		Aliases: []string{"n"},
		Usage:   "show at most this many runs (0 = all)",
		Value:   10,
	}
	totalsFlag = &cli.BoolFlag{
		Name:  "totals",
		Usage: "show pass counts summed over every run",
	}
)

var runsCommand = &cli.Command{
	Name:  "runs",
	Usage: "Show recorded optimizer runs",
	Flags: []cli.Flag{
		journalFlag,
		limitFlag,
		totalsFlag,
	},
	Action: runsAction,
}

func runsAction(c *cli.Context) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	m, err := loadConfig(c, wd)
	if err != nil {
		return err
	}
	configureLogging(c, m)
	if c.IsSet(journalFlag.Name) {
		m.Journal.Path = c.String(journalFlag.Name)
	}
	path := m.JournalPath()
	if path == "" {
		return cli.Exit("no journal configured (use --journal or [journal] path)", 2)
	}

	j, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer j.Close()

	if c.Bool(totalsFlag.Name) {
		totals, err := j.Totals()
		if err != nil {
			return err
		}
		printTotals(c.App.Writer, totals)
		return nil
	}

	runs, err := j.Runs(c.Int(limitFlag.Name))
	if err != nil {
		return err
	}
	printRuns(c.App.Writer, runs)
	return nil
}

func printRuns(w io.Writer, runs []*journal.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %s  %s\n", r.ID, r.Started.Format("2006-01-02 15:04:05"), r.Assembly)
		printRun(w, r)
	}
}

func printTotals(w io.Writer, totals map[string]int) {
	for _, name := range journal.PassNames(totals) {
		fmt.Fprintf(w, "%-26s %d\n", name, totals[name])
	}
}
