package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/chazu/inliner/assembly"
	"github.com/chazu/inliner/journal"
	"github.com/chazu/inliner/manifest"
	"github.com/chazu/inliner/optimizer"
	"github.com/chazu/inliner/policy"
)

var (
	outDirFlag = &cli.StringFlag{
		Name:    "out-dir",
		Aliases: []string{"o"},
		Usage:   "directory for optimized assemblies (default: next to the input)",
	}
	suffixFlag = &cli.StringFlag{
		Name:  "suffix",
		Usage: "suffix inserted before the output file extension",
	}
	passesFlag = &cli.StringSliceFlag{
		Name:  "passes",
		Usage: "comma-separated pass names, in priority order",
	}
	inlineBudgetFlag = &cli.IntFlag{
		Name:  "inline-budget",
		Usage: "maximum calls inlined into one method (0 = unlimited)",
		Value: -1,
	}
	journalFlag = &cli.StringFlag{
		Name:    "journal",
		Aliases: []string{"j"},
		Usage:   "record runs in this SQLite database",
	}
	noJournalFlag = &cli.BoolFlag{
		Name:  "no-journal",
		Usage: "do not record the run even if a journal is configured",
	}
)

var optimizeCommand = &cli.Command{
	Name:      "optimize",
	Usage:     "Optimize assemblies and write the results",
	ArgsUsage: "<assembly> [assembly...]",
	Flags: []cli.Flag{
		outDirFlag,
		suffixFlag,
		passesFlag,
		inlineBudgetFlag,
		journalFlag,
		noJournalFlag,
	},
	Action: optimizeAction,
}

func optimizeAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("no input assemblies given", 2)
	}
	inputs := c.Args().Slice()

	m, err := loadConfig(c, filepath.Dir(inputs[0]))
	if err != nil {
		return err
	}
	configureLogging(c, m)
	applyFlags(c, m)
	if err := m.Validate(); err != nil {
		return err
	}

	var j *journal.Journal
	if path := m.JournalPath(); path != "" && !c.Bool(noJournalFlag.Name) {
		if j, err = journal.Open(path); err != nil {
			return err
		}
		defer j.Close()
	}

	for _, input := range inputs {
		run, err := optimizeFile(input, m)
		if err != nil {
			return err
		}
		printRun(c.App.Writer, run)
		if j != nil {
			if err := j.Record(run); err != nil {
				return errors.Wrapf(err, "journal %s", j.Path())
			}
		}
	}
	return nil
}

// applyFlags lets command line flags override the configuration file.
func applyFlags(c *cli.Context, m *manifest.Manifest) {
	if c.IsSet(outDirFlag.Name) {
		m.Output.Dir = c.String(outDirFlag.Name)
	}
	if c.IsSet(suffixFlag.Name) {
		m.Output.Suffix = c.String(suffixFlag.Name)
	}
	if c.IsSet(passesFlag.Name) {
		m.Optimizer.Passes = c.StringSlice(passesFlag.Name)
	}
	if b := c.Int(inlineBudgetFlag.Name); b >= 0 {
		m.Optimizer.InlineBudget = b
	}
	if c.IsSet(journalFlag.Name) {
		m.Journal.Path = c.String(journalFlag.Name)
	}
}

// optimizeFile reads one assembly, runs the configured passes over every
// method and writes the result.
func optimizeFile(input string, m *manifest.Manifest) (*journal.Run, error) {
	started := time.Now()

	file, err := assembly.ReadFile(input)
	if err != nil {
		return nil, err
	}
	asm := file.Assembly
	if file.Header.Optimized() {
		log.Warningf("%s is already optimized", input)
	}

	names := m.Optimizer.Passes
	if len(names) == 0 {
		names = optimizer.DefaultPassNames
	}
	p := policy.NewBaseline(m.Inline.MaxInstructions, m.Inline.MaxLocals, m.Inline.Exclude...)
	passes, err := optimizer.PassesByName(names, p, len(asm.Methods()))
	if err != nil {
		return nil, err
	}

	o := optimizer.New(asm, passes, optimizer.WithInlineBudget(m.Optimizer.InlineBudget))
	if err := o.Run(asm); err != nil {
		return nil, errors.Wrapf(err, "optimize %s", input)
	}

	out := assembly.OutputPath(input, asm, m.OutputDir(), m.Output.Suffix)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return nil, errors.Wrap(err, "create output directory")
	}
	if err := assembly.WriteFile(out, asm, file.Header.Flags|assembly.FlagOptimized); err != nil {
		return nil, err
	}
	log.Infof("wrote %s", out)

	return journal.NewRun(input, out, asm.Name, started, o.Stats()), nil
}

func printRun(w io.Writer, r *journal.Run) {
	fmt.Fprintf(w, "%s -> %s\n", r.Input, r.Output)
	fmt.Fprintf(w, "  methods: %d, inlined: %d, instructions: %d -> %d\n",
		r.Methods, r.Inlined, r.InstructionsBefore, r.InstructionsAfter)
	for _, name := range journal.PassNames(r.Passes) {
		fmt.Fprintf(w, "  %-26s %d\n", name, r.Passes[name])
	}
}
