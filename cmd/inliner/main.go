// inliner - post-compilation optimizer for IL assemblies
package main

import (
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"github.com/urfave/cli/v2"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "path to inliner.toml (default: searched upward from the input)",
	}
	verbosityFlag = &cli.IntFlag{
		Name:    "verbosity",
		Aliases: []string{"v"},
		Usage:   "log verbosity (0 = warnings and errors only)",
		Value:   -1,
	}
	logFileFlag = &cli.StringFlag{
		Name:  "log-file",
		Usage: "write logs to this file instead of stderr",
	}
)

var log = commonlog.GetLogger("inliner")

func newApp() *cli.App {
	return &cli.App{
		Name:  "inliner",
		Usage: "optimize IL assemblies by inlining small methods and cleaning up branches",
		Flags: []cli.Flag{
			configFlag,
			verbosityFlag,
			logFileFlag,
		},
		Commands: []*cli.Command{
			optimizeCommand,
			dumpCommand,
			runsCommand,
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
