package main

import (
	"github.com/tliron/commonlog"
	"github.com/urfave/cli/v2"

	"github.com/chazu/inliner/manifest"
)

// loadConfig returns the configuration named by --config, or the nearest
// inliner.toml above startDir, or the defaults when there is none.
func loadConfig(c *cli.Context, startDir string) (*manifest.Manifest, error) {
	if path := c.String(configFlag.Name); path != "" {
		return manifest.LoadFile(path)
	}
	m, err := manifest.FindAndLoad(startDir)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return manifest.Default(), nil
	}
	return m, nil
}

// configureLogging applies the log settings of m, with command line flags
// taking precedence.
func configureLogging(c *cli.Context, m *manifest.Manifest) {
	verbosity := m.Log.Verbosity
	if v := c.Int(verbosityFlag.Name); v >= 0 {
		verbosity = v
	}

	var path *string
	if f := c.String(logFileFlag.Name); f != "" {
		path = &f
	} else if f := m.LogFile(); f != "" {
		path = &f
	}
	commonlog.Configure(verbosity, path)
}
