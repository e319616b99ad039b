// Package cli provides the command-line interface for uitap.
package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/uitap-dev/uitap/pkg/config"
	"github.com/uitap-dev/uitap/pkg/logger"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config.yaml (default: search the workspace)",
		EnvVars: []string{"UITAP_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "device",
		Aliases: []string{"s"},
		Usage:   "Device serial to target (default: first connected)",
		EnvVars: []string{"UITAP_DEVICE"},
	},
	&cli.StringFlag{
		Name:    "templates-dir",
		Usage:   "Template store directory",
		EnvVars: []string{"UITAP_TEMPLATES_DIR"},
	},
	&cli.StringFlag{
		Name:    "log-file",
		Usage:   "Write JSON logs to this file instead of stderr",
		EnvVars: []string{"UITAP_LOG_FILE"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Enable debug logging",
		EnvVars: []string{"UITAP_VERBOSE"},
	},
}

// Execute runs the CLI.
func Execute() {
	app := NewApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// NewApp builds the CLI application.
func NewApp() *cli.App {
	return &cli.App{
		Name:    "uitap",
		Usage:   "Drive Android apps through hierarchy, template and OCR element location",
		Version: Version,
		Description: `uitap locates on-screen elements from adb snapshots and interacts
with them, scripted through YAML task files.

Examples:
  uitap run task.yaml
  uitap capture send_button --region "[900,1700][1060,1800]"
  uitap templates list
  uitap dump`,
		Flags: GlobalFlags,
		Before: func(c *cli.Context) error {
			return logger.Init(c.String("log-file"), c.Bool("verbose"))
		},
		After: func(c *cli.Context) error {
			logger.Close()
			return nil
		},
		Commands: []*cli.Command{
			runCommand,
			captureCommand,
			templatesCommand,
			dumpCommand,
			doctorCommand,
		},
	}
}

// loadConfig resolves configuration and applies global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFromDir(config.GetHome())
	}
	if err != nil {
		return nil, err
	}

	if serial := c.String("device"); serial != "" {
		cfg.Device = serial
	}
	if dir := c.String("templates-dir"); dir != "" {
		cfg.TemplatesDir = dir
	}
	return cfg, nil
}
