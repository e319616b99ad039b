package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/uitap-dev/uitap/pkg/config"
	"github.com/uitap-dev/uitap/pkg/device"
	"github.com/uitap-dev/uitap/pkg/dispatch"
	"github.com/uitap-dev/uitap/pkg/locator"
	"github.com/uitap-dev/uitap/pkg/ocr"
	"github.com/uitap-dev/uitap/pkg/session"
	"github.com/uitap-dev/uitap/pkg/task"
	"github.com/uitap-dev/uitap/pkg/vision"
)

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Run a YAML task file against the connected device",
	ArgsUsage: "<task.yaml>",
	Description: `Parse a task file and execute its steps in a fresh session.

Examples:
  uitap run task.yaml
  uitap run task.yaml --strict
  uitap run task.yaml --timeout 20000`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "strict",
			Usage: "Fail on ambiguous matches instead of taking the first",
		},
		&cli.IntFlag{
			Name:  "timeout",
			Usage: "Default locate timeout in milliseconds",
		},
	},
	Action: runTask,
}

func runTask(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one task file, got %d", c.NArg())
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.Bool("strict") {
		cfg.StrictAmbiguity = true
	}
	if ms := c.Int("timeout"); ms > 0 {
		cfg.LocateTimeoutMs = ms
	}

	tsk, err := task.ParseFile(c.Args().First())
	if err != nil {
		return err
	}

	dev, err := device.New(cfg.Device)
	if err != nil {
		return err
	}

	loc, disp, err := buildStack(dev, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sess := session.New(loc, disp, dev, cfg)
	name := tsk.Name
	if name == "" {
		name = tsk.SourcePath
	}
	fmt.Printf("Running %s (session %s)\n", name, sess.ID())

	results, runErr := sess.Run(ctx, tsk.App, tsk.Steps)
	printResults(results)
	if runErr != nil {
		return fmt.Errorf("task failed: %w", runErr)
	}
	fmt.Printf("Completed %d steps\n", len(results))
	return nil
}

// buildStack wires the locator and dispatcher for one device.
func buildStack(dev *device.AndroidDevice, cfg *config.Config) (*locator.Locator, *dispatch.Dispatcher, error) {
	store, err := vision.LoadStore(cfg.TemplatesDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading template store: %w", err)
	}

	var recognizer ocr.Recognizer = ocr.Disabled{}
	if cfg.OCREndpoint != "" {
		recognizer = ocr.NewRemote(cfg.OCREndpoint)
	}

	loc := locator.New(dev, store, recognizer, cfg)
	disp := dispatch.New(dev, cfg)
	return loc, disp, nil
}

func printResults(results []session.StepResult) {
	for i, r := range results {
		status := "ok"
		if r.Err != nil {
			status = "FAIL"
		}
		line := fmt.Sprintf("  %2d. [%s] %s", i+1, status, r.Step.Name)
		if r.Strategy != "" {
			line += fmt.Sprintf(" via %s at %s", r.Strategy, r.Point)
		}
		if r.Attempts > 1 {
			line += fmt.Sprintf(" (%d attempts)", r.Attempts)
		}
		line += fmt.Sprintf(" %s", r.Duration.Round(time.Millisecond))
		fmt.Println(line)
		if r.Err != nil {
			fmt.Printf("      %v\n", r.Err)
		}
	}
}
