package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/uitap-dev/uitap/pkg/core"
	"github.com/uitap-dev/uitap/pkg/device"
	"github.com/uitap-dev/uitap/pkg/vision"
)

var captureCommand = &cli.Command{
	Name:      "capture",
	Usage:     "Capture a screen region as a named template",
	ArgsUsage: "<name>",
	Description: `Take a screenshot, crop the given region and save it to the template
store for later template matching.

Examples:
  uitap capture send_button --region "[900,1700][1060,1800]"
  uitap capture avatar --region "[900,310][1060,410]" --threshold 0.9`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "region",
			Usage:    "Capture region as [left,top][right,bottom]",
			Required: true,
		},
		&cli.Float64Flag{
			Name:  "threshold",
			Usage: "Per-template confidence threshold override",
		},
	},
	Action: runCapture,
}

var templatesCommand = &cli.Command{
	Name:  "templates",
	Usage: "Manage the template store",
	Subcommands: []*cli.Command{
		{
			Name:   "list",
			Usage:  "List stored templates",
			Action: runTemplatesList,
		},
		{
			Name:      "rm",
			Usage:     "Remove a stored template",
			ArgsUsage: "<name>",
			Action:    runTemplatesRemove,
		},
	},
}

func runCapture(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one template name, got %d", c.NArg())
	}
	name := c.Args().First()

	region := vision.ParseRegion(c.String("region"))
	if region.Empty() {
		return core.ErrInvalidRegion.WithMessage(fmt.Sprintf("cannot parse region %q", c.String("region")))
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	dev, err := device.New(cfg.Device)
	if err != nil {
		return err
	}
	store, err := vision.LoadStore(cfg.TemplatesDir)
	if err != nil {
		return err
	}

	screen, err := dev.Screenshot(context.Background())
	if err != nil {
		return err
	}
	tpl, err := vision.Capture(screen, region, name)
	if err != nil {
		return err
	}
	tpl.Threshold = c.Float64("threshold")

	if err := store.Save(tpl); err != nil {
		return err
	}
	fmt.Printf("Saved template %q (%s)\n", name, region)
	return nil
}

func runTemplatesList(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, err := vision.LoadStore(cfg.TemplatesDir)
	if err != nil {
		return err
	}

	names := store.Names()
	if len(names) == 0 {
		fmt.Printf("No templates in %s\n", cfg.TemplatesDir)
		return nil
	}
	for _, name := range names {
		tpl, _ := store.Get(name)
		line := name
		if !tpl.Source.Empty() {
			line += fmt.Sprintf("  %s", tpl.Source)
		}
		if tpl.Threshold > 0 {
			line += fmt.Sprintf("  threshold=%.2f", tpl.Threshold)
		}
		fmt.Println(line)
	}
	return nil
}

func runTemplatesRemove(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one template name, got %d", c.NArg())
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, err := vision.LoadStore(cfg.TemplatesDir)
	if err != nil {
		return err
	}
	if err := store.Delete(c.Args().First()); err != nil {
		return err
	}
	fmt.Printf("Removed template %q\n", c.Args().First())
	return nil
}
