package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/uitap-dev/uitap/pkg/device"
	"github.com/uitap-dev/uitap/pkg/hierarchy"
)

var dumpCommand = &cli.Command{
	Name:  "dump",
	Usage: "Print the view hierarchy of the connected device",
	Description: `Dump the accessibility tree, either as raw XML or as an indented
summary of the interesting nodes.

Examples:
  uitap dump
  uitap dump --raw
  uitap dump --all`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "raw",
			Usage: "Print the raw XML instead of the parsed tree",
		},
		&cli.BoolFlag{
			Name:  "all",
			Usage: "Include nodes without id or text",
		},
	},
	Action: runDump,
}

func runDump(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	dev, err := device.New(cfg.Device)
	if err != nil {
		return err
	}

	raw, err := dev.DumpHierarchy(context.Background())
	if err != nil {
		return err
	}
	if c.Bool("raw") {
		fmt.Println(raw)
		return nil
	}

	root, err := hierarchy.Parse(raw)
	if err != nil {
		return err
	}
	printTree(root, c.Bool("all"))
	return nil
}

func printTree(root *hierarchy.Element, all bool) {
	for _, el := range hierarchy.Find(root, func(e *hierarchy.Element) bool {
		return all || e.ResourceID != "" || e.Text != ""
	}) {
		fmt.Println(formatElement(el))
	}
}

func formatElement(el *hierarchy.Element) string {
	var b strings.Builder
	b.WriteString(strings.Repeat("  ", el.Depth))
	b.WriteString(shortClass(el.ClassName))
	if el.ResourceID != "" {
		fmt.Fprintf(&b, " id=%s", el.ResourceID)
	}
	if el.Text != "" {
		fmt.Fprintf(&b, " text=%q", el.Text)
	}
	fmt.Fprintf(&b, " %s", el.Bounds)
	if el.Clickable {
		b.WriteString(" clickable")
	}
	return b.String()
}

func shortClass(class string) string {
	if i := strings.LastIndex(class, "."); i >= 0 {
		return class[i+1:]
	}
	return class
}
