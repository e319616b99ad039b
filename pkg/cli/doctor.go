package cli

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/uitap-dev/uitap/pkg/device"
	"github.com/uitap-dev/uitap/pkg/vision"
)

var doctorCommand = &cli.Command{
	Name:   "doctor",
	Usage:  "Check the local setup: adb, devices, config, template store",
	Action: runDoctor,
}

type check struct {
	name string
	run  func(c *cli.Context) (string, error)
}

func runDoctor(c *cli.Context) error {
	checks := []check{
		{"adb binary", checkADB},
		{"connected devices", checkDevices},
		{"configuration", checkConfig},
		{"template store", checkTemplates},
		{"ocr endpoint", checkOCR},
	}

	failed := 0
	for _, chk := range checks {
		detail, err := chk.run(c)
		if err != nil {
			failed++
			fmt.Printf("  ✗ %-18s %v\n", chk.name, err)
			continue
		}
		fmt.Printf("  ✓ %-18s %s\n", chk.name, detail)
	}

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func checkADB(_ *cli.Context) (string, error) {
	path, err := exec.LookPath("adb")
	if err != nil {
		return "", fmt.Errorf("not found in PATH")
	}
	return path, nil
}

func checkDevices(_ *cli.Context) (string, error) {
	devices, err := device.ListDevices()
	if err != nil {
		return "", err
	}
	ready := 0
	for _, d := range devices {
		if d.State == "device" {
			ready++
		}
	}
	if ready == 0 {
		return "", fmt.Errorf("no device in 'device' state (%d listed)", len(devices))
	}
	return fmt.Sprintf("%d ready", ready), nil
}

func checkConfig(c *cli.Context) (string, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("threshold=%.2f timeout=%s", cfg.ConfidenceThreshold, cfg.LocateTimeout()), nil
}

func checkTemplates(c *cli.Context) (string, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return "", err
	}
	store, err := vision.LoadStore(cfg.TemplatesDir)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d template(s) in %s", store.Len(), cfg.TemplatesDir), nil
}

func checkOCR(c *cli.Context) (string, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return "", err
	}
	if cfg.OCREndpoint == "" {
		return "disabled", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.OCREndpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("unreachable: %v", err)
	}
	resp.Body.Close()
	return cfg.OCREndpoint, nil
}
