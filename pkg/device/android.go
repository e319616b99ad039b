// Package device talks to Android devices over ADB. It implements snapshot
// capture, input injection and app lifecycle on top of plain adb commands,
// with no agent beyond the optional clipper helper for clipboard writes.
package device

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/uitap-dev/uitap/pkg/core"
)

// AndroidDevice manages an Android device connection via ADB.
type AndroidDevice struct {
	serial  string
	adbPath string
}

// DeviceInfo contains basic device information.
type DeviceInfo struct {
	Serial     string
	Model      string
	SDK        string
	Brand      string
	IsEmulator bool
}

// ListedDevice is one row of `adb devices`.
type ListedDevice struct {
	Serial string
	State  string
}

// New creates an AndroidDevice for the given serial. If serial is empty,
// it auto-detects the first connected device.
func New(serial string) (*AndroidDevice, error) {
	adbPath, err := findADB()
	if err != nil {
		return nil, err
	}

	if serial == "" {
		serial, err = detectDeviceSerial(adbPath)
		if err != nil {
			return nil, fmt.Errorf("no device specified and auto-detect failed: %w", err)
		}
	}

	d := &AndroidDevice{
		serial:  serial,
		adbPath: adbPath,
	}

	if err := d.waitForDevice(5 * time.Second); err != nil {
		return nil, fmt.Errorf("device not found: %w", err)
	}

	return d, nil
}

// FirstAvailable connects to the first device `adb devices` reports.
func FirstAvailable() (*AndroidDevice, error) {
	return New("")
}

// ListDevices returns every device adb knows about, including unauthorized
// and offline ones.
func ListDevices() ([]ListedDevice, error) {
	adbPath, err := findADB()
	if err != nil {
		return nil, err
	}

	out, err := exec.Command(adbPath, "devices").Output()
	if err != nil {
		return nil, core.ErrTransport.WithMessage("adb devices failed").WithCause(err)
	}

	var devices []ListedDevice
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) >= 2 {
			devices = append(devices, ListedDevice{Serial: parts[0], State: parts[1]})
		}
	}
	return devices, nil
}

// detectDeviceSerial finds the first connected device serial.
func detectDeviceSerial(adbPath string) (string, error) {
	cmd := exec.Command(adbPath, "devices")
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}

	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) >= 2 && parts[1] == "device" {
			return parts[0], nil
		}
	}
	return "", fmt.Errorf("no connected devices found")
}

// Serial returns the device serial number.
func (d *AndroidDevice) Serial() string {
	return d.serial
}

// Shell executes a shell command on the device.
func (d *AndroidDevice) Shell(ctx context.Context, cmd string) (string, error) {
	return d.adb(ctx, "shell", cmd)
}

// Install installs an APK on the device.
func (d *AndroidDevice) Install(ctx context.Context, apkPath string) error {
	_, err := d.adb(ctx, "install", "-r", "-g", apkPath)
	return err
}

// Uninstall removes a package from the device.
func (d *AndroidDevice) Uninstall(ctx context.Context, pkg string) error {
	_, err := d.adb(ctx, "uninstall", pkg)
	return err
}

// IsInstalled checks if a package is installed.
func (d *AndroidDevice) IsInstalled(ctx context.Context, pkg string) bool {
	out, err := d.Shell(ctx, "pm list packages "+pkg)
	if err != nil {
		return false
	}
	return strings.Contains(out, "package:"+pkg)
}

// Info returns device information.
func (d *AndroidDevice) Info(ctx context.Context) (DeviceInfo, error) {
	info := DeviceInfo{Serial: d.serial}

	if model, err := d.Shell(ctx, "getprop ro.product.model"); err == nil {
		info.Model = strings.TrimSpace(model)
	}
	if sdk, err := d.Shell(ctx, "getprop ro.build.version.sdk"); err == nil {
		info.SDK = strings.TrimSpace(sdk)
	}
	if brand, err := d.Shell(ctx, "getprop ro.product.brand"); err == nil {
		info.Brand = strings.TrimSpace(brand)
	}

	qemu, _ := d.Shell(ctx, "getprop ro.kernel.qemu")
	info.IsEmulator = strings.TrimSpace(qemu) == "1"

	return info, nil
}

// adb executes an ADB command and returns stdout as a string.
func (d *AndroidDevice) adb(ctx context.Context, args ...string) (string, error) {
	out, err := d.adbRaw(ctx, args...)
	return string(out), err
}

// adbRaw executes an ADB command and returns raw stdout bytes, which
// matters for binary payloads like screencap output.
func (d *AndroidDevice) adbRaw(ctx context.Context, args ...string) ([]byte, error) {
	cmdArgs := make([]string, 0, len(args)+2)
	if d.serial != "" {
		cmdArgs = append(cmdArgs, "-s", d.serial)
	}
	cmdArgs = append(cmdArgs, args...)

	cmd := exec.CommandContext(ctx, d.adbPath, cmdArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		errMsg := stderr.String()
		if errMsg == "" {
			errMsg = stdout.String()
		}
		return nil, core.ErrTransport.
			WithMessage(fmt.Sprintf("adb %s failed", strings.Join(args, " "))).
			WithCause(fmt.Errorf("%w: %s", err, strings.TrimSpace(errMsg)))
	}

	return stdout.Bytes(), nil
}

// waitForDevice waits for the device to be available.
func (d *AndroidDevice) waitForDevice(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if d.isConnected() {
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("timeout waiting for device %s", d.serial)
}

// isConnected checks if the device is connected.
func (d *AndroidDevice) isConnected() bool {
	out, err := d.adb(context.Background(), "get-state")
	if err != nil {
		return false
	}
	return strings.TrimSpace(out) == "device"
}

// findADB locates the ADB binary.
func findADB() (string, error) {
	if path, err := exec.LookPath("adb"); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("adb not found in PATH; ensure Android SDK is installed")
}
