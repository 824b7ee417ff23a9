package device

import (
	"bytes"
	"strings"

	"github.com/devicelab-dev/msgrelay/pkg/core"
)

// Entry is one line of `adb devices -l`.
//
//	9f11ca4d device usb:1-1.2 product:on7xltezc model:SM_G6100 device:on7xltechn transport_id:58
type Entry struct {
	Serial      string
	State       string
	USB         string
	Product     string
	Model       string
	Device      string
	TransportID string
}

// ParseDevices parses `adb devices -l` output, skipping the header line,
// daemon notices and blank lines.
func ParseDevices(output string) []Entry {
	var entries []Entry
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of") || strings.HasPrefix(line, "*") {
			continue
		}
		fields := strings.Fields(line)
		e := Entry{Serial: fields[0]}
		if len(fields) > 1 {
			e.State = fields[1]
		}
		for _, f := range fields[min(2, len(fields)):] {
			key, value, ok := strings.Cut(f, ":")
			if !ok {
				continue
			}
			switch key {
			case "usb":
				e.USB = value
			case "product":
				e.Product = value
			case "model":
				e.Model = value
			case "device":
				e.Device = value
			}
		}
		// The transport id is whatever follows the last colon on the line.
		if idx := strings.LastIndex(line, ":"); idx >= 0 {
			e.TransportID = line[idx+1:]
		}
		entries = append(entries, e)
	}
	return entries
}

// FirstDevice returns the first device line. Only one attached device is
// supported, so any further lines are ignored.
func FirstDevice(output string) (Entry, error) {
	entries := ParseDevices(output)
	if len(entries) == 0 {
		return Entry{}, core.ErrDeviceNotFound
	}
	return entries[0], nil
}

// List runs `adb devices -l`.
func List(runner Runner, adbPath string) ([]Entry, error) {
	if runner == nil {
		runner = ExecRunner{}
	}
	var out bytes.Buffer
	code, err := runner.Run(&out, &out, adbPath, "devices", "-l")
	if err != nil {
		return nil, core.ErrDeviceNotFound.WithCause(err)
	}
	if code != 0 {
		return nil, core.ErrDeviceNotFound.WithMessage("adb devices failed: " + strings.TrimSpace(out.String()))
	}
	return ParseDevices(out.String()), nil
}
