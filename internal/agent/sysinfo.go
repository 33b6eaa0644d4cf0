package agent

import (
	"os"
	"strconv"
	"strings"
)

// SystemInfo identifies the current boot of this host.
type SystemInfo interface {
	BootID() string
	UptimeSeconds() float64
}

// ProcInfo reads Linux procfs. Missing files yield an empty boot id (the
// collector then reports cause "unknown") and zero uptime.
type ProcInfo struct {
	BootIDPath string
	UptimePath string
}

func (p ProcInfo) BootID() string {
	path := p.BootIDPath
	if path == "" {
		path = "/proc/sys/kernel/random/boot_id"
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func (p ProcInfo) UptimeSeconds() float64 {
	path := p.UptimePath
	if path == "" {
		path = "/proc/uptime"
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	fields := strings.Fields(string(b))
	if len(fields) == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0
	}
	return v
}
