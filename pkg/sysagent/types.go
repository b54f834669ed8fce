// Package sysagent implements the SYSTEM agent variant: host resource
// sampling (CPU, memory, disk) and process/condition polling, backed by
// github.com/shirou/gopsutil/v4 for portable sampling.
package sysagent

import "time"

// Config configures the SYSTEM agent's sampling behavior.
type Config struct {
	// SampleWindow is how long cpu.Percent blocks to compute a CPU sample.
	SampleWindow time.Duration
	// PollInterval is the spacing between re-checks inside wait_for_condition.
	PollInterval time.Duration
	// DiskPath is the default path disk_usage samples when a step gives none.
	DiskPath string
}

// DefaultConfig returns practical sampling defaults.
func DefaultConfig() Config {
	return Config{
		SampleWindow: 300 * time.Millisecond,
		PollInterval: 500 * time.Millisecond,
		DiskPath:     "/",
	}
}
