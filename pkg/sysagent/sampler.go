package sysagent

import (
	"context"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// Sampler reads live host metrics. Implementations are swappable so tests
// can substitute deterministic readings instead of the real host.
type Sampler interface {
	CPUPercent(ctx context.Context) (float64, error)
	MemoryPercent(ctx context.Context) (float64, error)
	DiskPercent(ctx context.Context, path string) (float64, error)
	ProcessRunning(ctx context.Context, nameSubstring string) (bool, error)
}

// GopsutilSampler implements Sampler against the live host.
type GopsutilSampler struct {
	cfg Config
}

// NewGopsutilSampler builds a sampler using cfg's sample window.
func NewGopsutilSampler(cfg Config) *GopsutilSampler {
	return &GopsutilSampler{cfg: cfg}
}

func (s *GopsutilSampler) CPUPercent(ctx context.Context) (float64, error) {
	percents, err := cpu.PercentWithContext(ctx, s.cfg.SampleWindow, false)
	if err != nil {
		return 0, fmt.Errorf("sample cpu: %w", err)
	}
	if len(percents) == 0 {
		return 0, fmt.Errorf("sample cpu: no reading returned")
	}
	return percents[0], nil
}

func (s *GopsutilSampler) MemoryPercent(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("sample memory: %w", err)
	}
	return vm.UsedPercent, nil
}

func (s *GopsutilSampler) DiskPercent(ctx context.Context, path string) (float64, error) {
	if path == "" {
		path = s.cfg.DiskPath
	}
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("sample disk %s: %w", path, err)
	}
	return usage.UsedPercent, nil
}

func (s *GopsutilSampler) ProcessRunning(ctx context.Context, nameSubstring string) (bool, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return false, fmt.Errorf("list processes: %w", err)
	}
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if strings.Contains(name, nameSubstring) {
			return true, nil
		}
	}
	return false, nil
}
