// Package sysinfo identifies the host and samples its load.
//
// The hostname is the "source" tag on every published reading and the
// status endpoint reports the board's CPU, memory and disk usage.
package sysinfo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// unknownHost is used when no hostname can be determined.
const unknownHost = "unknown"

const bytesPerMB = 1024 * 1024

// Identity describes the machine the service runs on.
type Identity struct {
	Hostname        string    `json:"hostname"`
	OS              string    `json:"os,omitempty"`
	Platform        string    `json:"platform,omitempty"`
	PlatformVersion string    `json:"platform_version,omitempty"`
	KernelArch      string    `json:"kernel_arch,omitempty"`
	BootTime        time.Time `json:"boot_time,omitzero"`
}

// Identify returns the host identity. It never fails: when gopsutil cannot
// read host details it falls back to os.Hostname, then to "unknown".
func Identify(ctx context.Context) Identity {
	info, err := host.InfoWithContext(ctx)
	if err == nil && info.Hostname != "" {
		id := Identity{
			Hostname:        info.Hostname,
			OS:              info.OS,
			Platform:        info.Platform,
			PlatformVersion: info.PlatformVersion,
			KernelArch:      info.KernelArch,
		}
		if info.BootTime > 0 {
			id.BootTime = time.Unix(int64(info.BootTime), 0).UTC() //nolint:gosec // boot time fits in int64
		}
		return id
	}

	name, err := os.Hostname()
	if err != nil || name == "" {
		return Identity{Hostname: unknownHost}
	}
	return Identity{Hostname: name}
}

// Load is a snapshot of host resource usage.
type Load struct {
	CPUPercent      float64 `json:"cpu_percent"`
	MemUsedMB       float64 `json:"mem_used_mb"`
	MemTotalMB      float64 `json:"mem_total_mb"`
	DiskUsedPercent float64 `json:"disk_used_percent"`
	UptimeSeconds   uint64  `json:"uptime_seconds"`
}

// SampleLoad reads CPU, memory, disk usage at diskPath, and uptime.
// Fields that cannot be read stay zero and their errors are joined.
// CPU usage is measured since the previous call, so the first sample
// may read zero.
func SampleLoad(ctx context.Context, diskPath string) (Load, error) {
	var (
		load Load
		errs []error
	)

	if pct, err := cpu.PercentWithContext(ctx, 0, false); err != nil {
		errs = append(errs, fmt.Errorf("reading cpu: %w", err))
	} else if len(pct) > 0 {
		load.CPUPercent = pct[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("reading memory: %w", err))
	} else {
		// Used excludes page cache.
		load.MemUsedMB = float64(vm.Total-vm.Available) / bytesPerMB
		load.MemTotalMB = float64(vm.Total) / bytesPerMB
	}

	if diskPath != "" {
		if usage, err := disk.UsageWithContext(ctx, diskPath); err != nil {
			errs = append(errs, fmt.Errorf("reading disk %s: %w", diskPath, err))
		} else {
			load.DiskUsedPercent = usage.UsedPercent
		}
	}

	if up, err := host.UptimeWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("reading uptime: %w", err))
	} else {
		load.UptimeSeconds = up
	}

	return load, errors.Join(errs...)
}
