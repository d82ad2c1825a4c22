package monitor

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// Usage is the resource footprint of the viewer process.
type Usage struct {
	CPUPercent float64
	RSS        uint64
	Threads    int32
}

// Sampler reports process resource usage.
type Sampler interface {
	Sample() (Usage, error)
}

// processSampler reads usage from the OS through gopsutil.
type processSampler struct {
	proc *process.Process
}

// NewProcessSampler samples the process with the given pid. A pid of 0
// selects the current process.
func NewProcessSampler(pid int32) (Sampler, error) {
	if pid == 0 {
		pid = int32(os.Getpid()) //nolint:gosec // pids fit int32
	}
	p, err := process.NewProcess(pid)
	if err != nil {
		return nil, fmt.Errorf("monitor: process %d: %w", pid, err)
	}
	return &processSampler{proc: p}, nil
}

// Sample returns CPU percent since the previous call, resident memory and
// thread count. Fields that cannot be read stay zero; the first error is
// returned alongside whatever was collected.
func (s *processSampler) Sample() (Usage, error) {
	var u Usage
	var firstErr error
	keep := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	if cpu, err := s.proc.Percent(0); err == nil {
		u.CPUPercent = cpu
	} else {
		keep(err)
	}
	if mem, err := s.proc.MemoryInfo(); err == nil && mem != nil {
		u.RSS = mem.RSS
	} else if err != nil {
		keep(err)
	}
	if n, err := s.proc.NumThreads(); err == nil {
		u.Threads = n
	} else {
		keep(err)
	}
	return u, firstErr
}
