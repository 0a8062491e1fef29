package pipeline

import (
	"github.com/shirou/gopsutil/v4/mem"
)

// MemoryMonitor reports available system memory. The scheduler polls it
// before dispatching each chunk; workers never mutate it.
type MemoryMonitor interface {
	AvailableBytes() (uint64, error)
}

// SystemMemory samples the host via gopsutil.
type SystemMemory struct{}

func (SystemMemory) AvailableBytes() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Available, nil
}

// StaticMemory is a fixed-value monitor for tests and overrides.
type StaticMemory uint64

func (m StaticMemory) AvailableBytes() (uint64, error) {
	return uint64(m), nil
}
