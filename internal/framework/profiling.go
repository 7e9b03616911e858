package framework

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"runtime/pprof"
)

// Profiles names the pprof outputs of one run. Empty paths disable that profile.
type Profiles struct {
	CPU  string
	Heap string
}

// Start begins CPU profiling and returns a stop function that ends it and
// writes the heap profile. The stop function must be called exactly once.
func (p Profiles) Start(logger *slog.Logger) (func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	stopCPU := func() {}

	if p.CPU != "" {
		cpuFile, err := os.Create(p.CPU)
		if err != nil {
			return nil, fmt.Errorf("create cpu profile: %w", err)
		}

		err = pprof.StartCPUProfile(cpuFile)
		if err != nil {
			_ = cpuFile.Close()

			return nil, fmt.Errorf("start cpu profile: %w", err)
		}

		stopCPU = func() {
			pprof.StopCPUProfile()

			_ = cpuFile.Close()
		}
	}

	return func() {
		stopCPU()
		writeHeapProfile(p.Heap, logger)
	}, nil
}

func writeHeapProfile(path string, logger *slog.Logger) {
	if path == "" {
		return
	}

	heapFile, err := os.Create(path)
	if err != nil {
		logger.Error("could not create heap profile", "path", path, "error", err)

		return
	}
	defer heapFile.Close()

	runtime.GC()

	err = pprof.WriteHeapProfile(heapFile)
	if err != nil {
		logger.Error("could not write heap profile", "path", path, "error", err)
	}
}
