package main

import (
	"errors"
	"fmt"
	"os"
	"runtime/pprof"
	"runtime/trace"

	"github.com/felixge/fgprof"
)

// profileFlags selects profiles captured for the duration of a command.
type profileFlags struct {
	fgProfile  string
	cpuProfile string
	traceFile  string
}

// start begins every requested profile and returns a function that stops
// them and closes their files.
func (p profileFlags) start() (func() error, error) {
	var stops []func() error
	stopAll := func() error {
		var errs []error
		for i := len(stops) - 1; i >= 0; i-- {
			errs = append(errs, stops[i]())
		}
		return errors.Join(errs...)
	}

	if p.fgProfile != "" {
		f, err := os.Create(p.fgProfile)
		if err != nil {
			return nil, fmt.Errorf("create fgprof profile: %w", err)
		}
		stopFG := fgprof.Start(f, fgprof.FormatPprof)
		stops = append(stops, func() error {
			return errors.Join(stopFG(), f.Close())
		})
	}

	if p.cpuProfile != "" {
		f, err := os.Create(p.cpuProfile)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("create cpu profile: %w", err), stopAll())
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, errors.Join(fmt.Errorf("start cpu profile: %w", err), stopAll())
		}
		stops = append(stops, func() error {
			pprof.StopCPUProfile()
			return f.Close()
		})
	}

	if p.traceFile != "" {
		f, err := os.Create(p.traceFile)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("create trace: %w", err), stopAll())
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			return nil, errors.Join(fmt.Errorf("start trace: %w", err), stopAll())
		}
		stops = append(stops, func() error {
			trace.Stop()
			return f.Close()
		})
	}

	return stopAll, nil
}
