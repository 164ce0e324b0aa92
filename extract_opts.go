package pbo

// ExtractOption configures Extract.
type ExtractOption func(*extractConfig)

type extractConfig struct {
	overwrite     bool
	preserveTimes bool
	workers       int
	progress      ProgressFunc
}

// ExtractWithOverwrite allows overwriting existing files.
// By default, existing files are skipped.
func ExtractWithOverwrite(overwrite bool) ExtractOption {
	return func(c *extractConfig) {
		c.overwrite = overwrite
	}
}

// ExtractWithPreserveTimes applies entry timestamps to extracted files.
// Entries without a timestamp keep the current time.
func ExtractWithPreserveTimes(preserve bool) ExtractOption {
	return func(c *extractConfig) {
		c.preserveTimes = preserve
	}
}

// ExtractWithWorkers sets the number of parallel workers.
// Values < 0 force serial extraction. Zero uses GOMAXPROCS.
func ExtractWithWorkers(n int) ExtractOption {
	return func(c *extractConfig) {
		c.workers = n
	}
}

// ExtractWithProgress sets a callback invoked after each file is written.
// The callback must be safe for concurrent calls.
func ExtractWithProgress(fn ProgressFunc) ExtractOption {
	return func(c *extractConfig) {
		c.progress = fn
	}
}
