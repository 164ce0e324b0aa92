package pbo

import "io/fs"

// DefaultMaxFiles is the default limit used by AddFS when no
// AddWithMaxFiles option is set.
const DefaultMaxFiles = 200_000

// DefaultSeparator joins path elements in entry names.
const DefaultSeparator = `\`

// TransformFunc rewrites a file's content before it is added. name is the
// entry name the file will be stored under.
type TransformFunc func(name string, data []byte) ([]byte, error)

// SkipFunc returns true when a file should not be added. path is the
// slash-separated path within the walked file system. It is called once
// per file and should be inexpensive.
type SkipFunc func(path string, d fs.DirEntry) bool

// addConfig holds configuration for AddFS.
type addConfig struct {
	transform TransformFunc
	skip      []SkipFunc
	prefix    string
	separator string
	maxFiles  int
	progress  ProgressFunc
}

// AddOption configures AddFS and AddDir.
type AddOption func(*addConfig)

// AddWithTransform sets a filter applied to every file's content.
func AddWithTransform(fn TransformFunc) AddOption {
	return func(cfg *addConfig) {
		cfg.transform = fn
	}
}

// AddWithSkip adds predicates that exclude files. If any predicate
// returns true, the file is skipped.
func AddWithSkip(fns ...SkipFunc) AddOption {
	return func(cfg *addConfig) {
		cfg.skip = append(cfg.skip, fns...)
	}
}

// AddWithPrefix prepends prefix to every entry name. The prefix is used
// verbatim, so it should end with the separator.
func AddWithPrefix(prefix string) AddOption {
	return func(cfg *addConfig) {
		cfg.prefix = prefix
	}
}

// AddWithSeparator sets the separator joining path elements in entry
// names. The default is a backslash.
func AddWithSeparator(sep string) AddOption {
	return func(cfg *addConfig) {
		if sep != "" {
			cfg.separator = sep
		}
	}
}

// AddWithMaxFiles limits the number of files added.
// Zero uses DefaultMaxFiles. Negative means no limit.
func AddWithMaxFiles(n int) AddOption {
	return func(cfg *addConfig) {
		cfg.maxFiles = n
	}
}

// AddWithProgress sets a callback invoked after each file is added.
func AddWithProgress(fn ProgressFunc) AddOption {
	return func(cfg *addConfig) {
		cfg.progress = fn
	}
}
