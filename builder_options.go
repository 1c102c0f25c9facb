package darts

// BuildOption is a functional option for configuring builds.
type BuildOption func(*buildConfig)

// ProgressFunc receives construction progress. Returning false aborts the
// build with ErrAborted. It runs on the building goroutine.
type ProgressFunc func(current, total int) bool

type buildConfig struct {
	values   []int // nil selects trie mode with implicit values
	progress ProgressFunc
}

func defaultBuildConfig() *buildConfig {
	return &buildConfig{}
}

// WithValues attaches a value to each key. values must be parallel to the
// keys passed to Build and every value must be in [0, 2^31).
//
// With values, keys are minimized into a directed acyclic word graph before
// placement. Without values, key i is given value i.
func WithValues(values []int) BuildOption {
	return func(c *buildConfig) {
		c.values = values
	}
}

// WithProgress installs a progress callback for this build only.
func WithProgress(fn ProgressFunc) BuildOption {
	return func(c *buildConfig) {
		c.progress = fn
	}
}
