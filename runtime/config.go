package runtime

import (
	"go.uber.org/zap"
)

// DefaultInitialPages is the heap size, in 64KiB pages, when none is set.
const DefaultInitialPages = 1

// Config holds configuration for runtime creation.
type Config struct {
	// Logger is installed in every package. nil keeps the no-op default.
	Logger *zap.Logger

	// InitialPages sizes the array heap in pages (64KB each).
	// 0 means DefaultInitialPages.
	InitialPages uint32

	// MemoryLimitPages caps heap growth in pages. 0 means unbounded up to
	// the 4GB address space.
	MemoryLimitPages uint32

	// WazeroMemory backs the heap with a wazero module's linear memory
	// instead of a Go byte slice.
	WazeroMemory bool

	// LoggingSampleRate wraps every Nth candidate array in a logging array.
	// 0 disables logging arrays.
	LoggingSampleRate uint32

	// MonotypeCapacity caps monotype element counts. 0 means the header
	// maximum.
	MonotypeCapacity uint32
}

// Option configures a Runtime.
type Option func(*Config)

// WithLogger installs l as the logger of every package.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithWazeroMemory backs the heap with wazero linear memory.
func WithWazeroMemory() Option {
	return func(c *Config) { c.WazeroMemory = true }
}

func WithInitialPages(pages uint32) Option {
	return func(c *Config) { c.InitialPages = pages }
}

func WithMemoryLimitPages(pages uint32) Option {
	return func(c *Config) { c.MemoryLimitPages = pages }
}

func WithLoggingSampleRate(rate uint32) Option {
	return func(c *Config) { c.LoggingSampleRate = rate }
}

func WithMonotypeCapacity(n uint32) Option {
	return func(c *Config) { c.MonotypeCapacity = n }
}

func newConfig(opts []Option) Config {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.InitialPages == 0 {
		cfg.InitialPages = DefaultInitialPages
	}
	if cfg.MemoryLimitPages > 0 && cfg.InitialPages > cfg.MemoryLimitPages {
		cfg.InitialPages = cfg.MemoryLimitPages
	}
	return cfg
}
