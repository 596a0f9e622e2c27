package m68k

import (
	"log"

	"github.com/user-none/go-chip-m68k-jit/internal/codemem"
)

// Option configures a CPU at construction.
type Option func(*config)

// CacheLimits sizes the translated code cache.
type CacheLimits struct {
	Blocks           int    // Block table entries
	DataLimit        int    // Total translated bytes before eviction starts
	BlacklistTimeout uint32 // Stamp ticks before a blacklist entry expires
	MaxBlockGuest    uint32 // Guest bytes covered by one block
	MaxBlockNative   int    // Translated bytes in one block
	BlockExpand      int    // Growth step for a block's code buffer
}

// DefaultCacheLimits returns the limits used when none are configured.
func DefaultCacheLimits() CacheLimits {
	return CacheLimits{
		Blocks:           4096,
		DataLimit:        8 << 20,
		BlacklistTimeout: 1000000,
		MaxBlockGuest:    4096,
		MaxBlockNative:   64 << 10,
		BlockExpand:      4096,
	}
}

type config struct {
	jit     bool
	strict  bool
	alloc   codemem.Allocator
	flush   func(code []byte)
	logger  *log.Logger
	verbose bool
	trace   func(pc uint32, op uint16)
	limits  CacheLimits
}

func defaultConfig() config {
	return config{
		jit:    true,
		alloc:  codemem.Heap{},
		limits: DefaultCacheLimits(),
	}
}

// WithJIT enables or disables block translation. With translation
// disabled Run interprets every instruction.
func WithJIT(enabled bool) Option {
	return func(c *config) { c.jit = enabled }
}

// WithStrictTiming makes translated code check the cycle budget and the
// interrupt level before every instruction, so Run returns on exactly the
// same instruction boundary as the interpreter.
func WithStrictTiming(strict bool) Option {
	return func(c *config) { c.strict = strict }
}

// WithAllocator sets where translated code buffers come from.
func WithAllocator(a codemem.Allocator) Option {
	return func(c *config) {
		if a != nil {
			c.alloc = a
		}
	}
}

// WithFlushHook registers a function called with each finished block's
// code, for hosts that must flush an instruction cache.
func WithFlushHook(fn func(code []byte)) Option {
	return func(c *config) { c.flush = fn }
}

// WithLogger replaces the default logger.
func WithLogger(l *log.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithVerbose enables translator diagnostics.
func WithVerbose(v bool) Option {
	return func(c *config) { c.verbose = v }
}

// WithTrace installs a hook called before every interpreted instruction.
// A traced CPU never translates.
func WithTrace(fn func(pc uint32, op uint16)) Option {
	return func(c *config) { c.trace = fn }
}

// WithCacheLimits overrides the code cache limits. Zero fields keep their
// defaults.
func WithCacheLimits(l CacheLimits) Option {
	return func(c *config) {
		d := DefaultCacheLimits()
		if l.Blocks <= 0 {
			l.Blocks = d.Blocks
		}
		if l.DataLimit <= 0 {
			l.DataLimit = d.DataLimit
		}
		if l.BlacklistTimeout == 0 {
			l.BlacklistTimeout = d.BlacklistTimeout
		}
		if l.MaxBlockGuest == 0 {
			l.MaxBlockGuest = d.MaxBlockGuest
		}
		if l.MaxBlockNative <= 0 {
			l.MaxBlockNative = d.MaxBlockNative
		}
		if l.BlockExpand <= 0 {
			l.BlockExpand = d.BlockExpand
		}
		l.MaxBlockNative = min(l.MaxBlockNative, l.DataLimit)
		c.limits = l
	}
}
