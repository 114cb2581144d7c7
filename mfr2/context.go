package mfr2

import (
	"errors"
	"fmt"
	"time"

	"github.com/rob-gra/mfr2/variant"
)

// Config is the input to NewContext: everything a bundle of channels shares
// (spec.md §3 "Context"). Zero MaxANI/MFThreshold fall back to
// DefaultMaxANI/DefaultMFThreshold, following the zero-means-default
// convention variant.Profile itself uses for timers; a zero MaxDNIS is kept
// as given.
type Config struct {
	Variant variant.Variant

	// MaxANI/MaxDNIS bound received digit strings; collection completes
	// once length >= bound, per spec.md §4.5 "the >=  rule" (MaxDNIS==0 is
	// legal and terminates after exactly one digit).
	MaxANI  int
	MaxDNIS int

	// MFThreshold is the debounce window (spec.md §4.5) below which a
	// changed detected tone is ignored. Zero uses DefaultMFThreshold.
	MFThreshold time.Duration

	// LogDir, if non-empty, enables per-call debug capture files (a
	// FileCallLogger) under this directory on every channel created from
	// this Context. When empty, capture stays off unless a channel is given
	// a CallLogger with WithCallLogger (a FileCallLogger with an empty Dir
	// writes to the process's cwd).
	LogDir string
}

// DefaultMFThreshold is applied when Config.MFThreshold is zero.
const DefaultMFThreshold = 8 * time.Millisecond

// DefaultMaxANI is applied when Config.MaxANI is left unset. There is no
// MaxDNIS default: MaxDNIS==0 is itself a legal, meaningful value (spec.md
// §8 boundary case), so Context only defaults MaxANI; a caller wanting the
// common case passes MaxDNIS explicitly.
const DefaultMaxANI = 20

// Context is the read-mostly shared configuration a bundle of Channels
// registers against (spec.md §3/§5). Per §9's redesign flag there is no
// live last_error field: configuration failures are returned errors from
// NewContext, and mid-session errors surface through Callbacks.
type Context struct {
	cfg     Config
	profile variant.Profile
}

// NewContext resolves cfg.Variant into a variant.Profile and validates
// bounds, returning a read-mostly Context ready to register channels
// against (spec.md §5: "callers must not reconfigure a context that is
// actively serving calls").
func NewContext(cfg Config) (*Context, error) {
	profile, err := variant.NewProfile(cfg.Variant)
	if err != nil {
		return nil, fmt.Errorf("mfr2: %w", err)
	}
	if cfg.MaxDNIS < 0 {
		return nil, errors.New("mfr2: MaxDNIS must not be negative")
	}
	if cfg.MaxANI < 0 {
		return nil, errors.New("mfr2: MaxANI must not be negative")
	}
	if cfg.MaxANI == 0 {
		cfg.MaxANI = DefaultMaxANI
	}
	if cfg.MFThreshold == 0 {
		cfg.MFThreshold = DefaultMFThreshold
	}
	return &Context{cfg: cfg, profile: profile}, nil
}

// Profile returns the resolved variant.Profile this Context's channels use.
func (c *Context) Profile() variant.Profile { return c.profile }

// MaxDNIS/MaxANI/MFThreshold/LogDir expose the resolved configuration.
func (c *Context) MaxDNIS() int               { return c.cfg.MaxDNIS }
func (c *Context) MaxANI() int                { return c.cfg.MaxANI }
func (c *Context) MFThreshold() time.Duration { return c.cfg.MFThreshold }
func (c *Context) LogDir() string             { return c.cfg.LogDir }
