package clog

import (
	"os"

	charm "github.com/charmbracelet/log"
)

// CharmProvider adapts charmbracelet/log to the LogProvider interface, so a
// host can opt a Clog into structured, leveled, colorized output instead of
// the package's bare stdlib default. mfr2's cmd/mfr2-sim selects this via
// --log-format=charm.
type CharmProvider struct {
	logger *charm.Logger
}

var _ LogProvider = CharmProvider{}

// NewCharmProvider builds a CharmProvider writing timestamped lines to
// stderr, each starting with prefix.
func NewCharmProvider(prefix string) CharmProvider {
	l := charm.NewWithOptions(os.Stderr, charm.Options{
		Prefix:          prefix,
		ReportTimestamp: true,
	})
	return CharmProvider{logger: l}
}

func (p CharmProvider) Critical(format string, v ...interface{}) {
	p.logger.Fatalf(format, v...)
}

func (p CharmProvider) Error(format string, v ...interface{}) {
	p.logger.Errorf(format, v...)
}

func (p CharmProvider) Warn(format string, v ...interface{}) {
	p.logger.Warnf(format, v...)
}

func (p CharmProvider) Debug(format string, v ...interface{}) {
	p.logger.Debugf(format, v...)
}
