package clog

import "testing"

type spyProvider struct {
	critical, errorN, warn, debug int
}

func (s *spyProvider) Critical(string, ...interface{}) { s.critical++ }
func (s *spyProvider) Error(string, ...interface{})    { s.errorN++ }
func (s *spyProvider) Warn(string, ...interface{})     { s.warn++ }
func (s *spyProvider) Debug(string, ...interface{})    { s.debug++ }

func TestClogDisabledByDefault(t *testing.T) {
	c := NewLogger("test: ")
	spy := &spyProvider{}
	c.SetLogProvider(spy)

	c.Error("boom")
	c.Warn("careful")

	if spy.errorN != 0 || spy.warn != 0 {
		t.Fatalf("expected no calls before LogMode(true), got %+v", spy)
	}
}

func TestClogLogModeGatesAllLevels(t *testing.T) {
	c := NewLogger("test: ")
	spy := &spyProvider{}
	c.SetLogProvider(spy)
	c.LogMode(true)

	c.Critical("c")
	c.Error("e")
	c.Warn("w")
	c.Debug("d")

	if spy.critical != 1 || spy.errorN != 1 || spy.warn != 1 || spy.debug != 1 {
		t.Fatalf("expected one call per level, got %+v", spy)
	}

	c.LogMode(false)
	c.Error("e2")
	if spy.errorN != 1 {
		t.Fatalf("expected LogMode(false) to suppress further calls, got %+v", spy)
	}
}

func TestClogSetLogProviderIgnoresNil(t *testing.T) {
	c := NewLogger("test: ")
	spy := &spyProvider{}
	c.SetLogProvider(spy)
	c.SetLogProvider(nil)
	c.LogMode(true)

	c.Warn("still routed to spy")
	if spy.warn != 1 {
		t.Fatalf("SetLogProvider(nil) must not clear the existing provider, got %+v", spy)
	}
}
