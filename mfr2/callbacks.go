package mfr2

import "github.com/rob-gra/mfr2/tone"

// Callbacks is the host application's hook into channel events, spec.md
// §6's "user-visible event callbacks" list. A Channel invokes these
// synchronously from ProcessEvents; a callback may itself call back into
// the Channel (e.g. Accept from inside OnCallOffered, or Answer from
// inside OnCallAccepted) — see the reentrancy rule in spec.md §5/§9, which
// each call site in abcd.go/mf.go implements by snapshotting state before
// the callback and eliding its own follow-up if the callback changed it.
type Callbacks interface {
	// OnCallInit fires when an inbound SEIZE begins a new call.
	OnCallInit(ch *Channel)

	// OnCallOffered fires once DNIS (and, if the variant requests it,
	// category/ANI) has been fully collected on the backward side. The
	// call is parked in CallOffered until the host calls Accept.
	OnCallOffered(ch *Channel, ani, dnis string, category tone.Category)

	// OnCallAccepted fires on the forward side once the backward end has
	// signaled acceptance, carrying the accept mode extracted from the
	// B-tone, and on the backward side once the accept tone selected by
	// Accept has been muted, carrying the mode passed to Accept.
	OnCallAccepted(ch *Channel, mode tone.AcceptMode)

	// OnCallAnswered fires when far-end ANSWER is received (forward) or
	// when our own ANSWER transmission is confirmed (backward, upon local
	// Answer()).
	OnCallAnswered(ch *Channel)

	// OnMeteringPulse fires on a CLEAR_BACK/ANSWER flicker on variants
	// with per-pulse metering (spec.md §4.4), once per pulse. This is
	// additive to spec.md §6's callback list, not a replacement for any of
	// it: no disconnect callback fires for a pulse.
	OnMeteringPulse(ch *Channel)

	// OnCallDisconnect fires when the call tears down, from either a
	// protocol-driven hangup or a local Disconnect call.
	OnCallDisconnect(ch *Channel, cause tone.DisconnectCause)

	// OnCallEnd fires once the line has returned to IDLE after a
	// disconnect, mirroring the line-state side of teardown.
	OnCallEnd(ch *Channel)

	// OnCallRead delivers raw A-law PCM once answered and the MF detector
	// is no longer consuming reads.
	OnCallRead(ch *Channel, buf []byte)

	// OnHardwareAlarm mirrors hw.Alarm/hw.NoAlarm events surfaced from the
	// Device; raised is true for Alarm, false for NoAlarm. State is not
	// reset on an alarm (spec.md §7).
	OnHardwareAlarm(ch *Channel, raised bool)

	// OnOSError reports a non-fatal syscall failure (e.g. a partial PCM
	// write); the channel continues running.
	OnOSError(ch *Channel, err error)

	// OnProtocolError fires on any protocol violation; the channel has
	// already been reset to IDLE by the time this is called.
	OnProtocolError(ch *Channel, err *ProtocolError)

	// OnLineBlocked/OnLineIdle report BLOCK/IDLE ABCD patterns observed
	// while the channel itself is idle.
	OnLineBlocked(ch *Channel)
	OnLineIdle(ch *Channel)
}

// NoopCallbacks implements Callbacks with no-ops, so a host or test can
// embed it and override only the methods it cares about.
type NoopCallbacks struct{}

func (NoopCallbacks) OnCallInit(*Channel)                               {}
func (NoopCallbacks) OnCallOffered(*Channel, string, string, tone.Category) {}
func (NoopCallbacks) OnCallAccepted(*Channel, tone.AcceptMode)           {}
func (NoopCallbacks) OnCallAnswered(*Channel)                            {}
func (NoopCallbacks) OnMeteringPulse(*Channel)                           {}
func (NoopCallbacks) OnCallDisconnect(*Channel, tone.DisconnectCause)    {}
func (NoopCallbacks) OnCallEnd(*Channel)                                 {}
func (NoopCallbacks) OnCallRead(*Channel, []byte)                       {}
func (NoopCallbacks) OnHardwareAlarm(*Channel, bool)                     {}
func (NoopCallbacks) OnOSError(*Channel, error)                         {}
func (NoopCallbacks) OnProtocolError(*Channel, *ProtocolError)           {}
func (NoopCallbacks) OnLineBlocked(*Channel)                             {}
func (NoopCallbacks) OnLineIdle(*Channel)                                {}

var _ Callbacks = NoopCallbacks{}
