package mfr2

import (
	"fmt"
	"time"

	"github.com/rob-gra/mfr2/clog"
	"github.com/rob-gra/mfr2/hw"
	"github.com/rob-gra/mfr2/timer"
	"github.com/rob-gra/mfr2/tone"
	"github.com/rob-gra/mfr2/variant"
)

// pcmReadSize is the fixed per-buffer PCM read/write size configured at
// channel creation (spec.md §3: "4 buffers x fixed read size").
const pcmReadSize = 160

// readyToAnswerDelay is the fixed 150ms window between Accept selecting the
// Group-B accept tone and onReadyToAnswer muting it and firing the backward
// side's OnCallAccepted, so the far end has had time to observe the accept
// tone before ABCD answer is toggled.
const readyToAnswerDelay = 150 * time.Millisecond

// Channel is the MFC/R2 engine's principal entity (spec.md §3): one per
// trunk timeslot, owning its hardware handle, MF engine binding, ABCD
// cache, single timer slot, and the product state
// (direction, call_state, r2_state, mf_state, mf_group). All four state
// enums are mutated only by this package's own methods, never exposed as
// independent setters, per §9's "one mutation point" redesign note.
type Channel struct {
	ctx    *Context
	number int

	dev   hw.Device
	mf    hw.MFEngine
	codec hw.Codec
	cb    Callbacks
	log   clog.Clog
	now   func() time.Time

	sched *timer.Scheduler

	direction Direction
	callState CallState
	r2State   R2State
	mfState   MFState
	mfGroup   MFGroup

	dnis digits
	ani  digits

	category      tone.Category
	aniRestricted bool
	acceptMode    tone.AcceptMode

	abcdRead  hw.Bits
	abcdWrite hw.Bits

	mfReadTone  int
	mfWriteTone int

	answered    bool
	readEnabled bool

	// Threshold-debounce state for mf_detect_tone misfires (spec.md §4.5).
	thresholdTone    int
	thresholdSince   time.Time
	thresholdPending bool

	lastTone int

	callLogger CallLogger
	callCount  int
	call       CallLog

	closed bool
}

// NewChannel builds a Channel bound to dev/mf/codec, configures the
// hardware for CAS signaling per spec.md §3's lifecycle (immediate
// buffering, 4 fixed-size buffers, identity gains), and leaves it IDLE.
// cb must not be nil; use NoopCallbacks{} if the host doesn't care about a
// particular event.
func NewChannel(ctx *Context, number int, dev hw.Device, mf hw.MFEngine, codec hw.Codec, cb Callbacks) (*Channel, error) {
	if ctx == nil {
		return nil, fmt.Errorf("mfr2: nil context")
	}
	if cb == nil {
		return nil, fmt.Errorf("mfr2: nil callbacks")
	}
	bufs := hw.DefaultBufferInfo(pcmReadSize)
	if err := dev.Configure(bufs, hw.IdentityGains()); err != nil {
		return nil, fmt.Errorf("mfr2: configure channel %d: %w", number, err)
	}
	c := &Channel{
		ctx:    ctx,
		number: number,
		dev:    dev,
		mf:     mf,
		codec:  codec,
		cb:     cb,
		log:    clog.NewLogger(fmt.Sprintf("[mfr2 chan %d] ", number)),
		now:    time.Now,
		sched:  timer.New(),
	}
	c.log.LogMode(true)
	if dir := ctx.LogDir(); dir != "" {
		c.callLogger = FileCallLogger{Dir: dir}
	}
	c.resetToIdle()
	return c, nil
}

// WithCallLogger enables per-call debug capture files, opened on every
// new call (inbound or outbound) and closed at call end.
func (c *Channel) WithCallLogger(l CallLogger) *Channel {
	c.callLogger = l
	return c
}

// WithLogProvider swaps the channel's clog.LogProvider (the package default
// writes to stdout via the standard library logger); a host wanting
// structured output plugs in clog.NewCharmProvider or its own.
func (c *Channel) WithLogProvider(p clog.LogProvider) *Channel {
	c.log.SetLogProvider(p)
	return c
}

// withClock overrides the Channel's time source; used by tests to drive
// timer-dependent behaviour deterministically.
func (c *Channel) withClock(now func() time.Time) *Channel {
	c.now = now
	c.sched = timer.NewWithClock(now)
	return c
}

func (c *Channel) Number() int           { return c.number }
func (c *Channel) Direction() Direction  { return c.direction }
func (c *Channel) CallState() CallState  { return c.callState }
func (c *Channel) R2State() R2State      { return c.r2State }
func (c *Channel) MFState() MFState      { return c.mfState }
func (c *Channel) MFGroup() MFGroup      { return c.mfGroup }
func (c *Channel) DNIS() string          { return c.dnis.String() }
func (c *Channel) ANI() string           { return c.ani.String() }
func (c *Channel) Category() tone.Category { return c.category }
func (c *Channel) profile() variant.Profile { return c.ctx.Profile() }

// Close disposes the MF engine and the hardware descriptor (spec.md §3's
// lifecycle: "MF handles disposed -> owned fd closed -> log files closed").
func (c *Channel) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	var firstErr error
	if c.mf != nil {
		if err := c.mf.Dispose(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := c.dev.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if c.call != nil {
		_ = c.call.Close()
		c.call = nil
	}
	return firstErr
}

// resetToIdle restores the idle invariant of spec.md §3: call_state==IDLE
// implies mf_state==OFF, r2_state in {IDLE,BLOCKED}, direction==STOPPED.
// It does not itself transmit ABCD; callers that need the line driven to
// IDLE call transmitSignal(variant.SigIdle) separately, as toIdle does.
func (c *Channel) resetToIdle() {
	c.direction = Stopped
	c.callState = CallIdle
	c.r2State = R2Idle
	c.mfState = MFOff
	c.mfGroup = GroupNone
	c.dnis.Reset()
	c.ani.Reset()
	c.category = tone.UnknownCategory
	c.aniRestricted = false
	c.mfWriteTone = 0
	c.mfReadTone = 0
	c.answered = false
	c.readEnabled = false
	c.thresholdPending = false
	c.sched.Cancel()
	if c.call != nil {
		_ = c.call.Close()
		c.call = nil
	}
}

// toIdle is the full protocol-error/disconnect recovery path of spec.md
// §4.4/§7: mute any outgoing tone, reset state, and drive ABCD to IDLE.
func (c *Channel) toIdle() {
	c.prepareMFTone(0)
	c.resetToIdle()
	c.transmitSignal(variant.SigIdle)
}

// protocolError is the single handler spec.md §4.4/§7/§9 calls for: mute
// tone, log context, reset to IDLE, fire OnProtocolError. It is the only
// place a ProtocolError passed to OnProtocolError is constructed; host-API
// calls refused outright return one built by newProtoErr instead.
func (c *Channel) protocolError(reason ErrorReason, detail string) {
	err := &ProtocolError{
		Reason:   reason,
		Channel:  c.number,
		R2State:  c.r2State,
		MFState:  c.mfState,
		MFGroup:  c.mfGroup,
		DNIS:     c.dnis.String(),
		ANI:      c.ani.String(),
		LastTone: c.lastTone,
	}
	if detail != "" {
		err.Detail = detail
	}
	c.log.Error("protocol error: %s", err)
	c.toIdle()
	c.cb.OnProtocolError(c, err)
}

// transmitSignal writes sig's ABCD pattern (masked into the R2 bits, with
// the profile's constant non-R2 bits set) to hardware.
func (c *Channel) transmitSignal(sig variant.Signal) {
	p := c.profile()
	bits := p.ABCD[sig]
	out := (bits & p.RBitMask) | p.NonRBitMask
	if err := c.dev.SetTxABCD(hw.Bits(out)); err != nil {
		c.cb.OnOSError(c, err)
		return
	}
	c.abcdWrite = hw.Bits(out)
}

// bitsMatch reports whether the R2 bits of observed equal sig's pattern.
func (c *Channel) bitsMatch(observed hw.Bits, sig variant.Signal) bool {
	p := c.profile()
	return byte(observed)&p.RBitMask == p.ABCD[sig]&p.RBitMask
}

// armTimer replaces the channel's single timer slot (spec.md §3 invariant:
// "exactly one outstanding scheduled timer per channel").
func (c *Channel) armTimer(kind timer.Kind, d time.Duration) {
	c.sched.Arm(kind, d)
}

func (c *Channel) cancelTimer() {
	c.sched.Cancel()
}

// initMF binds the MF engine's writer to forward's own role and its reader
// to the opposite role, since forward and backward tone sets occupy
// different frequency pairs: a forward-direction channel writes forward
// tones and listens for backward tones, and vice versa (spec.md §4.4's
// "init MF writer (forward), reader (backward)" / "writer (backward role),
// reader (forward role)" rows).
func (c *Channel) initMF(forward bool) {
	if ok, err := c.mf.WriteInit(forward); err != nil || !ok {
		c.log.Warn("mf write init failed: ok=%v err=%v", ok, err)
	}
	if ok, err := c.mf.ReadInit(!forward); err != nil || !ok {
		c.log.Warn("mf read init failed: ok=%v err=%v", ok, err)
	}
}

// openCallLog starts a new per-call debug capture if a CallLogger is
// configured (spec.md §6's "persisted debug format").
func (c *Channel) openCallLog(dir Direction) {
	if c.callLogger == nil {
		return
	}
	c.callCount++
	l, err := c.callLogger.Open(c.number, dir, c.callCount)
	if err != nil {
		c.log.Warn("call log open failed: %v", err)
		return
	}
	c.call = l
}

func (c *Channel) logCall(format string, v ...interface{}) {
	if c.call != nil {
		c.call.Logf(format, v...)
	}
}

// --- Host-facing API ---

// MakeCall originates an outbound call (spec.md §4.5 "make_call"). ANI/DNIS
// are validated as numeric; a non-numeric field is silently omitted with a
// log note rather than rejecting the whole call, per spec.md's literal
// wording ("non-numeric content silently omits that field with a log
// note").
func (c *Channel) MakeCall(ani, dnis string, category tone.Category) error {
	if c.callState != CallIdle {
		return newProtoErr(c.number, ErrInvalidConfig, "MakeCall while not idle")
	}
	if !c.bitsMatch(c.dev.GetRxABCD(), variant.SigIdle) {
		return newProtoErr(c.number, ErrUnexpectedBits, "MakeCall with line not observed idle")
	}

	cleanANI, okANI := numericOnly(ani)
	if !okANI {
		c.log.Warn("MakeCall: ANI %q is not numeric, omitting", ani)
		cleanANI = ""
	}
	cleanDNIS, okDNIS := numericOnly(dnis)
	if !okDNIS {
		c.log.Warn("MakeCall: DNIS %q is not numeric, omitting", dnis)
		cleanDNIS = ""
	}

	c.openCallLog(Forward)
	c.ani.SetDigits(cleanANI)
	c.dnis.SetDigits(cleanDNIS)
	c.category = category

	c.transmitSignal(variant.SigSeize)
	c.callState = CallDialing
	c.r2State = R2SeizeTxd
	c.mfGroup = GroupFwdInit
	c.direction = Forward
	c.armTimer(timer.SeizeTimeout, c.profile().Timers.R2Seize)
	return nil
}

// Accept confirms an offered call (host response to OnCallOffered),
// transmitting the Group-B accept tone corresponding to mode.
func (c *Channel) Accept(mode tone.AcceptMode) error {
	if c.callState != CallOffered {
		return newProtoErr(c.number, ErrInvalidConfig, "Accept while not offered")
	}
	p := c.profile()
	var t tone.Tone
	switch mode {
	case tone.AcceptWithCharge:
		t = p.GB.AcceptWithCharge
	case tone.AcceptNoCharge:
		t = p.GB.AcceptNoCharge
	case tone.AcceptSpecialInfo:
		t = p.GB.SpecialInfo
	default:
		t = p.GB.AcceptWithCharge
	}
	c.acceptMode = mode
	c.mfState = MFAcceptedTxd
	c.prepareMFTone(int(t))
	c.armTimer(timer.ReadyToAnswer, readyToAnswerDelay)
	return nil
}

// Answer confirms a call locally (backward side), transmitting ABCD
// ANSWER, per the ACCEPT_RXD/ANSWER row of spec.md §4.4.
func (c *Channel) Answer() error {
	if c.direction != Backward || c.callState != CallAccepted {
		return newProtoErr(c.number, ErrInvalidConfig, "Answer while not accepted")
	}
	c.transmitSignal(variant.SigAnswer)
	c.r2State = R2AnswerTxd
	c.callState = CallAnswered
	c.answered = true
	c.readEnabled = true
	c.cb.OnCallAnswered(c)
	return nil
}

// Disconnect tears down the call (spec.md §4.5 "disconnect_call").
func (c *Channel) Disconnect(cause tone.DisconnectCause) error {
	if c.callState == CallIdle {
		return newProtoErr(c.number, ErrInvalidConfig, "Disconnect while idle")
	}
	c.cb.OnCallDisconnect(c, cause)
	if c.direction == Backward {
		switch {
		case c.callState == CallOffered:
			t := c.disconnectToneFor(cause)
			c.prepareMFTone(int(t))
			c.mfState = MFDisconnectTxd
			return nil
		case c.r2State == R2ClearFwdRxd:
			// The forward side already hung up (we reported that
			// disconnection but left teardown to this call); just
			// finish it off rather than sending a CLEAR_BACK of our own.
			c.endCall()
			return nil
		default:
			c.transmitSignal(variant.SigClearBack)
			c.r2State = R2ClearBackTxd
			return nil
		}
	}
	c.transmitSignal(variant.SigClearForward)
	c.r2State = R2ClearFwdTxd
	return nil
}

// endCall fires OnCallEnd and returns the line to IDLE; it is the common
// tail of every disconnect path.
func (c *Channel) endCall() {
	c.toIdle()
	c.cb.OnCallEnd(c)
}

// numericOnly reports the digit-only projection of s and whether s was
// entirely numeric to begin with.
func numericOnly(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return s, false
		}
	}
	return s, true
}

// --- Event loop (spec.md §4.3) ---

// ProcessEvents drains all currently-ready work on the channel: an expired
// timer first, then the mux/read/write loop to quiescence. It never
// blocks; the host is expected to call it again after its own readiness
// wait (poll, select, or a periodic tick bounded by TimeToNext).
func (c *Channel) ProcessEvents() {
	if kind := c.sched.Take(); kind != timer.None {
		c.handleTimerExpiry(kind)
	}

	for {
		interest := hw.Interest{
			Readable: c.readEnabled || c.mfState != MFOff,
			Writable: c.mfState != MFOff && c.mf.WantGenerate(c.mfWriteTone),
		}
		mask, err := c.dev.Multiplex(interest, 0)
		if err != nil {
			c.cb.OnOSError(c, err)
			return
		}
		if mask == 0 {
			return
		}

		if mask&hw.Signaling != 0 {
			c.handleSignaling()
			continue
		}
		if mask&hw.Readable != 0 {
			c.handleReadable()
			continue
		}
		if mask&hw.Writable != 0 {
			c.handleWritable()
			continue
		}
		return
	}
}

// TimeToNext exposes the scheduler's next-deadline query (spec.md §4.2),
// letting the host size its readiness wait.
func (c *Channel) TimeToNext() time.Duration {
	return c.sched.TimeToNext()
}

func (c *Channel) handleSignaling() {
	ev, err := c.dev.NextEvent()
	if err != nil {
		c.cb.OnOSError(c, err)
		return
	}
	switch ev {
	case hw.BitsChanged:
		observed := c.dev.GetRxABCD()
		masked := hw.Bits(byte(observed) & c.profile().RBitMask)
		if masked == hw.Bits(byte(c.abcdRead)&c.profile().RBitMask) {
			return // spec.md §4.4: identical masked observation is suppressed
		}
		c.abcdRead = observed
		c.dispatchABCD(observed)
	case hw.Alarm:
		c.cb.OnHardwareAlarm(c, true)
	case hw.NoAlarm:
		c.cb.OnHardwareAlarm(c, false)
	default:
		c.log.Debug("unhandled hardware event %v", ev)
	}
}

func (c *Channel) handleReadable() {
	buf := make([]byte, pcmReadSize)
	n, err := c.dev.ReadPCM(buf)
	if err != nil {
		c.cb.OnOSError(c, err)
		return
	}
	buf = buf[:n]
	if c.mfState != MFOff {
		linear := make([]int16, n)
		for i, b := range buf {
			linear[i] = c.codec.ToLinear(b)
		}
		toneCode, err := c.mf.DetectTone(linear)
		if err != nil {
			c.cb.OnOSError(c, err)
			return
		}
		if toneCode < 0 {
			return // detector has nothing conclusive yet
		}
		c.onDetectedTone(toneCode)
		return
	}
	if c.answered && n > 0 {
		c.cb.OnCallRead(c, buf)
	}
}

func (c *Channel) handleWritable() {
	linear := make([]int16, pcmReadSize)
	n, err := c.mf.GenerateTone(linear)
	if err != nil {
		c.cb.OnOSError(c, err)
		return
	}
	if n > 0 {
		out := make([]byte, n)
		for i := 0; i < n; i++ {
			out[i] = c.codec.ToALaw(linear[i])
		}
		if _, err := c.dev.WritePCM(out); err != nil {
			c.cb.OnOSError(c, err)
		}
	}
}

func (c *Channel) handleTimerExpiry(kind timer.Kind) {
	switch kind {
	case timer.SeizeTimeout:
		c.protocolError(ErrSeizeTimeout, "no SEIZE_ACK within r2_seize")
	case timer.AnswerTimeout:
		c.protocolError(ErrAnswerTimeout, "no ANSWER within r2_answer")
	case timer.BackCycle:
		c.mfBackCycleTimeout()
	case timer.BackResumeCycle:
		c.prepareMFTone(0)
	case timer.FwdSafety:
		c.protocolError(ErrFwdSafetyTimeout, "no response within mf_fwd_safety")
	case timer.MeteringPulse:
		c.onMeteringPulseTimeout()
	case timer.ReadyToAnswer:
		c.onReadyToAnswer()
	default:
		c.log.Warn("timer expired with no handler: %v", kind)
	}
}
