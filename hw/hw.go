// Package hw declares the external collaborator interfaces spec.md §6
// treats as out of scope: the hardware driver, the MF tone engine, and the
// A-law/linear codec. mfr2's Channel Runtime is written entirely against
// these interfaces; mfsim supplies an in-memory double for tests and the
// demo binary, and linux_unix.go wires a real CAS-capable T1/E1 driver on
// Linux.
package hw

import "time"

// ReadyMask is the bitmask returned by Multiplex: which of the interest
// bits are currently ready.
type ReadyMask uint8

const (
	Signaling ReadyMask = 1 << iota // an ABCD/alarm event is pending
	Readable                        // a PCM buffer is available to read
	Writable                        // the PCM write queue has room
)

// Interest is the mask of events ProcessEvents wants to hear about on this
// iteration; Signaling is always implicitly requested (spec.md §4.3 step 2:
// "always-on signaling event ... plus readable if read_enabled, plus
// writable if ...").
type Interest struct {
	Readable bool
	Writable bool
}

// Event is the signaling-event kind returned by NextEvent.
type Event int

const (
	NoEvent Event = iota
	BitsChanged
	Alarm
	NoAlarm
)

// Bits is a raw 4-bit ABCD line-state pattern. The symbolic signals live in
// variant; hw has no dependency on the protocol layer it serves — the
// driver only ever sees raw 4-bit patterns.
type Bits byte

// Gains is the 256-entry identity gain table spec.md §3's lifecycle
// requires at channel creation ("gains set to identity").
type Gains [256]byte

func IdentityGains() Gains {
	var g Gains
	for i := range g {
		g[i] = byte(i)
	}
	return g
}

// BufferPolicy selects how the driver batches PCM I/O. spec.md §3 requires
// IMMEDIATE with 4 fixed-size buffers at channel creation.
type BufferPolicy int

const (
	BufferImmediate BufferPolicy = iota
)

// BufferInfo configures the driver's PCM buffering.
type BufferInfo struct {
	Policy     BufferPolicy
	NumBuffers int
	BufferSize int
}

// DefaultBufferInfo is the spec.md §3 channel-creation default: 4 buffers
// of a fixed read size, immediate policy.
func DefaultBufferInfo(readSize int) BufferInfo {
	return BufferInfo{Policy: BufferImmediate, NumBuffers: 4, BufferSize: readSize}
}

// Codec is the A-law/linear conversion collaborator (spec.md §6); alaw.Codec
// satisfies it.
type Codec interface {
	ToLinear(b byte) int16
	ToALaw(s int16) byte
}

// Device is the hardware driver contract of spec.md §6: a character-device-
// like abstraction over one CAS trunk timeslot.
type Device interface {
	// ChannelNumber is the timeslot identity the driver reports.
	ChannelNumber() int

	// Configure performs the one-time channel-creation setup of spec.md §3:
	// signaling type must be CAS, buffer policy IMMEDIATE with 4 fixed-size
	// buffers, identity gains, A-law codec, echo-cancellation disabled.
	Configure(bufs BufferInfo, gains Gains) error

	// ReadPCM reads up to one buffer of A-law octets.
	ReadPCM(buf []byte) (int, error)
	// WritePCM writes A-law octets; partial writes are reported to the
	// caller, not treated as fatal (spec.md §4.3 step 7).
	WritePCM(buf []byte) (int, error)

	// GetTxABCD/SetTxABCD/GetRxABCD access the four-bit line-state pattern.
	GetTxABCD() Bits
	SetTxABCD(b Bits) error
	GetRxABCD() Bits

	// Multiplex blocks up to timeout (0 = non-blocking poll, per spec.md
	// §4.3 step 2: "non-blocking poll") for any bit in interest (plus the
	// always-on signaling bit) to become ready, and returns the subset
	// that is.
	Multiplex(interest Interest, timeout time.Duration) (ReadyMask, error)

	// NextEvent consumes one pending signaling event (spec.md §4.3 step 5).
	NextEvent() (Event, error)

	// Close disposes the underlying descriptor if this Device created it
	// (spec.md §3 lifecycle: "owned fd closed"); borrowed descriptors are
	// left open.
	Close() error
}

// MFEngine is the MF tone generator/detector capability set of spec.md §6.
// Tone codes are tone.Tone values widened to int so hw has no dependency
// on the tone package; mfr2 narrows back at the call site.
type MFEngine interface {
	// WriteInit/ReadInit bind the generator/detector to a role; forward
	// true means this channel originated the call.
	WriteInit(forwardRole bool) (bool, error)
	ReadInit(forwardRole bool) (bool, error)

	// SelectTone instructs the generator to switch to tone (0 = silence).
	SelectTone(toneCode int) error
	// WantGenerate reports whether more PCM remains to be produced for the
	// currently selected tone.
	WantGenerate(currentTone int) bool
	// GenerateTone fills buf with up to len(buf) linear PCM samples for the
	// selected tone; returns samples produced (0 = done, -1 = error).
	GenerateTone(buf []int16) (int, error)

	// DetectTone feeds count linear PCM samples to the detector and
	// returns the recognized tone code, 0 for silence, or -1/error if
	// nothing conclusive yet.
	DetectTone(linearPCM []int16) (toneCode int, err error)

	// Dispose releases engine-held resources; mfr2 calls it from channel
	// teardown and is tolerant of a nil implementation (spec.md §6:
	// "optional mf_read_dispose / mf_write_dispose").
	Dispose() error
}
