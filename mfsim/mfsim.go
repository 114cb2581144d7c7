// Package mfsim is an in-memory double of the hw.Device/hw.MFEngine
// collaborators, used by tests, the demo binary, and anywhere real T1/E1
// hardware is unavailable. It has no teacher file to ground on directly
// (the teacher talks TCP, not CAS timeslots); it is built straight from the
// hw package's own interfaces, the way a loopback net.Pipe is built from
// net.Conn.
//
// Two Devices created by NewLoopback are wired back to back: one side's
// SetTxABCD becomes the other's GetRxABCD (with a BitsChanged event
// delivered to the peer only), and PCM written by one side arrives as PCM
// read by the other, exactly as an analog trunk would carry it.
package mfsim

import (
	"sync"
	"time"

	"github.com/rob-gra/mfr2/alaw"
	"github.com/rob-gra/mfr2/hw"
)

// bus is the shared medium between the two ends of a loopback pair.
type bus struct {
	mu sync.Mutex

	abcd   [2]hw.Bits
	events [2][]hw.Event
	pcm    [2][]byte // pcm[i] is the queue readable by side i

	tone [2]int // currently selected tone on each side, for MF loopback
}

// Device is one end of a loopback pair.
type Device struct {
	b       *bus
	side    int // 0 or 1; 1-side is 1-side
	number  int
	closed  bool
	alarmed bool
	bufCap  int // configured NumBuffers*BufferSize; 0 until Configure runs
}

// NewLoopback returns two Devices wired together, numbered fwd and back.
func NewLoopback(fwdNumber, backNumber int) (fwd, back *Device) {
	b := &bus{}
	fwd = &Device{b: b, side: 0, number: fwdNumber}
	back = &Device{b: b, side: 1, number: backNumber}
	return fwd, back
}

func other(side int) int { return 1 - side }

func (d *Device) ChannelNumber() int { return d.number }

func (d *Device) Configure(bufs hw.BufferInfo, _ hw.Gains) error {
	d.bufCap = bufs.NumBuffers * bufs.BufferSize
	return nil
}

func (d *Device) ReadPCM(buf []byte) (int, error) {
	d.b.mu.Lock()
	defer d.b.mu.Unlock()
	q := d.b.pcm[d.side]
	n := copy(buf, q)
	d.b.pcm[d.side] = q[n:]
	return n, nil
}

func (d *Device) WritePCM(buf []byte) (int, error) {
	d.b.mu.Lock()
	defer d.b.mu.Unlock()
	peer := other(d.side)
	d.b.pcm[peer] = append(d.b.pcm[peer], buf...)
	return len(buf), nil
}

func (d *Device) GetTxABCD() hw.Bits {
	d.b.mu.Lock()
	defer d.b.mu.Unlock()
	return d.b.abcd[d.side]
}

func (d *Device) SetTxABCD(b hw.Bits) error {
	d.b.mu.Lock()
	defer d.b.mu.Unlock()
	if d.b.abcd[d.side] == b {
		return nil
	}
	d.b.abcd[d.side] = b
	peer := other(d.side)
	d.b.events[peer] = append(d.b.events[peer], hw.BitsChanged)
	return nil
}

func (d *Device) GetRxABCD() hw.Bits {
	d.b.mu.Lock()
	defer d.b.mu.Unlock()
	return d.b.abcd[other(d.side)]
}

func (d *Device) Multiplex(interest hw.Interest, _ time.Duration) (hw.ReadyMask, error) {
	d.b.mu.Lock()
	defer d.b.mu.Unlock()
	var mask hw.ReadyMask
	if len(d.b.events[d.side]) > 0 {
		mask |= hw.Signaling
	}
	if interest.Readable && len(d.b.pcm[d.side]) > 0 {
		mask |= hw.Readable
	}
	peer := other(d.side)
	if interest.Writable && (d.bufCap <= 0 || len(d.b.pcm[peer]) < d.bufCap) {
		mask |= hw.Writable
	}
	return mask, nil
}

func (d *Device) NextEvent() (hw.Event, error) {
	d.b.mu.Lock()
	defer d.b.mu.Unlock()
	q := d.b.events[d.side]
	if len(q) == 0 {
		return hw.NoEvent, nil
	}
	ev := q[0]
	d.b.events[d.side] = q[1:]
	return ev, nil
}

func (d *Device) Close() error {
	d.closed = true
	return nil
}

// RaiseAlarm/ClearAlarm let tests exercise on_hardware_alarm without a real
// driver underneath.
func (d *Device) RaiseAlarm() {
	d.b.mu.Lock()
	defer d.b.mu.Unlock()
	d.b.events[d.side] = append(d.b.events[d.side], hw.Alarm)
}

func (d *Device) ClearAlarm() {
	d.b.mu.Lock()
	defer d.b.mu.Unlock()
	d.b.events[d.side] = append(d.b.events[d.side], hw.NoAlarm)
}

// MFEngine is the loopback MF tone generator/detector bound to one side of
// a Device's bus. Rather than synthesizing real dual-tone audio, it encodes
// the selected tone code as a recognizable linear-PCM level so the full
// generate -> A-law encode -> wire -> A-law decode -> detect path in
// mfr2.Channel is still exercised end to end, A-law quantization error
// included.
type MFEngine struct {
	d         *Device
	selected  int
	readInit  bool
	writeInit bool
}

const toneSampleScale = 1000

func NewMFEngine(d *Device) *MFEngine {
	return &MFEngine{d: d}
}

func (e *MFEngine) WriteInit(bool) (bool, error) { e.writeInit = true; return true, nil }
func (e *MFEngine) ReadInit(bool) (bool, error)  { e.readInit = true; return true, nil }

func (e *MFEngine) SelectTone(toneCode int) error {
	e.selected = toneCode
	e.d.b.mu.Lock()
	e.d.b.tone[e.d.side] = toneCode
	e.d.b.mu.Unlock()
	return nil
}

// WantGenerate/GenerateTone model a TDM timeslot's always-flowing PCM: a
// real trunk carries a sample every frame whether or not a tone is
// currently selected, so the peer's receiver keeps seeing readable data
// (tone level, or silence) to run its threshold-debounce and tone-off
// detection against. Muting a tone is therefore observed by the peer as
// silence arriving, not as the stream stopping.
func (e *MFEngine) WantGenerate(int) bool {
	return true
}

func (e *MFEngine) GenerateTone(buf []int16) (int, error) {
	var level int16
	if e.selected != 0 {
		level = int16(e.selected * toneSampleScale)
	}
	for i := range buf {
		buf[i] = level
	}
	return len(buf), nil
}

// DetectTone decodes the tone level of the last sample in linearPCM,
// rounded to the nearest multiple of toneSampleScale; the ±500 margin this
// leaves covers the A-law round-trip error of the levels GenerateTone
// emits.
func (e *MFEngine) DetectTone(linearPCM []int16) (int, error) {
	if len(linearPCM) == 0 {
		return 0, nil
	}
	sample := linearPCM[len(linearPCM)-1]
	if sample == 0 {
		return 0, nil
	}
	abs := sample
	if abs < 0 {
		abs = -abs
	}
	code := (int(abs) + toneSampleScale/2) / toneSampleScale
	if code < 1 {
		code = 0
	}
	if code > 15 {
		code = 15
	}
	return code, nil
}

func (e *MFEngine) Dispose() error { return nil }

var _ hw.Device = (*Device)(nil)
var _ hw.MFEngine = (*MFEngine)(nil)
var _ hw.Codec = alaw.Codec{}
