// Package mfr2 implements the MFC/R2 call-setup engine: the Channel
// Runtime (C3), the ABCD state machine (C4), and the MF state machine (C5)
// of the design, wired together on one Context (C1's resolved variant.Profile
// plus per-bundle limits) and one timer.Scheduler (C2) per channel.
//
// Per §9's redesign flag, the product state (call_state, r2_state,
// mf_state, mf_group) lives as four typed enum fields on Channel, mutated
// only from inside this package's own methods — the "one mutation point
// enforces all invariants" discipline the spec calls for.
package mfr2

import "github.com/rob-gra/mfr2/tone"

// Direction records which side of the call this channel currently is,
// spec.md §3: STOPPED while idle, FORWARD if we seized the line (caller),
// BACKWARD if we answered a SEIZE (callee).
type Direction int

const (
	Stopped Direction = iota
	Forward
	Backward
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "FORWARD"
	case Backward:
		return "BACKWARD"
	default:
		return "STOPPED"
	}
}

// CallState is the call-progress state of spec.md §3.
type CallState int

const (
	CallIdle CallState = iota
	CallDialing
	CallOffered
	CallAccepted
	CallAnswered
	CallDisconnected
)

func (s CallState) String() string {
	switch s {
	case CallDialing:
		return "DIALING"
	case CallOffered:
		return "OFFERED"
	case CallAccepted:
		return "ACCEPTED"
	case CallAnswered:
		return "ANSWERED"
	case CallDisconnected:
		return "DISCONNECTED"
	default:
		return "IDLE"
	}
}

// R2State is the ABCD line-state plane of spec.md §3.
type R2State int

const (
	R2Idle R2State = iota
	R2Blocked
	R2SeizeTxd
	R2SeizeAckRxd
	R2SeizeAckTxd
	R2AcceptRxd
	R2AnswerTxd
	R2AnswerRxd
	R2AnswerRxdMFPending
	R2ClearBackTxd
	R2ClearBackRxd
	R2ClearBackToneRxd
	R2ClearFwdTxd
	R2ClearFwdRxd
)

func (s R2State) String() string {
	switch s {
	case R2Blocked:
		return "BLOCKED"
	case R2SeizeTxd:
		return "SEIZE_TXD"
	case R2SeizeAckRxd:
		return "SEIZE_ACK_RXD"
	case R2SeizeAckTxd:
		return "SEIZE_ACK_TXD"
	case R2AcceptRxd:
		return "ACCEPT_RXD"
	case R2AnswerTxd:
		return "ANSWER_TXD"
	case R2AnswerRxd:
		return "ANSWER_RXD"
	case R2AnswerRxdMFPending:
		return "ANSWER_RXD_MF_PENDING"
	case R2ClearBackTxd:
		return "CLEAR_BACK_TXD"
	case R2ClearBackRxd:
		return "CLEAR_BACK_RXD"
	case R2ClearBackToneRxd:
		return "CLEAR_BACK_TONE_RXD"
	case R2ClearFwdTxd:
		return "CLEAR_FWD_TXD"
	case R2ClearFwdRxd:
		return "CLEAR_FWD_RXD"
	default:
		return "IDLE"
	}
}

// MFState is the MF plane state of spec.md §3.
type MFState int

const (
	MFOff MFState = iota
	MFSeizeAckTxd
	MFCategoryRqTxd
	MFDnisRqTxd
	MFAniRqTxd
	MFChgGIITxd
	MFAcceptedTxd
	MFDisconnectTxd
	MFCategoryTxd
	MFDnisTxd
	MFDnisEndTxd
	MFAniTxd
	MFAniEndTxd
	MFWaitingTimeout
)

func (s MFState) String() string {
	switch s {
	case MFSeizeAckTxd:
		return "SEIZE_ACK_TXD"
	case MFCategoryRqTxd:
		return "CATEGORY_RQ_TXD"
	case MFDnisRqTxd:
		return "DNIS_RQ_TXD"
	case MFAniRqTxd:
		return "ANI_RQ_TXD"
	case MFChgGIITxd:
		return "CHG_GII_TXD"
	case MFAcceptedTxd:
		return "ACCEPTED_TXD"
	case MFDisconnectTxd:
		return "DISCONNECT_TXD"
	case MFCategoryTxd:
		return "CATEGORY_TXD"
	case MFDnisTxd:
		return "DNIS_TXD"
	case MFDnisEndTxd:
		return "DNIS_END_TXD"
	case MFAniTxd:
		return "ANI_TXD"
	case MFAniEndTxd:
		return "ANI_END_TXD"
	case MFWaitingTimeout:
		return "WAITING_TIMEOUT"
	default:
		return "OFF"
	}
}

// MFGroup is the tone-group plane of spec.md §3. The forward side uses
// FWD_INIT/GI/GII/GIII (send); the backward side uses
// BACK_INIT/GA/GB/GC (receive/request).
type MFGroup int

const (
	GroupNone MFGroup = iota
	GroupBackInit
	GroupGA
	GroupGB
	GroupGC
	GroupFwdInit
	GroupGI
	GroupGII
	GroupGIII
)

func (g MFGroup) String() string {
	switch g {
	case GroupBackInit:
		return "BACK_INIT"
	case GroupGA:
		return "GA"
	case GroupGB:
		return "GB"
	case GroupGC:
		return "GC"
	case GroupFwdInit:
		return "FWD_INIT"
	case GroupGI:
		return "GI"
	case GroupGII:
		return "GII"
	case GroupGIII:
		return "GIII"
	default:
		return "NONE"
	}
}

// digits is a bounded digit string with a read cursor for outgoing
// transmission (forward side) alongside straight accumulation (backward
// side), spec.md §3: "ani, dnis: bounded digit strings with cursors for
// outgoing transmission".
type digits struct {
	buf    []byte
	cursor int
}

func (d *digits) Reset() {
	d.buf = d.buf[:0]
	d.cursor = 0
}

// SetDigits loads s for outgoing transmission, resetting the cursor.
func (d *digits) SetDigits(s string) {
	d.buf = append(d.buf[:0], s...)
	d.cursor = 0
}

// AppendDigit accumulates one received digit (backward side).
func (d *digits) AppendDigit(b byte) {
	d.buf = append(d.buf, b)
}

func (d *digits) Len() int { return len(d.buf) }

func (d *digits) String() string { return string(d.buf) }

// Next returns the next digit to transmit and advances the cursor.
func (d *digits) Next() (byte, bool) {
	if d.cursor >= len(d.buf) {
		return 0, false
	}
	b := d.buf[d.cursor]
	d.cursor++
	return b, true
}

// unknownCategory aliases tone.UnknownCategory; abcd.go, mf.go and
// channel.go use the tone package directly.
var unknownCategory = tone.UnknownCategory
