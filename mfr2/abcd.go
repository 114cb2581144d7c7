package mfr2

import (
	"fmt"

	"github.com/rob-gra/mfr2/hw"
	"github.com/rob-gra/mfr2/timer"
	"github.com/rob-gra/mfr2/tone"
	"github.com/rob-gra/mfr2/variant"
)

// dispatchABCD implements the ABCD State Machine (C4, spec.md §4.4): given
// a newly-observed (and already deduplicated) ABCD pattern, dispatch on
// r2State and drive the transition table verbatim.
func (c *Channel) dispatchABCD(observed hw.Bits) {
	switch c.r2State {
	case R2Idle:
		switch {
		case c.bitsMatch(observed, variant.SigBlock):
			c.cb.OnLineBlocked(c)
		case c.bitsMatch(observed, variant.SigIdle):
			c.cb.OnLineIdle(c)
		case c.bitsMatch(observed, variant.SigSeize):
			c.beginInboundCall()
		default:
			c.protocolError(ErrUnexpectedBits, fmt.Sprintf("bits %#x in IDLE", byte(observed)))
		}

	case R2SeizeAckTxd, R2AnswerTxd:
		if c.bitsMatch(observed, variant.SigClearForward) {
			c.r2State = R2ClearFwdRxd
			c.callState = CallDisconnected
			c.cb.OnCallDisconnect(c, tone.CauseNormalClearing)
			return
		}
		c.protocolError(ErrUnexpectedBits, fmt.Sprintf("bits %#x in %s", byte(observed), c.r2State))

	case R2SeizeTxd:
		if c.bitsMatch(observed, variant.SigSeizeAck) {
			c.cancelTimer()
			c.r2State = R2SeizeAckRxd
			c.mfGroup = GroupGI
			c.initMF(true)
			c.mfSendDNIS()
			return
		}
		c.protocolError(ErrUnexpectedBits, fmt.Sprintf("bits %#x in SEIZE_TXD", byte(observed)))

	case R2ClearBackTxd:
		if c.bitsMatch(observed, variant.SigClearForward) {
			c.endCall()
			return
		}
		c.protocolError(ErrUnexpectedBits, fmt.Sprintf("bits %#x in CLEAR_BACK_TXD", byte(observed)))

	case R2AcceptRxd:
		switch {
		case c.bitsMatch(observed, variant.SigAnswer):
			c.cancelTimer()
			c.r2State = R2AnswerRxd
			c.callState = CallAnswered
			c.mfState = MFOff
			c.answered = true
			c.readEnabled = true
			c.cb.OnCallAnswered(c)
		case c.bitsMatch(observed, variant.SigClearBack):
			c.callState = CallDisconnected
			c.cb.OnCallDisconnect(c, tone.CauseNormalClearing)
		default:
			c.protocolError(ErrUnexpectedBits, fmt.Sprintf("bits %#x in ACCEPT_RXD", byte(observed)))
		}

	case R2SeizeAckRxd:
		switch {
		case c.bitsMatch(observed, variant.SigAnswer):
			c.r2State = R2AnswerRxdMFPending
		case c.bitsMatch(observed, variant.SigClearBack):
			// ITU SEIZE_ACK and CLEAR_BACK share the 0xC pattern. Per
			// spec.md §9 this is preserved verbatim: log and stay put,
			// never treated as a protocol error.
			c.log.Warn("ambiguous bits %#x (SEIZE_ACK==CLEAR_BACK) in SEIZE_ACK_RXD, staying put", byte(observed))
		default:
			c.protocolError(ErrUnexpectedBits, fmt.Sprintf("bits %#x in SEIZE_ACK_RXD", byte(observed)))
		}

	case R2AnswerRxd, R2AnswerRxdMFPending:
		if c.bitsMatch(observed, variant.SigClearBack) {
			p := c.profile()
			if p.HasMeteringPulse() {
				c.r2State = R2ClearBackRxd
				c.armTimer(timer.MeteringPulse, p.Timers.R2MeteringPulse)
				return
			}
			c.callState = CallDisconnected
			c.cb.OnCallDisconnect(c, tone.CauseNormalClearing)
			return
		}
		c.protocolError(ErrUnexpectedBits, fmt.Sprintf("bits %#x in %s", byte(observed), c.r2State))

	case R2ClearBackRxd:
		if c.bitsMatch(observed, variant.SigAnswer) {
			c.cancelTimer()
			c.r2State = R2AnswerRxd
			c.logCall("Metering pulse received")
			c.cb.OnMeteringPulse(c)
			return
		}
		c.protocolError(ErrUnexpectedBits, fmt.Sprintf("bits %#x in CLEAR_BACK_RXD", byte(observed)))

	case R2ClearBackToneRxd:
		if c.bitsMatch(observed, variant.SigIdle) {
			c.toIdle()
			return
		}
		c.protocolError(ErrUnexpectedBits, fmt.Sprintf("bits %#x in CLEAR_BACK_TONE_RXD", byte(observed)))

	case R2ClearFwdTxd:
		if c.bitsMatch(observed, variant.SigIdle) {
			c.endCall()
			return
		}
		c.protocolError(ErrUnexpectedBits, fmt.Sprintf("bits %#x in CLEAR_FWD_TXD", byte(observed)))

	case R2Blocked:
		c.log.Debug("bits %#x observed while BLOCKED, ignoring", byte(observed))

	default:
		c.protocolError(ErrUnexpectedBits, fmt.Sprintf("bits %#x in %s", byte(observed), c.r2State))
	}
}

// beginInboundCall handles IDLE+SEIZE: spec.md §4.4's row for an incoming
// call.
func (c *Channel) beginInboundCall() {
	c.openCallLog(Backward)
	c.direction = Backward
	c.initMF(false)
	c.transmitSignal(variant.SigSeizeAck)
	c.r2State = R2SeizeAckTxd
	c.mfState = MFSeizeAckTxd
	c.mfGroup = GroupBackInit
	c.callState = CallDialing
	c.cb.OnCallInit(c)
}
