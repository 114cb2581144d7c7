package mfr2

import (
	"fmt"

	"github.com/rob-gra/mfr2/timer"
	"github.com/rob-gra/mfr2/tone"
)

// onDetectedTone is the entry point for every mf.DetectTone result (spec.md
// §4.5): threshold-debounce first, then continuous-tone suppression /
// broken-sequence detection, then dispatch by direction.
func (c *Channel) onDetectedTone(raw int) {
	if raw != c.thresholdTone {
		c.thresholdTone = raw
		c.thresholdSince = c.now()
		c.thresholdPending = true
		return
	}
	if c.thresholdPending {
		if c.now().Sub(c.thresholdSince) < c.ctx.MFThreshold() {
			return
		}
		c.thresholdPending = false
	}
	c.onStableTone(raw)
}

func (c *Channel) onStableTone(raw int) {
	if raw != 0 {
		c.lastTone = raw
		if c.mfReadTone == raw {
			return // identical on-tone repeated: continuous-tone suppression
		}
		if c.mfReadTone != 0 {
			c.protocolError(ErrBrokenMFSequence, fmt.Sprintf("tone %d detected while %d still held", raw, c.mfReadTone))
			return
		}
		c.mfReadTone = raw
		switch c.direction {
		case Backward:
			c.dispatchBackwardTone(raw)
		case Forward:
			// Forward only mutes and cancels its safety wait on tone-on;
			// the real action waits for the backward side's tone-off.
			c.prepareMFTone(0)
			c.cancelTimer()
		}
		return
	}

	prev := c.mfReadTone
	c.mfReadTone = 0
	if prev == 0 {
		return
	}
	switch c.direction {
	case Forward:
		c.onForwardToneOff(prev)
	case Backward:
		// The compelled cycle's second half, for Group A/C request tones
		// only: the caller's digit just went silent, which is our cue to
		// release the request/ack tone held since dispatchBackwardTone, so
		// the caller sees our tone-off and sends its next digit. Group B's
		// accept tone is released on its own readyToAnswerDelay timer
		// instead (spec.md §4.5), not by this generic cue.
		switch c.mfState {
		case MFDnisRqTxd, MFCategoryRqTxd, MFAniRqTxd, MFChgGIITxd:
			c.prepareMFTone(0)
		}
	}
}

// dispatchBackwardTone implements the "Backward (callee) handling" table of
// spec.md §4.5: we just detected a new forward tone.
func (c *Channel) dispatchBackwardTone(t int) {
	c.armTimer(timer.BackCycle, c.profile().Timers.MFBackCycle)

	switch {
	case c.mfGroup == GroupBackInit && c.mfState == MFSeizeAckTxd:
		c.mfReceiveExpectedDNIS(t)
	case c.mfGroup == GroupGA && c.mfState == MFDnisRqTxd:
		c.mfReceiveExpectedDNIS(t)
	case (c.mfGroup == GroupGA || c.mfGroup == GroupGC) && c.mfState == MFCategoryRqTxd:
		c.onCategoryReply(t)
	case (c.mfGroup == GroupGA || c.mfGroup == GroupGC) && c.mfState == MFAniRqTxd:
		c.mfReceiveExpectedANI(t)
	case c.mfGroup == GroupGB && c.mfState == MFChgGIITxd:
		c.completeOffer(t)
	default:
		c.protocolError(ErrUnexpectedTone, fmt.Sprintf("tone %d in group=%s state=%s", t, c.mfGroup, c.mfState))
	}
}

// mfReceiveExpectedDNIS appends one DNIS digit (or honors an early-
// termination tone) and decides the next request, per spec.md §4.5
// "Receiving DNIS". Collection completes once dnis_len >= max_dnis (the
// ">=" rule holds even when max_dnis==0: the very first digit already
// satisfies it).
func (c *Channel) mfReceiveExpectedDNIS(t int) {
	p := c.profile()
	tn := tone.Tone(t)
	if p.GI.NoMoreDNIS != tone.Invalid && tn == p.GI.NoMoreDNIS {
		c.requestCategory()
		return
	}
	d, ok := tn.Digit()
	if !ok {
		c.protocolError(ErrUnexpectedTone, fmt.Sprintf("non-digit tone %v while expecting DNIS", tn))
		return
	}
	c.dnis.AppendDigit(d)
	if c.dnis.Len() >= c.ctx.MaxDNIS() {
		c.requestCategory()
		return
	}
	c.requestNextDNIS()
}

// mfReceiveExpectedANI is the ANI-collection analogue of
// mfReceiveExpectedDNIS (spec.md §4.5 "Receiving ANI").
func (c *Channel) mfReceiveExpectedANI(t int) {
	p := c.profile()
	tn := tone.Tone(t)
	if p.GI.NoMoreANI != tone.Invalid && tn == p.GI.NoMoreANI {
		c.requestChangeToG2()
		return
	}
	if p.GI.CallerANIRestricted != tone.Invalid && tn == p.GI.CallerANIRestricted {
		c.aniRestricted = true
		c.requestChangeToG2()
		return
	}
	d, ok := tn.Digit()
	if !ok {
		c.protocolError(ErrUnexpectedTone, fmt.Sprintf("non-digit tone %v while expecting ANI", tn))
		return
	}
	c.ani.AppendDigit(d)
	if c.ani.Len() >= c.ctx.MaxANI() {
		c.requestChangeToG2()
		return
	}
	c.requestNextANI()
}

// onCategoryReply records the caller category carried by t (GA/GC's
// CATEGORY_RQ_TXD reply) and decides whether ANI collection follows.
func (c *Channel) onCategoryReply(t int) {
	p := c.profile()
	if cat, ok := p.GII.ToneToCategory(tone.Tone(t)); ok {
		c.category = cat
	} else {
		c.log.Warn("category tone %d not recognized, leaving category unknown", t)
	}
	if c.ctx.MaxANI() > 0 {
		c.requestNextANI()
	} else {
		c.requestChangeToG2()
	}
}

// completeOffer finishes the backward-side MF exchange once the change-to-
// Group-II tone has been echoed back (spec.md §4.5's "GB / CHG_GII_TXD"
// row): the call is now OFFERED and the host is told.
func (c *Channel) completeOffer(t int) {
	p := c.profile()
	if cat, ok := p.GII.ToneToCategory(tone.Tone(t)); ok {
		c.category = cat
	}
	c.mfState = MFOff
	c.callState = CallOffered
	c.logCall("call offered ani=%q dnis=%q category=%s", c.ani.String(), c.dnis.String(), c.category)
	c.cb.OnCallOffered(c, c.ani.String(), c.dnis.String(), c.category)
}

// requestNextDNIS/requestNextANI/requestCategory/requestChangeToG2 are the
// backward-side "request" transmissions of spec.md §4.5; each replaces the
// mf_back_cycle watchdog (spec.md §4.5: "every received tone re-arms the
// mf_back_cycle safety timer" applies symmetrically to every request we
// send while awaiting the peer's next tone).
func (c *Channel) requestNextDNIS() {
	p := c.profile()
	c.mfGroup = GroupGA
	c.prepareMFTone(int(p.GA.RequestNextDNIS))
	c.mfState = MFDnisRqTxd
	c.armTimer(timer.BackCycle, p.Timers.MFBackCycle)
}

func (c *Channel) requestCategory() {
	p := c.profile()
	if p.GA.RequestCategoryAndChangeToGC != tone.Invalid {
		c.mfGroup = GroupGC
		c.prepareMFTone(int(p.GA.RequestCategoryAndChangeToGC))
	} else {
		c.mfGroup = GroupGA
		c.prepareMFTone(int(p.GA.RequestCategory))
	}
	c.mfState = MFCategoryRqTxd
	c.armTimer(timer.BackCycle, p.Timers.MFBackCycle)
}

func (c *Channel) requestNextANI() {
	p := c.profile()
	t := p.GA.RequestNextANI
	if c.mfGroup == GroupGC {
		t = p.GC.RequestNextANI
	}
	c.prepareMFTone(int(t))
	c.mfState = MFAniRqTxd
	c.armTimer(timer.BackCycle, p.Timers.MFBackCycle)
}

func (c *Channel) requestChangeToG2() {
	p := c.profile()
	t := p.GA.RequestChangeToG2
	if c.mfGroup == GroupGC {
		t = p.GC.RequestChangeToG2
	}
	c.mfGroup = GroupGB
	c.prepareMFTone(int(t))
	c.mfState = MFChgGIITxd
	c.armTimer(timer.BackCycle, p.Timers.MFBackCycle)
}

// mfBackCycleTimeout handles the one mf_back_cycle expiry context spec.md
// §4.5 defines: the variant has no no_more_dnis signal, so the peer
// stopping DNIS transmission can only be inferred from silence.
func (c *Channel) mfBackCycleTimeout() {
	p := c.profile()
	if c.mfGroup == GroupGA && c.mfState == MFDnisRqTxd && p.GI.NoMoreDNIS == tone.Invalid {
		c.prepareMFTone(0)
		if c.ani.Len() == 0 && c.ctx.MaxANI() > 0 {
			c.requestCategory()
		} else {
			c.requestChangeToG2()
		}
		return
	}
	c.protocolError(ErrBackMFTimeout, "mf_back_cycle expired outside GA/DNIS_RQ_TXD")
}

// --- Forward (caller) handling ---

// onForwardToneOff dispatches on the backward tone that just muted
// (spec.md §4.5 "Forward (caller) handling"): prev is the tone value that
// was held immediately before this tone-off.
func (c *Channel) onForwardToneOff(prev int) {
	switch c.mfGroup {
	case GroupGI:
		c.dispatchGI(prev)
	case GroupGII:
		c.dispatchGII(prev)
	case GroupGIII:
		c.dispatchGIII(prev)
	default:
		c.protocolError(ErrUnexpectedTone, fmt.Sprintf("tone-off %d in group=%s", prev, c.mfGroup))
	}
}

func (c *Channel) dispatchGI(prev int) {
	p := c.profile()
	t := tone.Tone(prev)
	switch {
	case p.GA.RequestCategoryAndChangeToGC != tone.Invalid && t == p.GA.RequestCategoryAndChangeToGC:
		c.mfGroup = GroupGIII
		c.mfSendCategory()
	case c.mfState == MFCategoryTxd && p.GA.RequestNextANI != tone.Invalid && t == p.GA.RequestNextANI:
		c.mfSendANI()
	case t == p.GA.RequestNextDNIS:
		c.mfSendDNIS()
	case t == p.GA.RequestCategory:
		c.mfSendCategory()
	case t == p.GA.RequestChangeToG2:
		c.mfGroup = GroupGII
		c.mfSendCategory()
	case p.GA.AddressCompleteChargeSetup != tone.Invalid && t == p.GA.AddressCompleteChargeSetup:
		c.handleAcceptTone(tone.AcceptWithCharge)
	case t == p.GA.NetworkCongestion:
		c.r2State = R2ClearBackToneRxd
		c.cb.OnCallDisconnect(c, tone.CauseNetworkCongestion)
	default:
		c.protocolError(ErrUnexpectedTone, fmt.Sprintf("tone-off %v in GI", t))
	}
}

func (c *Channel) dispatchGII(prev int) {
	p := c.profile()
	t := tone.Tone(prev)
	switch {
	case t == p.GB.AcceptWithCharge:
		c.handleAcceptTone(tone.AcceptWithCharge)
	case t == p.GB.AcceptNoCharge:
		c.handleAcceptTone(tone.AcceptNoCharge)
	case p.GB.SpecialInfo != tone.Invalid && t == p.GB.SpecialInfo:
		c.handleAcceptTone(tone.AcceptSpecialInfo)
	case t == p.GB.Busy:
		c.toneOffDisconnect(tone.CauseBusyNumber)
	case t == p.GB.Congestion:
		c.toneOffDisconnect(tone.CauseNetworkCongestion)
	case t == p.GB.Unallocated:
		c.toneOffDisconnect(tone.CauseUnallocatedNumber)
	case p.GB.OutOfOrder != tone.Invalid && t == p.GB.OutOfOrder:
		c.toneOffDisconnect(tone.CauseOutOfOrder)
	default:
		c.protocolError(ErrUnexpectedTone, fmt.Sprintf("tone-off %v in GII", t))
	}
}

func (c *Channel) dispatchGIII(prev int) {
	p := c.profile()
	t := tone.Tone(prev)
	switch {
	case t == p.GC.RequestNextANI:
		c.mfSendANI()
	case t == p.GC.RequestChangeToG2:
		c.mfGroup = GroupGII
		c.mfSendCategory()
	case t == p.GC.RequestNextDNISAndChangeToGA:
		c.mfGroup = GroupGI
		c.mfSendDNIS()
	default:
		c.protocolError(ErrUnexpectedTone, fmt.Sprintf("tone-off %v in GIII", t))
	}
}

func (c *Channel) toneOffDisconnect(cause tone.DisconnectCause) {
	c.r2State = R2ClearBackToneRxd
	c.cb.OnCallDisconnect(c, cause)
}

// mfSendDNIS/mfSendANI/mfSendCategory are the forward-side transmissions
// of spec.md §4.5.
func (c *Channel) mfSendDNIS() {
	p := c.profile()
	d, ok := c.dnis.Next()
	if !ok {
		if p.GI.NoMoreDNIS != tone.Invalid {
			c.prepareMFTone(int(p.GI.NoMoreDNIS))
			c.mfState = MFDnisEndTxd
			return
		}
		c.mfState = MFWaitingTimeout
		c.armTimer(timer.FwdSafety, p.Timers.MFFwdSafety)
		return
	}
	t, _ := tone.DigitTone(d)
	c.prepareMFTone(int(t))
	c.mfState = MFDnisTxd
}

func (c *Channel) mfSendANI() {
	p := c.profile()
	if c.aniRestricted && c.ani.cursor == 0 && p.GI.CallerANIRestricted != tone.Invalid {
		c.prepareMFTone(int(p.GI.CallerANIRestricted))
		c.mfState = MFAniEndTxd
		return
	}
	d, ok := c.ani.Next()
	if !ok {
		if p.GI.NoMoreANI != tone.Invalid {
			c.prepareMFTone(int(p.GI.NoMoreANI))
			c.mfState = MFAniEndTxd
			return
		}
		c.mfState = MFWaitingTimeout
		c.armTimer(timer.FwdSafety, p.Timers.MFFwdSafety)
		return
	}
	t, _ := tone.DigitTone(d)
	c.prepareMFTone(int(t))
	c.mfState = MFAniTxd
}

func (c *Channel) mfSendCategory() {
	p := c.profile()
	t := p.GII.CategoryToTone(c.category)
	c.prepareMFTone(int(t))
	c.mfState = MFCategoryTxd
}

// handleAcceptTone implements spec.md §4.5's reentrancy-guarded
// accept/answer merge: if ANSWER already arrived while we were still
// exchanging MF (ANSWER_RXD_MF_PENDING), fold straight into ANSWERED
// unless the OnCallAccepted callback itself already moved the state.
func (c *Channel) handleAcceptTone(mode tone.AcceptMode) {
	if c.r2State == R2AnswerRxdMFPending {
		preCall, preR2 := c.callState, c.r2State
		c.mfState = MFOff
		c.cb.OnCallAccepted(c, mode)
		if c.callState == preCall && c.r2State == preR2 {
			c.answered = true
			c.callState = CallAnswered
			c.readEnabled = true
			c.cb.OnCallAnswered(c)
		}
		return
	}
	c.mfState = MFOff
	c.r2State = R2AcceptRxd
	c.callState = CallAccepted
	c.armTimer(timer.AnswerTimeout, c.profile().Timers.R2Answer)
	c.cb.OnCallAccepted(c, mode)
}

// onReadyToAnswer fires readyToAnswerDelay after Accept() selected the
// Group-B accept tone (spec.md §4.5 "Forward tone-off on GII/ACCEPTED_TXD
// (backward side)"): mute the tone, move to ACCEPTED, and only then tell
// the host, so the far end has had time to observe our tone before Answer()
// toggles ABCD.
func (c *Channel) onReadyToAnswer() {
	c.prepareMFTone(0)
	c.mfState = MFOff
	c.callState = CallAccepted
	c.cb.OnCallAccepted(c, c.acceptMode)
}

func (c *Channel) onMeteringPulseTimeout() {
	c.cb.OnCallDisconnect(c, tone.CauseNormalClearing)
	c.endCall()
}

// disconnectToneFor maps a disconnect cause to the Group-B tone a backward
// channel transmits for it (spec.md §4.5 "disconnect_call").
func (c *Channel) disconnectToneFor(cause tone.DisconnectCause) tone.Tone {
	p := c.profile()
	switch cause {
	case tone.CauseBusyNumber:
		return p.GB.Busy
	case tone.CauseUnallocatedNumber:
		return p.GB.Unallocated
	case tone.CauseOutOfOrder:
		return p.GB.OutOfOrder
	default:
		return p.GB.Congestion
	}
}

// prepareMFTone is spec.md §4.5's single tone-selection choke point: only
// instruct the generator when the tone actually changes, and record
// mf_write_tone regardless.
func (c *Channel) prepareMFTone(newTone int) {
	if newTone != c.mfWriteTone {
		if err := c.mf.SelectTone(newTone); err != nil {
			c.cb.OnOSError(c, err)
			return
		}
	}
	c.mfWriteTone = newTone
}
