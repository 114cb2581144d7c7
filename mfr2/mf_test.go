package mfr2

import (
	"testing"

	"github.com/rob-gra/mfr2/alaw"
	"github.com/rob-gra/mfr2/mfsim"
	"github.com/rob-gra/mfr2/timer"
	"github.com/rob-gra/mfr2/tone"
	"github.com/rob-gra/mfr2/variant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMFChannel builds a Channel through NewChannel with a real mfsim MF
// engine and an unused loopback peer, so tests can set mfGroup/mfState/
// direction directly and drive the tone dispatch functions in isolation, the way
// timer_test.go drives timer.Scheduler directly rather than through a
// Channel.
func newMFChannel(t *testing.T, v variant.Variant, maxDNIS, maxANI int) (*Channel, *recordingCallbacks) {
	t.Helper()
	ctx, err := NewContext(Config{Variant: v, MaxDNIS: maxDNIS, MaxANI: maxANI})
	require.NoError(t, err)
	dev, _ := mfsim.NewLoopback(1, 2)
	cb := &recordingCallbacks{}
	ch, err := NewChannel(ctx, 1, dev, mfsim.NewMFEngine(dev), alaw.Codec{}, cb)
	require.NoError(t, err)
	return ch, cb
}

func newMFChannelWithCallbacks(t *testing.T, v variant.Variant, maxDNIS, maxANI int, configure func(*recordingCallbacks)) (*Channel, *recordingCallbacks) {
	t.Helper()
	ctx, err := NewContext(Config{Variant: v, MaxDNIS: maxDNIS, MaxANI: maxANI})
	require.NoError(t, err)
	dev, _ := mfsim.NewLoopback(1, 2)
	cb := &recordingCallbacks{}
	configure(cb)
	ch, err := NewChannel(ctx, 1, dev, mfsim.NewMFEngine(dev), alaw.Codec{}, cb)
	require.NoError(t, err)
	return ch, cb
}

func TestBackwardCollectsDNISThenCategoryThenANI(t *testing.T) {
	ch, cb := newMFChannel(t, variant.ITU, 4, 4)
	ch.direction = Backward
	ch.mfGroup = GroupBackInit
	ch.mfState = MFSeizeAckTxd

	for _, d := range []byte{'1', '2', '3', '4'} {
		t, _ := tone.DigitTone(d)
		ch.onStableTone(int(t))
		ch.mfReadTone = 0 // simulate forward releasing its tone before the next digit
	}
	assert.Equal(t, "1234", ch.DNIS())
	assert.Equal(t, MFCategoryRqTxd, ch.MFState())

	catTone := ch.profile().GII.CategoryToTone(tone.NationalSubscriber)
	ch.onStableTone(int(catTone))
	ch.mfReadTone = 0
	assert.Equal(t, tone.NationalSubscriber, ch.Category())
	assert.Equal(t, MFAniRqTxd, ch.MFState())

	for _, d := range []byte{'5', '6', '7', '8'} {
		tn, _ := tone.DigitTone(d)
		ch.onStableTone(int(tn))
		ch.mfReadTone = 0
	}
	assert.Equal(t, "5678", ch.ANI())
	assert.Equal(t, MFChgGIITxd, ch.MFState())
	assert.Equal(t, GroupGB, ch.MFGroup())

	// The forward side's changed-to-GII tone carries category again, and
	// completes the offer.
	ch.onStableTone(int(catTone))
	assert.Equal(t, CallOffered, ch.CallState())
	require.Len(t, cb.offered, 1)
	assert.Equal(t, "5678/1234", cb.offered[0])
}

func TestBackwardDNISZeroBoundaryCompletesAfterOneDigit(t *testing.T) {
	ch, _ := newMFChannel(t, variant.ITU, 0, 0)
	ch.direction = Backward
	ch.mfGroup = GroupBackInit
	ch.mfState = MFSeizeAckTxd

	tn, _ := tone.DigitTone('9')
	ch.onStableTone(int(tn))
	assert.Equal(t, "9", ch.DNIS())
	assert.Equal(t, MFCategoryRqTxd, ch.MFState(), "MaxDNIS==0 completes after exactly one digit")
}

func TestBackwardRejectsUnexpectedGroupStateAsProtocolError(t *testing.T) {
	ch, cb := newMFChannel(t, variant.ITU, 4, 4)
	ch.direction = Backward
	// MFAniRqTxd is only ever reached from GA or GC; pairing it with GB (a
	// state dispatchBackwardTone's switch has no case for) must fall
	// through to the default protocol error rather than silently no-op.
	ch.mfGroup = GroupGB
	ch.mfState = MFAniRqTxd

	ch.onStableTone(int(ch.profile().GA.RequestNextDNIS))
	require.Len(t, cb.protoErrs, 1)
	assert.Equal(t, ErrUnexpectedTone, cb.protoErrs[0].Reason)
	assert.Equal(t, CallIdle, ch.CallState())
}

func TestForwardSendsDNISThenCategoryThenANI(t *testing.T) {
	ch, _ := newMFChannel(t, variant.ITU, 4, 4)
	ch.direction = Forward
	ch.mfGroup = GroupGI
	ch.dnis.SetDigits("123")
	ch.ani.SetDigits("99")
	ch.category = tone.NationalSubscriber

	ch.mfSendDNIS()
	want, _ := tone.DigitTone('1')
	assert.Equal(t, int(want), ch.mfWriteTone)
	assert.Equal(t, MFDnisTxd, ch.MFState())

	p := ch.profile()
	ch.onForwardToneOff(int(p.GA.RequestNextDNIS))
	want, _ = tone.DigitTone('2')
	assert.Equal(t, int(want), ch.mfWriteTone)

	ch.onForwardToneOff(int(p.GA.RequestNextDNIS))
	want, _ = tone.DigitTone('3')
	assert.Equal(t, int(want), ch.mfWriteTone)

	// Last digit sent; peer's next RequestNextDNIS tone-off means DNIS is
	// exhausted and signals NoMoreDNIS (ITU has one) before category.
	ch.onForwardToneOff(int(p.GA.RequestNextDNIS))
	assert.Equal(t, int(p.GI.NoMoreDNIS), ch.mfWriteTone)
	assert.Equal(t, MFDnisEndTxd, ch.MFState())

	ch.onForwardToneOff(int(p.GA.RequestCategory))
	assert.Equal(t, int(p.GII.CategoryToTone(tone.NationalSubscriber)), ch.mfWriteTone)
	assert.Equal(t, MFCategoryTxd, ch.MFState())

	ch.onForwardToneOff(int(p.GA.RequestNextANI))
	want, _ = tone.DigitTone('9')
	assert.Equal(t, int(want), ch.mfWriteTone)
	assert.Equal(t, MFAniTxd, ch.MFState())
}

func TestForwardAcceptWithChargeWithoutPendingAnswer(t *testing.T) {
	ch, cb := newMFChannel(t, variant.ITU, 4, 4)
	ch.direction = Forward
	ch.mfGroup = GroupGII
	ch.r2State = R2SeizeAckRxd

	p := ch.profile()
	ch.onForwardToneOff(int(p.GB.AcceptWithCharge))

	assert.Equal(t, R2AcceptRxd, ch.R2State())
	assert.Equal(t, CallAccepted, ch.CallState())
	require.Len(t, cb.accepted, 1)
	assert.Equal(t, tone.AcceptWithCharge, cb.accepted[0])
}

func TestForwardAcceptFoldsIntoAnswerWhenAlreadyPending(t *testing.T) {
	ch, cb := newMFChannel(t, variant.ITU, 4, 4)
	ch.direction = Forward
	ch.mfGroup = GroupGII
	ch.r2State = R2AnswerRxdMFPending

	p := ch.profile()
	ch.onForwardToneOff(int(p.GB.AcceptNoCharge))

	assert.Equal(t, CallAnswered, ch.CallState())
	assert.True(t, ch.answered)
	assert.Equal(t, 1, cb.answered)
	require.Len(t, cb.accepted, 1)
	assert.Equal(t, tone.AcceptNoCharge, cb.accepted[0])
}

func TestForwardAcceptCallbackCanSkipAutoAnswer(t *testing.T) {
	ch, cb := newMFChannelWithCallbacks(t, variant.ITU, 4, 4, func(r *recordingCallbacks) {
		r.onAccept = func(c *Channel) {
			c.callState = CallAccepted // callback itself drove the state elsewhere
		}
	})
	ch.direction = Forward
	ch.mfGroup = GroupGII
	ch.r2State = R2AnswerRxdMFPending

	p := ch.profile()
	ch.onForwardToneOff(int(p.GB.AcceptWithCharge))

	assert.Equal(t, 0, cb.answered, "OnCallAccepted already moved state, auto-answer must not double-fire")
	assert.Equal(t, CallAccepted, ch.CallState())
}

func TestForwardBusyDisconnect(t *testing.T) {
	ch, cb := newMFChannel(t, variant.ITU, 4, 4)
	ch.direction = Forward
	ch.mfGroup = GroupGII

	p := ch.profile()
	ch.onForwardToneOff(int(p.GB.Busy))

	assert.Equal(t, R2ClearBackToneRxd, ch.R2State())
	require.Len(t, cb.disconnects, 1)
	assert.Equal(t, tone.CauseBusyNumber, cb.disconnects[0])
}

func TestMexicoForwardUsesGroupCBetweenCategoryAndANI(t *testing.T) {
	ch, _ := newMFChannel(t, variant.Mexico, 4, 4)
	ch.direction = Forward
	ch.mfGroup = GroupGI
	ch.ani.SetDigits("1")
	ch.category = tone.NationalSubscriber

	p := ch.profile()
	// Mexico's RequestCategoryAndChangeToGC tone-off moves straight to GIII
	// and sends category there.
	ch.onForwardToneOff(int(p.GA.RequestCategoryAndChangeToGC))
	assert.Equal(t, GroupGIII, ch.MFGroup())
	assert.Equal(t, MFCategoryTxd, ch.MFState())

	ch.onForwardToneOff(int(p.GC.RequestNextANI))
	want, _ := tone.DigitTone('1')
	assert.Equal(t, int(want), ch.mfWriteTone)
	assert.Equal(t, MFAniTxd, ch.MFState())
}

func TestBrokenMFSequenceProtocolError(t *testing.T) {
	ch, cb := newMFChannel(t, variant.ITU, 4, 4)
	ch.direction = Backward
	ch.mfGroup = GroupGA
	ch.mfState = MFDnisRqTxd
	ch.mfReadTone = int(tone.Tone1) // a tone is already held

	ch.onStableTone(int(tone.Tone2)) // a second tone arrives without release
	require.Len(t, cb.protoErrs, 1)
	assert.Equal(t, ErrBrokenMFSequence, cb.protoErrs[0].Reason)
}

func TestContinuousToneSuppressed(t *testing.T) {
	ch, cb := newMFChannel(t, variant.ITU, 4, 4)
	ch.direction = Backward
	ch.mfGroup = GroupBackInit
	ch.mfState = MFSeizeAckTxd

	tn, _ := tone.DigitTone('1')
	ch.onStableTone(int(tn))
	assert.Equal(t, "1", ch.DNIS())

	ch.onStableTone(int(tn)) // identical tone still held, must not redispatch
	assert.Equal(t, "1", ch.DNIS())
	assert.Empty(t, cb.protoErrs)
}

func TestMeteringPulseTimeoutEndsCall(t *testing.T) {
	ch, cb := newMFChannel(t, variant.Argentina, 4, 4)
	ch.direction = Forward
	ch.callState = CallAnswered
	ch.r2State = R2ClearBackRxd

	ch.onMeteringPulseTimeout()
	assert.Equal(t, CallIdle, ch.CallState())
	require.Len(t, cb.disconnects, 1)
	assert.Equal(t, tone.CauseNormalClearing, cb.disconnects[0])
	assert.Equal(t, 1, cb.ended)
}

func TestOnReadyToAnswerMutesToneAndFiresAcceptedWithStoredMode(t *testing.T) {
	ch, cb := newMFChannel(t, variant.ITU, 4, 4)
	ch.direction = Backward
	ch.mfState = MFAcceptedTxd
	ch.mfWriteTone = int(ch.profile().GB.SpecialInfo)
	ch.acceptMode = tone.AcceptSpecialInfo

	ch.onReadyToAnswer()

	assert.Equal(t, MFOff, ch.MFState())
	assert.Equal(t, CallAccepted, ch.CallState())
	assert.Equal(t, 0, ch.mfWriteTone, "accept tone is muted before the host is told")
	require.Len(t, cb.accepted, 1)
	assert.Equal(t, tone.AcceptSpecialInfo, cb.accepted[0])
}

func TestAcceptArmsReadyToAnswerTimer(t *testing.T) {
	ch, _ := newMFChannel(t, variant.ITU, 4, 4)
	ch.callState = CallOffered

	require.NoError(t, ch.Accept(tone.AcceptWithCharge))
	assert.Equal(t, MFAcceptedTxd, ch.MFState())
	assert.Equal(t, timer.ReadyToAnswer, ch.sched.Kind())
}
