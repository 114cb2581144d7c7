package variant

import (
	"errors"
	"time"
)

// TimerTable holds the protocol timer durations that §4.1 of the
// specification lists per variant. The zero-means-default / range-
// validated shape follows the teacher's cs104.Config.Valid()/DefaultConfig:
// a timer left at its zero value is filled in from the ITU baseline, any
// non-zero value outside the allowed range is rejected.
type TimerTable struct {
	// MFBackCycle re-arms on every received tone; its expiry without a
	// fresh tone means the peer has gone silent mid-exchange.
	MFBackCycle time.Duration
	// MFBackResumeCycle is validated and defaulted with the others, but
	// mfr2.Channel never arms a timer with it: on a MFBackCycle timeout
	// the channel mutes its own tone at once.
	MFBackResumeCycle time.Duration
	// MFFwdSafety bounds how long the forward side waits for the
	// backward side to request the next digit/category.
	MFFwdSafety time.Duration
	// R2Seize bounds how long a SEIZE may go unacknowledged.
	R2Seize time.Duration
	// R2Answer bounds how long an accepted call may go unanswered.
	R2Answer time.Duration
	// R2MeteringPulse is the maximum duration of a CLEAR_BACK/ANSWER
	// flicker that must be treated as a metering pulse rather than a
	// disconnect. Zero means the variant has no metering-pulse signal.
	R2MeteringPulse time.Duration
}

const (
	mfBackCycleDefault       = 1500 * time.Millisecond
	mfBackResumeCycleDefault = 150 * time.Millisecond
	mfFwdSafetyDefault       = 10000 * time.Millisecond
	r2SeizeDefault           = 8000 * time.Millisecond
	r2AnswerDefault          = 80000 * time.Millisecond
)

// TimerMin/TimerMax mirror cs104's per-field [min,max]s range checks; MFC/R2
// has no standard upper bound so these are generous sanity limits rather
// than protocol-mandated ones.
const (
	TimerMin = time.Millisecond
	TimerMax = 10 * time.Minute
)

func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func ituTimerDefaults() TimerTable {
	return TimerTable{
		MFBackCycle:       mfBackCycleDefault,
		MFBackResumeCycle: mfBackResumeCycleDefault,
		MFFwdSafety:       mfFwdSafetyDefault,
		R2Seize:           r2SeizeDefault,
		R2Answer:          r2AnswerDefault,
		R2MeteringPulse:   0,
	}
}

// Valid fills unset (zero) fields with the ITU defaults and range-checks
// anything the caller did supply.
func (t *TimerTable) Valid() error {
	if t == nil {
		return errors.New("variant: nil timer table")
	}
	defaults := ituTimerDefaults()

	fields := []struct {
		name string
		cur  *time.Duration
		def  time.Duration
		// allowZero permits zero to stand for "disabled" rather than
		// "use default" - only R2MeteringPulse behaves this way.
		allowZero bool
	}{
		{"MFBackCycle", &t.MFBackCycle, defaults.MFBackCycle, false},
		{"MFBackResumeCycle", &t.MFBackResumeCycle, defaults.MFBackResumeCycle, false},
		{"MFFwdSafety", &t.MFFwdSafety, defaults.MFFwdSafety, false},
		{"R2Seize", &t.R2Seize, defaults.R2Seize, false},
		{"R2Answer", &t.R2Answer, defaults.R2Answer, false},
		{"R2MeteringPulse", &t.R2MeteringPulse, 0, true},
	}

	for _, f := range fields {
		if *f.cur == 0 {
			if !f.allowZero {
				*f.cur = f.def
			}
			continue
		}
		if *f.cur < TimerMin || *f.cur > TimerMax {
			return errors.New("variant: " + f.name + " out of range")
		}
	}
	return nil
}
