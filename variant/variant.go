// Package variant implements the MFC/R2 "Variant Profile" component (C1
// of the design): a closed enumeration of country variants, each a set of
// overrides layered on ITU defaults, following the
// base-then-override pattern the teacher applies to connection
// configuration (cs104.Config: zero field means "use default", otherwise
// validate).
package variant

import (
	"fmt"
	"strings"

	"github.com/rob-gra/mfr2/tone"
)

// Variant is the closed set of supported country signaling variants.
type Variant int

const (
	ITU Variant = iota
	Argentina
	Brazil
	China
	Czech
	Ecuador
	Mexico
	Philippines
)

var variantNames = map[Variant]string{
	ITU:         "ITU",
	Argentina:   "AR",
	Brazil:      "BR",
	China:       "CN",
	Czech:       "CZ",
	Ecuador:     "EC",
	Mexico:      "MX",
	Philippines: "PH",
}

func (v Variant) String() string {
	if name, ok := variantNames[v]; ok {
		return name
	}
	return "UNKNOWN"
}

// Parse accepts one of the eight canonical variant names, case-insensitive
// and exact-match (spec.md §6), and returns the Variant.
func Parse(name string) (Variant, error) {
	up := strings.ToUpper(strings.TrimSpace(name))
	for v, n := range variantNames {
		if n == up {
			return v, nil
		}
	}
	return ITU, fmt.Errorf("variant: unknown variant %q", name)
}

// Signal is a symbolic ABCD line-state signal name.
type Signal int

const (
	SigIdle Signal = iota
	SigBlock
	SigSeize
	SigSeizeAck
	SigClearBack
	SigClearForward
	SigAnswer
)

func (s Signal) String() string {
	switch s {
	case SigIdle:
		return "IDLE"
	case SigBlock:
		return "BLOCK"
	case SigSeize:
		return "SEIZE"
	case SigSeizeAck:
		return "SEIZE_ACK"
	case SigClearBack:
		return "CLEAR_BACK"
	case SigClearForward:
		return "CLEAR_FORWARD"
	case SigAnswer:
		return "ANSWER"
	default:
		return "UNKNOWN_SIGNAL"
	}
}

// GroupA is the backward-side vocabulary used while requesting DNIS/ANI
// digits and the calling-party category (ITU Group A / Mexico's Group A).
type GroupA struct {
	RequestNextDNIS              tone.Tone
	RequestNextANI               tone.Tone
	RequestCategory              tone.Tone
	RequestCategoryAndChangeToGC tone.Tone // Mexico only; tone.Invalid elsewhere
	AddressCompleteChargeSetup   tone.Tone
	NetworkCongestion            tone.Tone
	RequestChangeToG2            tone.Tone
}

// GroupB is the backward-side vocabulary used to accept or refuse the call
// once category/digits have been collected.
type GroupB struct {
	AcceptWithCharge tone.Tone
	AcceptNoCharge   tone.Tone
	Busy             tone.Tone
	Congestion       tone.Tone
	Unallocated      tone.Tone
	OutOfOrder       tone.Tone
	SpecialInfo      tone.Tone
}

// GroupC is Mexico's intermediate backward-side vocabulary, used between
// category collection and the switch to Group II.
type GroupC struct {
	RequestNextANI               tone.Tone
	RequestChangeToG2            tone.Tone
	RequestNextDNISAndChangeToGA tone.Tone
}

// GroupI is the forward-side vocabulary of tones sendable in place of a
// DNIS/ANI digit, to end a collection early or flag restriction.
type GroupI struct {
	NoMoreDNIS          tone.Tone
	NoMoreANI           tone.Tone
	CallerANIRestricted tone.Tone
}

// GroupII maps calling-party category to its forward-side tone and back.
type GroupII struct {
	National              tone.Tone
	NationalPriority      tone.Tone
	International         tone.Tone
	InternationalPriority tone.Tone
}

// CategoryToTone returns the GroupII tone for a category.
func (g GroupII) CategoryToTone(c tone.Category) tone.Tone {
	switch c {
	case tone.NationalSubscriber:
		return g.National
	case tone.NationalPrioritySubscriber:
		return g.NationalPriority
	case tone.InternationalSubscriber:
		return g.International
	case tone.InternationalPrioritySubscriber:
		return g.InternationalPriority
	default:
		return tone.Invalid
	}
}

// ToneToCategory is the inverse of CategoryToTone.
func (g GroupII) ToneToCategory(t tone.Tone) (tone.Category, bool) {
	switch t {
	case g.National:
		return tone.NationalSubscriber, true
	case g.NationalPriority:
		return tone.NationalPrioritySubscriber, true
	case g.International:
		return tone.InternationalSubscriber, true
	case g.InternationalPriority:
		return tone.InternationalPrioritySubscriber, true
	default:
		return tone.UnknownCategory, false
	}
}

// Profile is the fully resolved, immutable set of parameters a channel
// consults for its variant: ABCD signal patterns, bit masks, tone-group
// tables, timers, and ordering/metering policy.
type Profile struct {
	Variant Variant

	// ABCD carries the canonical 4-bit pattern for each symbolic signal.
	ABCD map[Signal]byte
	// RBitMask selects which of the four ABCD bits carry R2 line state;
	// NonRBitMask selects the bits held at a constant value.
	RBitMask, NonRBitMask byte

	Timers TimerTable

	GetAniFirst bool

	GA  GroupA
	GB  GroupB
	GC  GroupC
	GI  GroupI
	GII GroupII
}

// HasMeteringPulse reports whether this variant signals per-minute billing
// with a CLEAR_BACK/ANSWER flicker (spec.md §4.4, ANSWER_RXD/CLEAR_BACK_RXD).
func (p Profile) HasMeteringPulse() bool {
	return p.Timers.R2MeteringPulse > 0
}

// NewProfile builds the Profile for v: ITU defaults, then v's overrides,
// per spec.md §4.1.
func NewProfile(v Variant) (Profile, error) {
	if _, ok := variantNames[v]; !ok {
		return Profile{}, fmt.Errorf("variant: unknown variant %d", int(v))
	}
	p := ituProfile()
	p.Variant = v

	switch v {
	case ITU, Czech, Ecuador, Philippines:
		// ITU defaults apply unmodified.
	case Argentina:
		applyArgentina(&p)
	case Brazil:
		applyArgentina(&p) // Brazil layers Argentina's tones first
		applyBrazil(&p)
	case China:
		applyChina(&p)
	case Mexico:
		applyMexico(&p)
	}

	if err := p.Timers.Valid(); err != nil {
		return Profile{}, err
	}
	return p, nil
}
