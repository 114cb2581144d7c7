package variant

import "github.com/rob-gra/mfr2/tone"

// ituProfile builds the ITU baseline that every variant layers its
// overrides on top of (spec.md §4.1: "base ITU defaults then variant
// overrides").
func ituProfile() Profile {
	return Profile{
		ABCD: map[Signal]byte{
			SigIdle:         0x8,
			SigBlock:        0xC,
			SigSeize:        0x0,
			SigSeizeAck:     0xC,
			SigClearBack:    0xC,
			SigClearForward: 0x8,
			SigAnswer:       0x4,
		},
		RBitMask:    0xC,
		NonRBitMask: 0x1,

		Timers: ituTimerDefaults(),

		GetAniFirst: true,

		GA: GroupA{
			RequestNextDNIS:              tone.Tone1,
			RequestNextANI:               tone.Tone5,
			RequestCategory:              tone.Tone5,
			RequestCategoryAndChangeToGC: tone.Invalid,
			AddressCompleteChargeSetup:   tone.Tone6,
			NetworkCongestion:            tone.Tone4,
			RequestChangeToG2:            tone.Tone3,
		},
		GB: GroupB{
			AcceptWithCharge: tone.Tone6,
			AcceptNoCharge:   tone.Tone7,
			Busy:             tone.Tone3,
			Congestion:       tone.Tone4,
			Unallocated:      tone.Tone5,
			OutOfOrder:       tone.Tone8,
			SpecialInfo:      tone.Tone2,
		},
		GC: GroupC{
			RequestNextANI:               tone.Invalid,
			RequestChangeToG2:            tone.Invalid,
			RequestNextDNISAndChangeToGA: tone.Invalid,
		},
		GI: GroupI{
			NoMoreDNIS:          tone.Tone15,
			NoMoreANI:           tone.Tone15,
			CallerANIRestricted: tone.Invalid,
		},
		GII: GroupII{
			National:              tone.Tone1,
			NationalPriority:      tone.Tone2,
			International:         tone.Tone7,
			InternationalPriority: tone.Tone9,
		},
	}
}

// applyArgentina layers Argentina's overrides on p (spec.md §4.1).
func applyArgentina(p *Profile) {
	p.GI.NoMoreDNIS = tone.Invalid
	p.GI.CallerANIRestricted = tone.Tone12
	p.Timers.R2MeteringPulse = msDuration(400)
}

// applyBrazil layers Brazil's overrides on p, which must already carry
// Argentina's (spec.md §4.1: "adds Argentina's tones").
func applyBrazil(p *Profile) {
	p.GA.AddressCompleteChargeSetup = tone.Invalid
	p.GB.AcceptWithCharge = tone.Tone1
	p.GB.Busy = tone.Tone2
	p.GB.AcceptNoCharge = tone.Tone5
	p.GB.SpecialInfo = tone.Tone6
	p.GB.Unallocated = tone.Tone7
}

// applyChina layers China's overrides on p.
func applyChina(p *Profile) {
	p.NonRBitMask = 0x3
	p.GA.RequestNextANI = tone.Tone1
	p.GA.RequestCategory = tone.Tone6
	p.GA.AddressCompleteChargeSetup = tone.Invalid
	p.GB.AcceptWithCharge = tone.Tone1
	p.GB.Busy = tone.Tone2
	p.GB.SpecialInfo = tone.Invalid
	p.GI.NoMoreDNIS = tone.Invalid
}

// applyMexico layers Mexico's overrides on p. Mexico is the one variant
// that uses Group C (GIII on the forward side) between category collection
// and the switch to Group II.
func applyMexico(p *Profile) {
	p.GetAniFirst = false

	p.GA.RequestCategory = tone.Invalid
	p.GA.RequestCategoryAndChangeToGC = tone.Tone6
	p.GA.AddressCompleteChargeSetup = tone.Invalid
	p.GA.RequestNextANI = tone.Invalid

	p.GB.AcceptWithCharge = tone.Tone1
	p.GB.AcceptNoCharge = tone.Tone5
	p.GB.Busy = tone.Tone2
	p.GB.Unallocated = tone.Tone2
	p.GB.SpecialInfo = tone.Invalid

	p.GC.RequestNextANI = tone.Tone1
	p.GC.RequestChangeToG2 = tone.Tone3
	p.GC.RequestNextDNISAndChangeToGA = tone.Tone5

	p.GI.NoMoreDNIS = tone.Invalid
}
