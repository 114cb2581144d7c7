// Command mfr2-sim drives a simulated MFC/R2 call setup end to end, using
// mfsim's in-memory loopback pair in place of real T1/E1 hardware. It is a
// demo/integration binary, not a production dialer: one side originates
// the call described by its flags, the other accepts it, and the program
// exits once the call is answered, disconnected, or a protocol error ends
// it.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/rob-gra/mfr2/alaw"
	"github.com/rob-gra/mfr2/clog"
	"github.com/rob-gra/mfr2/mfr2"
	"github.com/rob-gra/mfr2/mfsim"
	"github.com/rob-gra/mfr2/tone"
	"github.com/rob-gra/mfr2/variant"
)

var (
	callsAnswered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mfr2_sim_calls_answered_total",
		Help: "Calls that reached ANSWERED.",
	})
	protocolErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mfr2_sim_protocol_errors_total",
		Help: "Protocol errors by reason.",
	}, []string{"reason"})
	activeChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mfr2_sim_active_channels",
		Help: "Channels currently not IDLE.",
	})
)

func main() {
	var (
		variantName = pflag.String("variant", "ITU", "signaling variant (ITU, AR, BR, CN, CZ, EC, MX, PH)")
		ani         = pflag.String("ani", "5551234", "calling number")
		dnis        = pflag.String("dnis", "800", "called number")
		categoryStr = pflag.String("category", "national_subscriber", "calling party category")
		acceptStr   = pflag.String("accept-mode", "with-charge", "accept mode the backward side responds with")
		maxDNIS     = pflag.Int("max-dnis", 10, "DNIS digits collected before requesting category")
		maxANI      = pflag.Int("max-ani", 10, "ANI digits collected before changing to group II")
		logFormat   = pflag.String("log-format", "plain", "plain or charm")
		metricsAddr = pflag.String("metrics-addr", "", "address to serve /metrics on (empty disables)")
	)
	pflag.Parse()

	v, err := variant.Parse(*variantName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	category, ok := tone.ParseCategory(*categoryStr)
	if !ok {
		fmt.Fprintf(os.Stderr, "mfr2-sim: unknown category %q\n", *categoryStr)
		os.Exit(1)
	}
	acceptMode := parseAcceptMode(*acceptStr)

	if *metricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				fmt.Fprintf(os.Stderr, "mfr2-sim: metrics server: %v\n", err)
			}
		}()
	}

	ctx, err := mfr2.NewContext(mfr2.Config{Variant: v, MaxDNIS: *maxDNIS, MaxANI: *maxANI})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	devFwd, devBack := mfsim.NewLoopback(1, 2)

	fwdCb := &simCallbacks{name: "forward"}
	fwd, err := mfr2.NewChannel(ctx, 1, devFwd, mfsim.NewMFEngine(devFwd), alaw.Codec{}, fwdCb)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	backCb := &simCallbacks{name: "backward", autoAcceptMode: acceptMode}
	back, err := mfr2.NewChannel(ctx, 2, devBack, mfsim.NewMFEngine(devBack), alaw.Codec{}, backCb)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	backCb.channel = back

	if *logFormat == "charm" {
		fwd.WithLogProvider(clog.NewCharmProvider("[mfr2-sim forward] "))
		back.WithLogProvider(clog.NewCharmProvider("[mfr2-sim backward] "))
	}

	if err := fwd.MakeCall(*ani, *dnis, category); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		fwd.ProcessEvents()
		back.ProcessEvents()
		if fwdCb.done || backCb.done {
			break
		}
		wait := fwd.TimeToNext()
		if bw := back.TimeToNext(); bw < wait {
			wait = bw
		}
		if wait <= 0 || wait > 5*time.Millisecond {
			wait = 5 * time.Millisecond
		}
		time.Sleep(wait)
	}

	updateActiveChannels(fwd, back)
}

func parseAcceptMode(s string) tone.AcceptMode {
	switch s {
	case "no-charge":
		return tone.AcceptNoCharge
	case "special-info":
		return tone.AcceptSpecialInfo
	default:
		return tone.AcceptWithCharge
	}
}

func updateActiveChannels(chans ...*mfr2.Channel) {
	n := 0
	for _, c := range chans {
		if c.CallState() != mfr2.CallIdle {
			n++
		}
	}
	activeChannels.Set(float64(n))
}

// simCallbacks logs every callback and drives the demo's own side of the
// host API (backward auto-accepts an offered call; either side ends the
// program's wait loop on disconnect or protocol error).
type simCallbacks struct {
	mfr2.NoopCallbacks
	name           string
	channel        *mfr2.Channel
	autoAcceptMode tone.AcceptMode
	done           bool
}

func (s *simCallbacks) OnCallInit(ch *mfr2.Channel) {
	fmt.Printf("[%s] call init\n", s.name)
}

func (s *simCallbacks) OnCallOffered(ch *mfr2.Channel, ani, dnis string, category tone.Category) {
	fmt.Printf("[%s] offered ani=%s dnis=%s category=%s\n", s.name, ani, dnis, category)
	if s.channel != nil {
		if err := s.channel.Accept(s.autoAcceptMode); err != nil {
			fmt.Fprintf(os.Stderr, "[%s] accept failed: %v\n", s.name, err)
		}
	}
}

func (s *simCallbacks) OnCallAccepted(ch *mfr2.Channel, mode tone.AcceptMode) {
	fmt.Printf("[%s] accepted mode=%s\n", s.name, mode)
	if ch.Direction() == mfr2.Backward {
		if err := ch.Answer(); err != nil {
			fmt.Fprintf(os.Stderr, "[%s] answer failed: %v\n", s.name, err)
		}
	}
}

func (s *simCallbacks) OnCallAnswered(ch *mfr2.Channel) {
	fmt.Printf("[%s] answered\n", s.name)
	callsAnswered.Inc()
	s.done = true
}

func (s *simCallbacks) OnCallDisconnect(ch *mfr2.Channel, cause tone.DisconnectCause) {
	fmt.Printf("[%s] disconnect cause=%s\n", s.name, cause)
	s.done = true
}

func (s *simCallbacks) OnCallEnd(ch *mfr2.Channel) {
	fmt.Printf("[%s] call ended\n", s.name)
	s.done = true
}

func (s *simCallbacks) OnProtocolError(ch *mfr2.Channel, err *mfr2.ProtocolError) {
	fmt.Fprintf(os.Stderr, "[%s] protocol error: %v\n", s.name, err)
	protocolErrors.WithLabelValues(err.Reason.String()).Inc()
	s.done = true
}
