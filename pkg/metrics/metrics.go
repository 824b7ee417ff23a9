// Package metrics records per-run counters and writes them in the
// Prometheus text format for a node_exporter textfile collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every msgrelay collector. It is separate from the default
// registry so the textfile only carries msgrelay series.
var Registry = prometheus.NewRegistry()

var (
	DeviceCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msgrelay_device_commands_total",
			Help: "Device commands sent through adb, by outcome.",
		},
		[]string{"outcome"},
	)
	ScreenDumps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msgrelay_screen_dumps_total",
			Help: "UI dumps captured, by outcome.",
		},
		[]string{"outcome"},
	)
	PollLoops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msgrelay_poll_loops_total",
			Help: "Polling loops finished, by outcome.",
		},
		[]string{"outcome"},
	)
	PollAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "msgrelay_poll_attempts_total",
			Help: "Retry actions performed by polling loops.",
		},
	)
	Relayed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msgrelay_relayed_total",
			Help: "Items relayed to the chat application, by kind.",
		},
		[]string{"kind"},
	)
	LastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "msgrelay_last_run_timestamp_seconds",
			Help: "Unix time of the last finished run, by command and outcome.",
		},
		[]string{"command", "outcome"},
	)
)

func init() {
	Registry.MustRegister(DeviceCommands, ScreenDumps, PollLoops, PollAttempts, Relayed, LastRun)
}

// Outcome maps a boolean result onto the label values used above.
func Outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}

// WriteTextfile atomically writes the current values to path.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
