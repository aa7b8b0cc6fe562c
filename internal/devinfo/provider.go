package devinfo

import (
	"math"
	"runtime"
	"time"

	"github.com/danmuck/armdeck/internal/deck"
)

// Clock is the uptime source. Production uses RealClock; tests inject a
// fixed or stepped clock.
type Clock interface {
	Now() time.Time
}

// HeapCounter reports free heap bytes.
type HeapCounter interface {
	FreeHeap() uint64
}

// BatteryGauge reports charge percentage in [0, 100].
type BatteryGauge interface {
	Percent() (uint8, bool)
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func RealClock() Clock { return realClock{} }

// RuntimeHeap reports heap headroom from the Go runtime: bytes obtained from
// the OS for the heap that are not holding live objects.
type RuntimeHeap struct{}

func (RuntimeHeap) FreeHeap() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	if ms.HeapSys < ms.HeapAlloc {
		return 0
	}
	return ms.HeapSys - ms.HeapAlloc
}

// Provider composes runtime counters with the build identity.
type Provider struct {
	clock   Clock
	heap    HeapCounter
	battery BatteryGauge
	started time.Time
	name    string
	version Version
}

type Option func(*Provider)

func WithClock(c Clock) Option {
	return func(p *Provider) { p.clock = c }
}

func WithHeap(h HeapCounter) Option {
	return func(p *Provider) { p.heap = h }
}

func WithBattery(b BatteryGauge) Option {
	return func(p *Provider) { p.battery = b }
}

// WithName overrides DeviceName, e.g. from the daemon config file.
func WithName(name string) Option {
	return func(p *Provider) {
		if name != "" {
			p.name = name
		}
	}
}

// NewProvider starts the uptime clock at construction time.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		clock:   RealClock(),
		heap:    RuntimeHeap{},
		name:    DeviceName,
		version: FirmwareVersion(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.started = p.clock.Now()
	return p
}

// Snapshot never fails. Counters outside their field range are clamped.
func (p *Provider) Snapshot() Info {
	battery := BatteryUnmeasured
	if p.battery != nil {
		if pct, ok := p.battery.Percent(); ok {
			battery = min(pct, 100)
		}
	}
	uptime := p.clock.Now().Sub(p.started)
	if uptime < 0 {
		uptime = 0
	}
	return Info{
		ProtocolVersion: deck.ProtocolVersion,
		Firmware:        p.version,
		NumButtons:      deck.MaxButtons,
		Battery:         battery,
		UptimeSeconds:   clamp32(uint64(uptime / time.Second)),
		FreeHeap:        clamp32(p.heap.FreeHeap()),
		Name:            p.name,
	}
}

func (p *Provider) Name() string {
	return p.name
}

func clamp32(v uint64) uint32 {
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}
