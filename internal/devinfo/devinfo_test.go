package devinfo

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/danmuck/armdeck/internal/deck"
	"github.com/danmuck/armdeck/internal/testutil/testlog"
)

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time { return c.now }

type fixedHeap uint64

func (h fixedHeap) FreeHeap() uint64 { return uint64(h) }

type fixedBattery struct {
	pct uint8
	ok  bool
}

func (b fixedBattery) Percent() (uint8, bool) { return b.pct, b.ok }

func TestSnapshotComposesCountersAndIdentity(t *testing.T) {
	testlog.Start(t)

	clk := &stepClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	p := NewProvider(WithClock(clk), WithHeap(fixedHeap(4096)))
	clk.now = clk.now.Add(90*time.Second + 400*time.Millisecond)

	info := p.Snapshot()
	if info.UptimeSeconds != 90 {
		t.Fatalf("expected 90s uptime, got %d", info.UptimeSeconds)
	}
	if info.FreeHeap != 4096 {
		t.Fatalf("expected heap 4096, got %d", info.FreeHeap)
	}
	if info.ProtocolVersion != deck.ProtocolVersion || info.NumButtons != deck.MaxButtons {
		t.Fatalf("unexpected identity: %+v", info)
	}
	if info.Battery != BatteryUnmeasured {
		t.Fatalf("expected placeholder battery, got %d", info.Battery)
	}
	if info.Name != DeviceName || info.Firmware != FirmwareVersion() {
		t.Fatalf("unexpected build identity: %+v", info)
	}
}

func TestSnapshotClampsCounters(t *testing.T) {
	testlog.Start(t)

	clk := &stepClock{now: time.Unix(1000, 0)}
	p := NewProvider(
		WithClock(clk),
		WithHeap(fixedHeap(math.MaxUint32+10)),
		WithBattery(fixedBattery{pct: 250, ok: true}),
		WithName("bench-deck"),
	)
	clk.now = time.Unix(10, 0)

	info := p.Snapshot()
	if info.UptimeSeconds != 0 {
		t.Fatalf("clock going backwards must not underflow, got %d", info.UptimeSeconds)
	}
	if info.FreeHeap != math.MaxUint32 {
		t.Fatalf("expected clamped heap, got %d", info.FreeHeap)
	}
	if info.Battery != 100 {
		t.Fatalf("expected clamped battery, got %d", info.Battery)
	}
	if info.Name != "bench-deck" {
		t.Fatalf("expected configured name, got %q", info.Name)
	}
}

func TestInfoBinaryRoundTrip(t *testing.T) {
	testlog.Start(t)

	in := Info{
		ProtocolVersion: 1,
		Firmware:        Version{Major: 1, Minor: 2, Patch: 0},
		NumButtons:      12,
		Battery:         87,
		UptimeSeconds:   123456,
		FreeHeap:        200000,
		Name:            "ArmDeck",
	}
	raw, err := in.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(raw) != Size {
		t.Fatalf("expected %d bytes, got %d", Size, len(raw))
	}
	out, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in {
		t.Fatalf("round-trip mismatch: got %+v want %+v", out, in)
	}

	long := in
	long.Name = "a-very-long-device-name"
	raw, _ = long.MarshalBinary()
	if raw[Size-1] != 0 {
		t.Fatalf("name field must stay terminated")
	}
	out, _ = Decode(raw)
	if out.Name != long.Name[:NameSize-1] {
		t.Fatalf("expected truncated name, got %q", out.Name)
	}

	if _, err := Decode(raw[:Size-1]); !errors.Is(err, ErrSize) {
		t.Fatalf("expected ErrSize, got %v", err)
	}
}

func TestParseVersion(t *testing.T) {
	testlog.Start(t)

	tests := []struct {
		in      string
		want    Version
		wantErr bool
	}{
		{in: "1.2.0", want: Version{1, 2, 0}},
		{in: "v0.9.17", want: Version{0, 9, 17}},
		{in: "1.2", wantErr: true},
		{in: "1.2.256", wantErr: true},
		{in: "a.b.c", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseVersion(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("%q: got %v, %v", tt.in, got, err)
		}
		if got.String() != "1.2.0" && tt.in == "1.2.0" {
			t.Fatalf("unexpected string form %q", got.String())
		}
	}
}
