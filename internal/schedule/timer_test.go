package schedule

import (
	"math"
	"testing"
	"time"
)

func TestReady(t *testing.T) {
	tests := []struct {
		name     string
		now      uint32
		last     uint32
		interval uint32
		want     bool
	}{
		{name: "not elapsed", now: 1299, last: 1000, interval: 300, want: false},
		{name: "exactly elapsed", now: 1300, last: 1000, interval: 300, want: true},
		{name: "well past", now: 5000, last: 1000, interval: 300, want: true},
		{name: "zero interval", now: 7, last: 7, interval: 0, want: true},
		{name: "wrap not elapsed", now: 100, last: math.MaxUint32 - 100, interval: 300, want: false},
		{name: "wrap exactly elapsed", now: 199, last: math.MaxUint32 - 100, interval: 300, want: true},
		{name: "wrap well past", now: 1000, last: math.MaxUint32 - 10, interval: 300, want: true},
		{name: "last at max", now: 0, last: math.MaxUint32, interval: 1, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Ready(tt.now, tt.last, tt.interval); got != tt.want {
				t.Errorf("Ready(%d, %d, %d) = %v, want %v", tt.now, tt.last, tt.interval, got, tt.want)
			}
		})
	}
}

func TestReady_AgreesWithModularElapsed(t *testing.T) {
	lasts := []uint32{0, 1, 1000, math.MaxUint32 / 2, math.MaxUint32 - 500, math.MaxUint32}
	intervals := []uint32{0, 1, 300, 2000, math.MaxUint32}
	offsets := []uint32{0, 1, 299, 300, 301, 1999, 2000, 100000}

	for _, last := range lasts {
		for _, interval := range intervals {
			for _, off := range offsets {
				now := last + off // wraps on purpose
				want := uint64(off) >= uint64(interval)
				if got := Ready(now, last, interval); got != want {
					t.Fatalf("Ready(%d, %d, %d) = %v, want %v", now, last, interval, got, want)
				}
			}
		}
	}
}

func TestTimer_FirstCheckFires(t *testing.T) {
	tm := NewTimer(2 * time.Second)
	if !tm.Ready(0) {
		t.Fatal("fresh timer should be ready")
	}
	if _, fired := tm.Last(); fired {
		t.Fatal("fresh timer reports fired")
	}
}

func TestTimer_FireResetsWindow(t *testing.T) {
	tm := NewTimer(300 * time.Millisecond)
	tm.Fire(1000)

	if tm.Ready(1299) {
		t.Error("ready before interval elapsed")
	}
	if !tm.Ready(1300) {
		t.Error("not ready once interval elapsed")
	}
	last, fired := tm.Last()
	if !fired || last != 1000 {
		t.Errorf("Last() = %d, %v; want 1000, true", last, fired)
	}
}

func TestTimer_AcrossWraparound(t *testing.T) {
	tm := NewTimer(500 * time.Millisecond)
	tm.Fire(math.MaxUint32 - 200)

	if tm.Ready(100) {
		t.Error("ready 301ms after fire with 500ms interval")
	}
	if !tm.Ready(299) {
		t.Error("not ready 500ms after fire across wrap")
	}
}

func TestMillis(t *testing.T) {
	if got := Millis(1500 * time.Millisecond); got != 1500 {
		t.Errorf("Millis(1.5s) = %d", got)
	}
	if got := Millis(-time.Second); got != 0 {
		t.Errorf("Millis(-1s) = %d", got)
	}
	if got := Millis(100 * 24 * time.Hour); got != math.MaxUint32 {
		t.Errorf("Millis(huge) = %d, want saturation", got)
	}
}

func TestSystemClock_Advances(t *testing.T) {
	c := NewSystemClock()
	a := c.Millis()
	time.Sleep(5 * time.Millisecond)
	b := c.Millis()
	if b-a < 5 {
		t.Errorf("clock advanced %dms, want >= 5", b-a)
	}
}
