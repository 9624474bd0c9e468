package pages

import (
	"reflect"
	"testing"
	"time"

	"ecosense/internal/alert"
)

func TestButton_ChatterInsideWindowIsIgnored(t *testing.T) {
	b := NewButton(300 * time.Millisecond)
	samples := []struct {
		now     uint32
		pressed bool
	}{
		{1000, true},  // edge, accepted
		{1025, false}, // bounce
		{1050, true},  // edge 50ms later, rejected
		{1100, true},
	}
	accepted := 0
	for _, s := range samples {
		if b.Sample(s.now, s.pressed) {
			accepted++
		}
	}
	if accepted != 1 {
		t.Fatalf("accepted %d edges, want 1", accepted)
	}
}

func TestButton_EdgeAfterWindowAccepted(t *testing.T) {
	b := NewButton(300 * time.Millisecond)
	if !b.Sample(0, true) {
		t.Fatal("first press rejected")
	}
	b.Sample(100, false)
	if b.Sample(200, true) {
		t.Fatal("press 200ms after accepted edge accepted")
	}
	b.Sample(250, false)
	// Rejected edges do not move the window: 300ms after the first accept.
	if !b.Sample(300, true) {
		t.Fatal("press at window end rejected")
	}
}

func TestButton_HeldDownTogglesOnce(t *testing.T) {
	b := NewButton(300 * time.Millisecond)
	accepted := 0
	for now := uint32(0); now < 3000; now += 10 {
		if b.Sample(now, true) {
			accepted++
		}
	}
	if accepted != 1 {
		t.Fatalf("held button accepted %d times, want 1", accepted)
	}
}

func TestButton_Wraparound(t *testing.T) {
	b := NewButton(300 * time.Millisecond)
	if !b.Sample(^uint32(0)-100, true) {
		t.Fatal("first press rejected")
	}
	b.Sample(^uint32(0)-50, false)
	if b.Sample(100, true) {
		t.Fatal("press 201ms later across wrap accepted")
	}
	b.Sample(150, false)
	if !b.Sample(250, true) {
		t.Fatal("press 351ms later across wrap rejected")
	}
}

func TestSelector_Cycles(t *testing.T) {
	var s Selector
	if s.Current() != PageReadings {
		t.Fatalf("initial page = %v", s.Current())
	}
	want := []Page{PageLimits, PageStatus, PageReadings, PageLimits}
	for i, w := range want {
		if got := s.Next(); got != w {
			t.Fatalf("Next #%d = %v, want %v", i, got, w)
		}
	}
}

func TestRender_Readings(t *testing.T) {
	v := View{
		Reading:    alert.Reading{Temperature: 35, Humidity: 50},
		HasReading: true,
		Bounds:     alert.DefaultBounds(),
		Alerts:     alert.State{Temp: true},
		Connected:  true,
	}
	got := Render(PageReadings, v)
	want := Lines{"WEATHER", "Temp  35.0C !", "Humid 50.0%", "MQTT online"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Render = %q, want %q", got, want)
	}
}

func TestRender_NoReadingYet(t *testing.T) {
	got := Render(PageReadings, View{Bounds: alert.DefaultBounds()})
	if got[1] != "Temp  --" || got[2] != "Humid --" || got[3] != "MQTT offline" {
		t.Errorf("Render = %q", got)
	}
}

func TestRender_LimitsAndStatus(t *testing.T) {
	v := View{Bounds: alert.Bounds{TempMin: 15, TempMax: 40, HumidMin: 30, HumidMax: 80}, Alerts: alert.State{Temp: true, Humid: true}}

	limits := Render(PageLimits, v)
	if limits[1] != "T 15.0..40.0C" || limits[2] != "H 30.0..80.0%" {
		t.Errorf("limits = %q", limits)
	}

	status := Render(PageStatus, v)
	if status[1] != "MQTT offline" || status[2] != "ALERT TEMP+HUMID" {
		t.Errorf("status = %q", status)
	}
	if got := Render(PageStatus, View{Connected: true}); got[2] != "ALERT none" || got[1] != "MQTT online" {
		t.Errorf("clear status = %q", got)
	}
}

func TestLines_Fit(t *testing.T) {
	page := Lines{"WEATHER", "Temp  35.0C !", "Humid 50.0% !", "MQTT online"}
	tests := []struct {
		n    int
		want Lines
	}{
		{n: 4, want: page},
		{n: 6, want: page},
		{n: 0, want: page},
		{n: 3, want: Lines{"Temp  35.0C !", "Humid 50.0% !", "MQTT online"}},
		{n: 2, want: Lines{"Temp  35.0C !", "Humid 50.0% !"}},
		{n: 1, want: Lines{"Temp  35.0C !"}},
	}
	for _, tt := range tests {
		if got := page.Fit(tt.n); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Fit(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestRender_Pure(t *testing.T) {
	v := View{Reading: alert.Reading{Temperature: 20, Humidity: 40}, HasReading: true, Bounds: alert.DefaultBounds()}
	for p := PageReadings; p < pageCount; p++ {
		if a, b := Render(p, v), Render(p, v); !reflect.DeepEqual(a, b) {
			t.Errorf("%v renders differently: %q vs %q", p, a, b)
		}
	}
}
