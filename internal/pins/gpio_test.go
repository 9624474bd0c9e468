package pins

import (
	"testing"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func TestButton_ActiveLow(t *testing.T) {
	pin := &gpiotest.Pin{N: "GPIO17", Num: 17}
	b, err := NewButton(pin)
	if err != nil {
		t.Fatalf("NewButton: %v", err)
	}
	if pin.P != gpio.PullUp {
		t.Errorf("pull = %s; want PullUp", pin.P)
	}

	pressed, err := b.Pressed()
	if err != nil || pressed {
		t.Fatalf("idle button: pressed=%v err=%v; want released", pressed, err)
	}

	pin.Lock()
	pin.L = gpio.Low
	pin.Unlock()
	if pressed, _ := b.Pressed(); !pressed {
		t.Error("low level should read as pressed")
	}
}

func TestLED_Set(t *testing.T) {
	pin := &gpiotest.Pin{N: "GPIO22", Num: 22, L: gpio.High}
	l, err := NewLED(pin)
	if err != nil {
		t.Fatalf("NewLED: %v", err)
	}
	if pin.Read() != gpio.Low {
		t.Fatal("new LED should start off")
	}

	if err := l.Set(true); err != nil {
		t.Fatalf("Set(true): %v", err)
	}
	if pin.Read() != gpio.High {
		t.Error("Set(true) did not drive the pin high")
	}
	_ = l.Set(false)
	if pin.Read() != gpio.Low {
		t.Error("Set(false) did not drive the pin low")
	}
}

func TestOpen_UnknownPin(t *testing.T) {
	if _, err := OpenButton("NOPE99"); err == nil {
		t.Error("OpenButton accepted an unknown pin")
	}
	if _, err := OpenLED("NOPE99"); err == nil {
		t.Error("OpenLED accepted an unknown pin")
	}
}

func TestSimButton_TapIsOnePress(t *testing.T) {
	var b SimButton

	if p, _ := b.Pressed(); p {
		t.Fatal("untapped button reads pressed")
	}

	b.Tap()
	b.Tap()
	want := []bool{true, false, true, false, false}
	for i, w := range want {
		if p, _ := b.Pressed(); p != w {
			t.Errorf("read %d: pressed=%v; want %v", i, p, w)
		}
	}
}

func TestSimLED(t *testing.T) {
	l := NewSimLED("ok", nil)
	if l.On() {
		t.Fatal("new LED is on")
	}
	_ = l.Set(true)
	if !l.On() {
		t.Error("Set(true) not recorded")
	}
}
