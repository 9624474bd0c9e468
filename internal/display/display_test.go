package display

import (
	"bytes"
	"errors"
	"image"
	"strings"
	"testing"
)

type fakePanel struct {
	bounds image.Rectangle
	draws  int
	last   image.Image
	err    error
	halted bool
}

func (p *fakePanel) Bounds() image.Rectangle { return p.bounds }

func (p *fakePanel) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	p.draws++
	p.last = src
	return p.err
}

func (p *fakePanel) Halt() error {
	p.halted = true
	return nil
}

func lit(o *OLED) int {
	n := 0
	for _, b := range o.frame.Pix {
		for ; b != 0; b &= b - 1 {
			n++
		}
	}
	return n
}

func TestOLED_DrawAndClear(t *testing.T) {
	p := &fakePanel{bounds: image.Rect(0, 0, 128, 64)}
	o := newOLED(p)

	if got := o.Lines(); got != 4 {
		t.Fatalf("Lines() = %d; want 4", got)
	}
	if lit(o) != 0 {
		t.Fatal("new frame is not blank")
	}

	o.DrawText(0, "WEATHER")
	first := lit(o)
	if first == 0 {
		t.Fatal("DrawText lit no pixels")
	}

	o.DrawText(9, "off the panel")
	if lit(o) != first {
		t.Error("out of range line changed the frame")
	}

	o.Clear()
	if lit(o) != 0 {
		t.Error("Clear left pixels lit")
	}
}

func TestOLED_Flush(t *testing.T) {
	p := &fakePanel{bounds: image.Rect(0, 0, 128, 32)}
	o := newOLED(p)
	o.DrawText(1, "T 15.0..30.0C")

	if err := o.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if p.draws != 1 || p.last == nil {
		t.Fatalf("panel draws = %d; want 1 full frame", p.draws)
	}

	p.err = errors.New("i2c nack")
	if err := o.Flush(); err == nil || !strings.Contains(err.Error(), "i2c nack") {
		t.Errorf("Flush error = %v; want wrapped i2c error", err)
	}

	if err := o.Close(); err != nil || !p.halted {
		t.Errorf("Close: err=%v halted=%v", err, p.halted)
	}
}

func TestText_Flush(t *testing.T) {
	var buf bytes.Buffer
	d := NewText(&buf, 3)

	d.DrawText(0, "WEATHER")
	d.DrawText(1, "Temp  35.0C !")
	d.DrawText(5, "ignored")
	if err := d.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"|WEATHER         |", "|Temp  35.0C !   |", "|                |"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "ignored") {
		t.Error("out of range line was written")
	}
}

func TestText_SkipsUnchangedFrame(t *testing.T) {
	var buf bytes.Buffer
	d := NewText(&buf, 2)
	d.DrawText(0, "STATUS")

	_ = d.Flush()
	n := buf.Len()
	d.Clear()
	d.DrawText(0, "STATUS")
	_ = d.Flush()
	if buf.Len() != n {
		t.Error("identical frame written twice")
	}

	d.DrawText(1, "ALERT none")
	_ = d.Flush()
	if buf.Len() == n {
		t.Error("changed frame not written")
	}
}

func TestText_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	d := NewText(&buf, 1)
	d.DrawText(0, "0123456789abcdefXYZ")
	_ = d.Flush()
	if !strings.Contains(buf.String(), "|0123456789abcdef|") {
		t.Errorf("long line not clipped to 16 columns:\n%s", buf.String())
	}
}
