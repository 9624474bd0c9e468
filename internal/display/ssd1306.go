// Package display renders the station's text pages on an OLED panel or a
// plain text stream.
package display

import (
	"fmt"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

const lineHeight = 13

// panel is the part of *ssd1306.Dev the framebuffer is pushed through.
type panel interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Halt() error
}

// OLED draws text lines with the 7x13 bitmap font into a 1-bit framebuffer
// and pushes the whole frame on Flush.
type OLED struct {
	dev   panel
	frame *image1bit.VerticalLSB
	face  font.Face
}

// NewSSD1306 initializes a 128 pixel wide panel of the given height (32 or 64)
// on bus.
func NewSSD1306(bus i2c.Bus, height int) (*OLED, error) {
	opts := ssd1306.DefaultOpts
	opts.H = height
	dev, err := ssd1306.NewI2C(bus, &opts)
	if err != nil {
		return nil, fmt.Errorf("ssd1306 init: %w", err)
	}
	return newOLED(dev), nil
}

func newOLED(dev panel) *OLED {
	return &OLED{
		dev:   dev,
		frame: image1bit.NewVerticalLSB(dev.Bounds()),
		face:  basicfont.Face7x13,
	}
}

// Lines is how many text lines fit on the panel.
func (o *OLED) Lines() int {
	return o.frame.Bounds().Dy() / lineHeight
}

func (o *OLED) Clear() {
	for i := range o.frame.Pix {
		o.frame.Pix[i] = 0
	}
}

// DrawText renders text on the given line. Lines past the bottom edge and
// glyphs past the right edge are clipped.
func (o *OLED) DrawText(line int, text string) {
	if line < 0 || line >= o.Lines() {
		return
	}
	d := font.Drawer{
		Dst:  o.frame,
		Src:  &image.Uniform{C: image1bit.On},
		Face: o.face,
		Dot:  fixed.P(0, (line+1)*lineHeight-basicfont.Face7x13.Descent),
	}
	d.DrawString(text)
}

func (o *OLED) Flush() error {
	if err := o.dev.Draw(o.frame.Bounds(), o.frame, image.Point{}); err != nil {
		return fmt.Errorf("ssd1306 draw: %w", err)
	}
	return nil
}

// Close blanks the panel.
func (o *OLED) Close() error {
	return o.dev.Halt()
}
