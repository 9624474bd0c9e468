// Package pages selects and renders the display pages.
package pages

import (
	"fmt"
	"strings"
	"time"

	"ecosense/internal/alert"
	"ecosense/internal/schedule"
)

type Page int

const (
	PageReadings Page = iota
	PageLimits
	PageStatus

	pageCount
)

func (p Page) String() string {
	switch p {
	case PageReadings:
		return "readings"
	case PageLimits:
		return "limits"
	case PageStatus:
		return "status"
	default:
		return fmt.Sprintf("page(%d)", int(p))
	}
}

// Button turns raw samples of an active-low push button into debounced press
// edges. An edge is accepted only when the debounce interval has elapsed since
// the previously accepted one; edges inside the window are dropped and do not
// extend it.
type Button struct {
	timer   *schedule.Timer
	pressed bool
}

func NewButton(debounce time.Duration) *Button {
	return &Button{timer: schedule.NewTimer(debounce)}
}

// Sample feeds the logical (already inverted) button state at now and reports
// whether an accepted press edge occurred.
func (b *Button) Sample(now uint32, pressed bool) bool {
	edge := pressed && !b.pressed
	b.pressed = pressed
	if !edge || !b.timer.Ready(now) {
		return false
	}
	b.timer.Fire(now)
	return true
}

// Selector is the current page index.
type Selector struct {
	page Page
}

func (s *Selector) Current() Page { return s.page }

// Next advances to the following page, wrapping after the last one.
func (s *Selector) Next() Page {
	s.page = (s.page + 1) % pageCount
	return s.page
}

// View is everything a page can show.
type View struct {
	Reading    alert.Reading
	HasReading bool
	Bounds     alert.Bounds
	Alerts     alert.State
	Connected  bool
}

// Lines is one rendered page, top to bottom. The first line is the title.
type Lines []string

// Fit trims l for a display holding n lines. The title goes first, then lines
// from the bottom.
func (l Lines) Fit(n int) Lines {
	if n <= 0 || len(l) <= n {
		return l
	}
	l = l[1:]
	if len(l) > n {
		l = l[:n]
	}
	return l
}

// Render returns the text of page p for v. It has no side effects.
func Render(p Page, v View) Lines {
	switch p {
	case PageLimits:
		return Lines{
			"LIMITS",
			fmt.Sprintf("T %.1f..%.1fC", v.Bounds.TempMin, v.Bounds.TempMax),
			fmt.Sprintf("H %.1f..%.1f%%", v.Bounds.HumidMin, v.Bounds.HumidMax),
		}
	case PageStatus:
		return Lines{
			"STATUS",
			"MQTT " + onOff(v.Connected),
			"ALERT " + alertNames(v.Alerts),
		}
	default:
		temp, humid := "--", "--"
		if v.HasReading {
			temp = fmt.Sprintf("%.1fC", v.Reading.Temperature)
			humid = fmt.Sprintf("%.1f%%", v.Reading.Humidity)
		}
		return Lines{
			"WEATHER",
			"Temp  " + temp + mark(v.Alerts.Temp),
			"Humid " + humid + mark(v.Alerts.Humid),
			"MQTT " + onOff(v.Connected),
		}
	}
}

func onOff(connected bool) string {
	if connected {
		return "online"
	}
	return "offline"
}

func mark(active bool) string {
	if active {
		return " !"
	}
	return ""
}

func alertNames(st alert.State) string {
	var names []string
	if st.Temp {
		names = append(names, "TEMP")
	}
	if st.Humid {
		names = append(names, "HUMID")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "+")
}
