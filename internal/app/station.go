package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"ecosense/internal/config"
	"ecosense/internal/display"
	"ecosense/internal/leds"
	"ecosense/internal/mqtt"
	"ecosense/internal/pins"
	"ecosense/internal/schedule"
	"ecosense/internal/sensor"
	"ecosense/internal/station"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// textLines matches what the 64 pixel panel holds with the 7x13 font.
const textLines = 4

// RunStation builds the station from cfg and runs its loop until ctx is
// cancelled. Hardware that fails to initialize aborts startup.
func RunStation(ctx context.Context, cfg config.Config) error {
	slog.Info("initializing station",
		"mqtt_broker", cfg.MQTTBroker,
		"mqtt_port", cfg.MQTTPort,
		"mqtt_client_id", cfg.MQTTClientID,
		"sensor_driver", cfg.SensorDriver,
		"display_driver", cfg.DisplayDriver,
		"gpio_driver", cfg.GPIODriver,
	)

	hw, err := openHardware(cfg, slog.Default(), os.Stdout)
	if err != nil {
		return err
	}
	defer hw.close()

	if tapper, ok := hw.button.(*pins.SimButton); ok {
		stop := tapOnSignal(tapper)
		defer stop()
		slog.Info("simulated button: send SIGUSR1 to switch pages", "pid", os.Getpid())
	}

	client := mqtt.NewClient(cfg, slog.Default())

	st := station.New(station.Config{
		TopicTemperature:  cfg.TopicTemperature,
		TopicHumidity:     cfg.TopicHumidity,
		TopicConfig:       cfg.TopicConfig,
		PollInterval:      cfg.SensorPollInterval,
		BlinkInterval:     cfg.BlinkInterval,
		DebounceInterval:  cfg.DebounceInterval,
		ReconnectInterval: cfg.ReconnectInterval,
		LoopInterval:      cfg.LoopInterval,
	}, station.Deps{
		Clock:   schedule.NewSystemClock(),
		Sensor:  hw.sensor,
		Display: hw.display,
		Button:  hw.button,
		LEDs:    leds.NewBank(hw.ledTemp, hw.ledHumid, hw.ledOK),
		Network: client,
	}, slog.Default())

	err = st.Run(ctx)
	if dropped := client.Dropped(); dropped > 0 {
		slog.Warn("inbound messages dropped", "count", dropped)
	}
	slog.Info("station shutting down")
	return err
}

type hardware struct {
	sensor  station.Sensor
	display station.Display
	button  station.Input

	ledTemp, ledHumid, ledOK leds.Output

	closers []io.Closer
}

func (h *hardware) close() {
	// Reverse order: devices before the bus they sit on.
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i].Close(); err != nil {
			slog.Warn("hardware close", "error", err)
		}
	}
}

// openHardware picks the sensor, display and pins named by cfg. The I2C bus
// and the periph host drivers are only touched when a real device needs them.
func openHardware(cfg config.Config, logger *slog.Logger, out io.Writer) (_ *hardware, err error) {
	hw := &hardware{}
	defer func() {
		if err != nil {
			hw.close()
		}
	}()

	needI2C := cfg.SensorDriver == "bme280" || cfg.DisplayDriver == "ssd1306"
	if needI2C || cfg.GPIODriver == "periph" {
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("periph host init: %w", err)
		}
	}

	var bus i2c.BusCloser
	if needI2C {
		bus, err = i2creg.Open("")
		if err != nil {
			return nil, fmt.Errorf("open i2c bus: %w", err)
		}
		hw.closers = append(hw.closers, bus)
	}

	switch cfg.DisplayDriver {
	case "ssd1306":
		oled, err := display.NewSSD1306(bus, cfg.SSD1306Height)
		if err != nil {
			return nil, fmt.Errorf("display init: %w", err)
		}
		hw.display = oled
		hw.closers = append(hw.closers, oled)
	default:
		hw.display = display.NewText(out, textLines)
	}

	switch cfg.SensorDriver {
	case "bme280":
		bme, err := sensor.NewBME280(bus, cfg.BME280Address)
		if err != nil {
			return nil, fmt.Errorf("sensor init: %w", err)
		}
		hw.sensor = bme
		hw.closers = append(hw.closers, bme)
	default:
		hw.sensor = sensor.NewSim()
	}

	switch cfg.GPIODriver {
	case "periph":
		button, err := pins.OpenButton(cfg.ButtonPin)
		if err != nil {
			return nil, err
		}
		hw.button = button
		for _, l := range []struct {
			pin string
			dst *leds.Output
		}{
			{cfg.LEDTempPin, &hw.ledTemp},
			{cfg.LEDHumidPin, &hw.ledHumid},
			{cfg.LEDOKPin, &hw.ledOK},
		} {
			led, err := pins.OpenLED(l.pin)
			if err != nil {
				return nil, err
			}
			*l.dst = led
		}
	default:
		hw.button = &pins.SimButton{}
		hw.ledTemp = pins.NewSimLED("temperature", logger)
		hw.ledHumid = pins.NewSimLED("humidity", logger)
		hw.ledOK = pins.NewSimLED("ok", logger)
	}

	return hw, nil
}

// tapOnSignal presses b once per SIGUSR1 until the returned stop is called.
func tapOnSignal(b *pins.SimButton) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ch:
				b.Tap()
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
	}
}
