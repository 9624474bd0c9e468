package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level

	MQTTBroker         string
	MQTTPort           int
	MQTTClientID       string
	MQTTUsername       string
	MQTTPassword       string
	MQTTConnectTimeout time.Duration

	TopicTemperature string
	TopicHumidity    string
	TopicConfig      string

	SensorDriver  string
	BME280Address uint16
	DisplayDriver string
	SSD1306Height int
	GPIODriver    string
	ButtonPin     string
	LEDTempPin    string
	LEDHumidPin   string
	LEDOKPin      string

	SensorPollInterval time.Duration
	BlinkInterval      time.Duration
	DebounceInterval   time.Duration
	ReconnectInterval  time.Duration
	LoopInterval       time.Duration

	HTTPAddr        string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// LoadFromEnv reads the configuration shared by the station and the bridge.
// MQTT_CLIENT_ID falls back to "<clientPrefix>-<uuid>" so several processes can
// share a public broker.
func LoadFromEnv(clientPrefix string) (Config, error) {
	appEnv := envString("APP_ENV", "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(envString("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	mqttPortStr := envString("MQTT_PORT", "1883")
	mqttPort, err := strconv.Atoi(mqttPortStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %q: %w", mqttPortStr, err)
	}
	if mqttPort <= 0 || mqttPort > 65535 {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %d (allowed: 1-65535)", mqttPort)
	}

	mqttClientID := envString("MQTT_CLIENT_ID", "")
	if mqttClientID == "" {
		mqttClientID = clientPrefix + "-" + uuid.NewString()
	}

	connectTimeout, err := envDuration("MQTT_CONNECT_TIMEOUT", "3s")
	if err != nil {
		return Config{}, err
	}

	sensorDriver := envString("SENSOR_DRIVER", "sim")
	switch sensorDriver {
	case "bme280", "sim":
	default:
		return Config{}, fmt.Errorf("invalid SENSOR_DRIVER %q (allowed: bme280, sim)", sensorDriver)
	}
	bme280Address, err := envAddress("BME280_ADDRESS", "0x76")
	if err != nil {
		return Config{}, err
	}

	displayDriver := envString("DISPLAY_DRIVER", "text")
	switch displayDriver {
	case "ssd1306", "text":
	default:
		return Config{}, fmt.Errorf("invalid DISPLAY_DRIVER %q (allowed: ssd1306, text)", displayDriver)
	}
	ssd1306Height, err := envInt("SSD1306_HEIGHT", "64")
	if err != nil {
		return Config{}, err
	}
	if ssd1306Height != 32 && ssd1306Height != 64 {
		return Config{}, fmt.Errorf("invalid SSD1306_HEIGHT %d (allowed: 32, 64)", ssd1306Height)
	}

	gpioDriver := envString("GPIO_DRIVER", "sim")
	switch gpioDriver {
	case "periph", "sim":
	default:
		return Config{}, fmt.Errorf("invalid GPIO_DRIVER %q (allowed: periph, sim)", gpioDriver)
	}

	sensorPoll, err := envDuration("SENSOR_POLL_INTERVAL", "2s")
	if err != nil {
		return Config{}, err
	}
	blink, err := envDuration("BLINK_INTERVAL", "300ms")
	if err != nil {
		return Config{}, err
	}
	debounce, err := envDuration("DEBOUNCE_INTERVAL", "300ms")
	if err != nil {
		return Config{}, err
	}
	reconnect, err := envDuration("RECONNECT_INTERVAL", "5s")
	if err != nil {
		return Config{}, err
	}
	loop, err := envDuration("LOOP_INTERVAL", "10ms")
	if err != nil {
		return Config{}, err
	}

	maxOpenConns, err := envInt("DB_MAX_OPEN_CONNS", "1")
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := envInt("DB_MAX_IDLE_CONNS", "1")
	if err != nil {
		return Config{}, err
	}
	connMaxLifetimeStr := envString("DB_CONN_MAX_LIFETIME", "0s")
	connMaxLifetime, err := time.ParseDuration(connMaxLifetimeStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME %q: %w", connMaxLifetimeStr, err)
	}

	return Config{
		AppEnv:   appEnv,
		LogLevel: level,

		MQTTBroker:         envString("MQTT_BROKER", "localhost"),
		MQTTPort:           mqttPort,
		MQTTClientID:       mqttClientID,
		MQTTUsername:       envString("MQTT_USERNAME", ""),
		MQTTPassword:       envString("MQTT_PASSWORD", ""),
		MQTTConnectTimeout: connectTimeout,

		TopicTemperature: envString("TOPIC_TEMPERATURE", "esp32/sensor/temperatura"),
		TopicHumidity:    envString("TOPIC_HUMIDITY", "esp32/sensor/umidade"),
		TopicConfig:      envString("TOPIC_CONFIG", "esp32/config/limites"),

		SensorDriver:  sensorDriver,
		BME280Address: bme280Address,
		DisplayDriver: displayDriver,
		SSD1306Height: ssd1306Height,
		GPIODriver:    gpioDriver,
		ButtonPin:     envString("BUTTON_PIN", "GPIO17"),
		LEDTempPin:    envString("LED_TEMP_PIN", "GPIO22"),
		LEDHumidPin:   envString("LED_HUMID_PIN", "GPIO23"),
		LEDOKPin:      envString("LED_OK_PIN", "GPIO24"),

		SensorPollInterval: sensorPoll,
		BlinkInterval:      blink,
		DebounceInterval:   debounce,
		ReconnectInterval:  reconnect,
		LoopInterval:       loop,

		HTTPAddr:        envString("HTTP_ADDR", ":8080"),
		SQLitePath:      envString("SQLITE_PATH", "data/ecosense.db"),
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxLifetime: connMaxLifetime,
	}, nil
}

func envString(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

func envInt(name, def string) (int, error) {
	s := envString(name, def)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return n, nil
}

// envDuration parses a positive duration; the station timers cannot run with a
// zero interval.
func envDuration(name, def string) (time.Duration, error) {
	s := envString(name, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", name, d)
	}
	return d, nil
}

func envAddress(name, def string) (uint16, error) {
	s := envString(name, def)
	addr, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return uint16(addr), nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
