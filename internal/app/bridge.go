package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"ecosense/internal/bridge"
	"ecosense/internal/config"
	"ecosense/internal/httpapi"
	"ecosense/internal/metrics"
	"ecosense/internal/mqtt"
	"ecosense/internal/storage"
	"ecosense/internal/storage/migrate"
)

// RunBridge serves the readings and thresholds API and relays between the
// broker and the store until ctx is cancelled.
func RunBridge(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"sqlitePath", cfg.SQLitePath,
		"sqliteMaxOpenConns", cfg.MaxOpenConns,
		"sqliteMaxIdleConns", cfg.MaxIdleConns,
		"sqliteConnMaxLifetime", cfg.ConnMaxLifetime,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"topicTemperature", cfg.TopicTemperature,
		"topicHumidity", cfg.TopicHumidity,
		"topicConfig", cfg.TopicConfig,
	)

	dbConn, err := storage.Open(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := storage.Close(dbConn); closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	applied, err := migrate.Run(ctx, dbConn, slog.Default())
	if err != nil {
		return err
	}
	slog.Info("database ready", "migrations_applied", applied)

	m := metrics.New()

	// Handlers and observers go in before Connect so the first session is
	// already subscribed when the broker starts delivering.
	mqttSubscriber := mqtt.NewSubscriber(cfg, slog.Default())
	mux := httpapi.NewMux(dbConn, mqttSubscriber, m.Handler())
	feature := bridge.RegisterFeature(mux, dbConn, mqttSubscriber, cfg, m, slog.Default())

	if err := feature.Thresholds.EnsureDefaults(ctx); err != nil {
		return err
	}

	mqttSubscriber.OnStateChange(m.SetConnected)
	mqttSubscriber.OnStateChange(func(connected bool) {
		if !connected {
			return
		}
		// The station forgets its bounds on restart; hand it the stored ones
		// on every session.
		pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := feature.Thresholds.Republish(pubCtx); err != nil {
			slog.Warn("republish thresholds failed", "error", err)
		}
	})

	// A short first connect keeps startup from hanging on a missing broker;
	// the session keeps retrying in the background.
	connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
	err = mqttSubscriber.Connect(connectCtx)
	connectCancel()
	if err != nil {
		slog.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
	}

	srv := httpapi.NewServer(cfg, mux, m)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		mqttSubscriber.Disconnect()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	slog.Info("mqtt disconnecting")
	mqttSubscriber.Disconnect()

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
