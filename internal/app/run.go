package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"envmon/internal/config"
	"envmon/internal/db"
	"envmon/internal/httpapi"
	"envmon/internal/metrics"
	"envmon/internal/migrate"
	"envmon/internal/modules/readings"
	"envmon/internal/modules/readings/repository"
	"envmon/internal/modules/readings/views"
	"envmon/internal/mqtt"
)

// OpenStore opens the reading store selected by cfg.DBDriver and applies the
// SQLite migrations. The returned func releases the underlying connection.
func OpenStore(ctx context.Context, cfg config.Config) (repository.Store, func(), error) {
	switch cfg.DBDriver {
	case config.DriverMongo:
		client, coll, err := db.OpenMongo(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				slog.Error("mongo disconnect", "error", err)
			}
		}
		if err := repository.EnsureIndexes(ctx, coll); err != nil {
			closeFn()
			return nil, nil, err
		}
		slog.Info("mongo store ready", "database", cfg.MongoDatabase, "collection", cfg.MongoCollection)
		return repository.NewMongoStore(coll), closeFn, nil

	case config.DriverSQLite:
		dbConn, err := db.Open(cfg, slog.Default())
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := db.Close(dbConn); err != nil {
				slog.Error("db close", "error", err)
			}
		}
		if err := migrate.Run(dbConn); err != nil {
			closeFn()
			return nil, nil, err
		}
		slog.Info("sqlite store ready", "path", cfg.SQLitePath)
		return repository.NewSQLiteStore(dbConn), closeFn, nil

	default:
		return nil, nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dbDriver", cfg.DBDriver,
		"sqlitePath", cfg.SQLitePath,
		"sqliteMaxOpenConns", cfg.SQLiteMaxOpenConns,
		"sqliteLogStatements", cfg.SQLiteLogStatements,
		"mqttEnabled", cfg.MQTTEnabled,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
		"apiKeySet", cfg.APIKey != "",
	)
	if cfg.APIKey == "" {
		slog.Warn("API_KEY is not set; ingest endpoints will refuse every request")
	}

	store, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	err = store.Ping(pingCtx)
	pingCancel()
	if err != nil {
		return fmt.Errorf("store ping: %w", err)
	}
	slog.Info("store connection successful")

	if err := views.LoadTemplates(); err != nil {
		return err
	}

	m := metrics.New()
	mux := httpapi.NewMux(store, m)

	// The handler is attached before Connect so messages arriving right
	// after the subscription are not dropped.
	var subscriber *mqtt.Subscriber
	deps := readings.Deps{
		Store:      store,
		Thresholds: cfg.Thresholds,
		APIKey:     cfg.APIKey,
		Metrics:    m,
		Logger:     slog.Default(),
	}
	if cfg.MQTTEnabled {
		subscriber, err = mqtt.NewSubscriber(cfg, slog.Default())
		if err != nil {
			return err
		}
		deps.Subscriber = subscriber
	}
	if err := readings.RegisterFeature(mux, deps); err != nil {
		return err
	}

	if subscriber != nil {
		// A short timeout keeps startup fast when the broker is down; the
		// HTTP API and /healthz stay available without MQTT.
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = subscriber.Connect(connectCtx)
		connectCancel()
		if err != nil {
			slog.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
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
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if subscriber != nil {
		slog.Info("mqtt disconnecting")
		subscriber.Disconnect()
	}

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
