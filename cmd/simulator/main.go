package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"envmon/internal/config"
	"envmon/internal/logging"
	"envmon/internal/simulator"
)

const appName = "envmon-simulator"

var version = "dev"

func main() {
	mode := flag.String("mode", "http", "delivery mode: http or mqtt")
	baseURL := flag.String("url", "http://localhost:8080", "server base URL (http mode)")
	interval := flag.Duration("interval", 5*time.Second, "time between readings")
	count := flag.Int("count", 0, "readings to send; 0 runs until interrupted")
	spike := flag.Float64("spike", 0.05, "probability of an out-of-band reading")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(logging.Options{
		AppEnv:  cfg.AppEnv,
		Level:   cfg.LogLevel,
		Version: version,
		AppName: appName,
	})
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sender simulator.Sender
	switch *mode {
	case "http":
		sender = simulator.NewHTTPSender(*baseURL, cfg.APIKey, 5*time.Second)
	case "mqtt":
		pub := simulator.NewPublisher(simulator.MQTTOptions{
			Broker:   cfg.MQTTBroker,
			Port:     cfg.MQTTPort,
			ClientID: appName,
			Topic:    cfg.MQTTTopic,
		}, logger)
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := pub.Connect(connectCtx)
		cancel()
		if err != nil {
			slog.Error("mqtt connect failed", "error", err)
			os.Exit(1)
		}
		defer pub.Disconnect()
		sender = pub
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(2)
	}

	slog.Info("simulating", "mode", *mode, "interval", interval.String(), "count", *count)
	st := simulator.Run(ctx, simulator.NewGenerator(*seed, *spike), sender, *interval, *count)
	slog.Info("done", "sent", st.Sent, "failed", st.Failed)
}
