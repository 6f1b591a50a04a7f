package simulator

import (
	"context"
	"log/slog"
	"time"
)

type Sender interface {
	Send(ctx context.Context, p Payload) error
}

type Stats struct {
	Sent   int
	Failed int
}

// Run sends one reading per interval until ctx is done or, when count > 0,
// count readings were attempted. Delivery failures are logged and counted;
// they do not stop the run.
func Run(ctx context.Context, gen *Generator, sender Sender, interval time.Duration, count int) Stats {
	var st Stats
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		p := gen.Next(time.Now())
		if err := sender.Send(ctx, p); err != nil {
			if ctx.Err() != nil {
				return st
			}
			st.Failed++
			slog.Warn("send failed", "error", err)
		} else {
			st.Sent++
			slog.Info("reading sent", "temperature", p.Temperature, "humidity", p.Humidity)
		}

		if count > 0 && st.Sent+st.Failed >= count {
			return st
		}
		select {
		case <-ctx.Done():
			return st
		case <-ticker.C:
		}
	}
}
