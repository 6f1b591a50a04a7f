// Package simulator produces synthetic readings and delivers them to a
// running server the way a field sensor would.
package simulator

import (
	"math"
	"math/rand"
	"time"

	"envmon/internal/modules/readings/policy"
)

// Payload is the ingest body shared by the HTTP and MQTT paths.
type Payload struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Timestamp   string  `json:"timestamp,omitempty"`
}

// Generator is a bounded random walk around a base climate with occasional
// spikes. It is not safe for concurrent use.
type Generator struct {
	rng          *rand.Rand
	temperature  float64
	humidity     float64
	spikeChance  float64
	stepTemp     float64
	stepHumidity float64
}

func NewGenerator(seed int64, spikeChance float64) *Generator {
	return &Generator{
		rng:          rand.New(rand.NewSource(seed)),
		temperature:  22,
		humidity:     55,
		spikeChance:  math.Max(0, math.Min(1, spikeChance)),
		stepTemp:     0.5,
		stepHumidity: 1.5,
	}
}

// Next advances the walk and returns a payload stamped with now.
func (g *Generator) Next(now time.Time) Payload {
	g.temperature = clamp(g.temperature+(g.rng.Float64()*2-1)*g.stepTemp, 0, 45)
	g.humidity = clamp(g.humidity+(g.rng.Float64()*2-1)*g.stepHumidity, 5, 99)

	t, h := g.temperature, g.humidity
	if g.rng.Float64() < g.spikeChance {
		if g.rng.Float64() < 0.5 {
			t = 32 + g.rng.Float64()*12
		} else {
			h = 91 + g.rng.Float64()*8
		}
	}

	return Payload{
		Temperature: round1(clamp(t, policy.TemperatureFloor, policy.TemperatureCeil)),
		Humidity:    round1(clamp(h, policy.HumidityFloor, policy.HumidityCeil)),
		Timestamp:   now.UTC().Format(time.RFC3339),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
