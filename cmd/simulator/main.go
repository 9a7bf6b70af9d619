package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"time"

	"rack-service/internal/adapters/kafka"
	"rack-service/pkg/logger"
)

type sensorPayload struct {
	Timestamp      int64   `json:"timestamp"`
	Temperature    float64 `json:"temperature"`
	Humidity       float64 `json:"humidity"`
	WaterLevel     float64 `json:"waterLevel"`
	LightIntensity float64 `json:"lightIntensity"`
	PH             float64 `json:"ph"`
	EC             float64 `json:"ec"`
}

type rackModel struct {
	temperature float64
	humidity    float64
	waterLevel  float64
	light       float64
	ph          float64
	ec          float64
}

func main() {
	var brokers string
	var topic string
	var deviceKey string
	var interval time.Duration
	var count int
	var seed int64

	flag.StringVar(&brokers, "brokers", "localhost:9092", "comma separated kafka brokers")
	flag.StringVar(&topic, "topic", "rack-telemetry", "kafka topic to publish device events on")
	flag.StringVar(&deviceKey, "device", "AA:BB:CC:DD:EE:01", "rack device key")
	flag.DurationVar(&interval, "interval", 2*time.Second, "delay between sensor readings")
	flag.IntVar(&count, "count", 0, "number of readings to emit (0 = infinite)")
	flag.Int64Var(&seed, "seed", 0, "random seed (0 = use current time)")
	flag.Parse()

	logger.Setup("info", "text")

	if interval <= 0 {
		log.Fatal("interval must be > 0")
	}
	if count < 0 {
		log.Fatal("count must be >= 0")
	}
	if deviceKey == "" {
		log.Fatal("device is required")
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	producer, err := kafka.InitKafkaProducer(strings.Split(brokers, ","), "rack-simulator")
	if err != nil {
		log.Fatal("Failed to create kafka producer:", err)
	}
	publisher := kafka.NewDevicePublisher(producer, topic)
	defer publisher.Close()

	slog.Info("Simulator started", "seed", seed, "device", deviceKey, "topic", topic, "interval", interval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	publish(publisher, deviceKey, "status", map[string]string{"status": "online"})
	defer publish(publisher, deviceKey, "status", map[string]string{"status": "offline"})

	model := rackModel{temperature: 24, humidity: 55, waterLevel: 80, light: 650, ph: 6.2, ec: 1.4}
	emitted := 0
	for {
		if count > 0 && emitted >= count {
			slog.Info("Simulation complete", "sent", emitted)
			return
		}

		reading := model.next(rng, time.Now())
		if publish(publisher, deviceKey, "sensors", reading) {
			emitted++
			slog.Info("Sent reading", "n", emitted, "temperature", reading.Temperature, "waterLevel", reading.WaterLevel)
		}

		if reading.WaterLevel < 15 {
			publish(publisher, deviceKey, "alerts", map[string]string{
				"kind":     "reservoir",
				"severity": "warning",
				"message":  "Reservoir almost empty",
			})
			model.waterLevel = 95
		}

		select {
		case <-ctx.Done():
			slog.Info("Simulation stopped")
			return
		case <-time.After(interval):
		}
	}
}

func publish(p *kafka.DevicePublisher, deviceKey, kind string, v interface{}) bool {
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to encode payload", "kind", kind, "error", err)
		return false
	}
	if _, _, err := p.Publish(deviceKey, kind, payload); err != nil {
		slog.Warn("Send failed", "kind", kind, "error", err)
		return false
	}
	return true
}

func (m *rackModel) next(rng *rand.Rand, now time.Time) sensorPayload {
	m.temperature = clamp(m.temperature+rng.NormFloat64()*0.2, 15, 38)
	m.humidity = clamp(m.humidity+rng.NormFloat64()*0.8, 20, 90)
	// The reservoir drains steadily.
	m.waterLevel = clamp(m.waterLevel-rng.Float64()*1.5, 0, 100)
	m.light = clamp(m.light+rng.NormFloat64()*15, 0, 1200)
	m.ph = clamp(m.ph+rng.NormFloat64()*0.03, 4.5, 8)
	m.ec = clamp(m.ec+rng.NormFloat64()*0.02, 0.2, 3)

	return sensorPayload{
		Timestamp:      now.UnixMilli(),
		Temperature:    round1(m.temperature),
		Humidity:       round1(m.humidity),
		WaterLevel:     round1(m.waterLevel),
		LightIntensity: round1(m.light),
		PH:             math.Round(m.ph*100) / 100,
		EC:             math.Round(m.ec*100) / 100,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
