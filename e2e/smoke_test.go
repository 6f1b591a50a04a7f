//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"envmon/internal/simulator"
)

const apiKey = "e2e-key"

const mqttTopic = "envmon/readings"

func TestSmoke_HTTPAndMQTT(t *testing.T) {
	host, port := startMosquitto(t)
	sqlitePath := filepath.Join(t.TempDir(), "envmon.db")

	baseURL, cmd := startServer(t,
		"DB_DRIVER=sqlite3",
		"SQLITE_PATH="+sqlitePath,
		"MQTT_ENABLED=true",
		"MQTT_BROKER="+host,
		"MQTT_PORT="+strconv.Itoa(port),
		"MQTT_TOPIC="+mqttTopic,
	)

	resp := postJSON(t, baseURL+"/api/v1/readings", map[string]any{"temperature": 21.5, "humidity": 48})
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status=%d want=%d", resp.StatusCode, http.StatusCreated)
	}

	resp = postJSON(t, baseURL+"/api/v1/readings", map[string]any{"temperature": 21.5, "humidity": 140})
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("out-of-range POST status=%d want=%d", resp.StatusCode, http.StatusBadRequest)
	}

	pub := simulator.NewPublisher(simulator.MQTTOptions{
		Broker:   host,
		Port:     port,
		ClientID: "envmon-e2e",
		Topic:    mqttTopic,
	}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := pub.Connect(ctx); err != nil {
		t.Fatalf("publisher connect: %v", err)
	}
	defer pub.Disconnect()

	if err := pub.Send(ctx, simulator.Payload{Temperature: 36, Humidity: 50}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	page := waitForTotal(t, baseURL, 2, 10*time.Second)
	if page.Items[0].Status != "alert_temperature" {
		t.Errorf("newest status=%q want=alert_temperature", page.Items[0].Status)
	}

	var stats struct {
		Count int `json:"count"`
	}
	getJSON(t, baseURL+"/api/v1/stats", &stats)
	if stats.Count != 2 {
		t.Errorf("stats.count=%d want=2", stats.Count)
	}

	stopServer(t, cmd)
}

// startMosquitto runs a broker that accepts anonymous clients and returns
// the host and mapped port.
func startMosquitto(t *testing.T) (string, int) {
	t.Helper()

	confDir := t.TempDir()
	conf := "listener 1883 0.0.0.0\nallow_anonymous true\n"
	if err := os.WriteFile(filepath.Join(confDir, "mosquitto.conf"), []byte(conf), 0o644); err != nil {
		t.Fatalf("write mosquitto.conf: %v", err)
	}

	ctx := context.Background()
	mqttPort := nat.Port("1883/tcp")

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2",
		ExposedPorts: []string{string(mqttPort)},
		Cmd:          []string{"mosquitto", "-c", "/mosquitto/config/mosquitto.conf"},
		HostConfigModifier: func(hc *container.HostConfig) {
			hc.Binds = append(hc.Binds, confDir+":/mosquitto/config:ro")
		},
		WaitingFor: wait.ForListeningPort(mqttPort).WithStartupTimeout(30 * time.Second),
	}

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start mosquitto container: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Terminate(ctx)
	})

	return hostPort(t, ctx, c, mqttPort)
}

func hostPort(t *testing.T, ctx context.Context, c tc.Container, p nat.Port) (string, int) {
	t.Helper()

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, p)
	if err != nil {
		t.Fatalf("mapped port %s: %v", p, err)
	}
	return host, mapped.Int()
}

func TestSmoke_LegacyRoutes(t *testing.T) {
	baseURL, cmd := startServer(t,
		"DB_DRIVER=sqlite3",
		"SQLITE_PATH="+filepath.Join(t.TempDir(), "envmon.db"),
	)

	resp := postJSON(t, fmt.Sprintf("%s/data?api_key=%s", baseURL, apiKey), map[string]any{"temperatura": 18.0, "umidade": 92})
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /data status=%d want=%d", resp.StatusCode, http.StatusCreated)
	}

	page := waitForTotal(t, baseURL, 1, 5*time.Second)
	if page.Items[0].Status != "alert_humidity" {
		t.Errorf("status=%q want=alert_humidity", page.Items[0].Status)
	}

	stopServer(t, cmd)
}
