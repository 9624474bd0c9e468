//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const repoRootRel = ".." // relative to ./e2e

const (
	topicTemp   = "e2e/sensor/temperatura"
	topicHumid  = "e2e/sensor/umidade"
	topicConfig = "e2e/config/limites"
)

func TestSmoke_StationToBridge(t *testing.T) {
	repoRoot := repoRootPath(t)
	host, port := startMosquitto(t)

	bridgeBin := buildBinary(t, repoRoot, "./cmd/bridge")
	stationBin := buildBinary(t, repoRoot, "./cmd/station")
	addr := pickFreeAddr(t)

	common := []string{
		"APP_ENV=dev",
		"LOG_LEVEL=info",
		"MQTT_BROKER=" + host,
		"MQTT_PORT=" + port,
		"TOPIC_TEMPERATURE=" + topicTemp,
		"TOPIC_HUMIDITY=" + topicHumid,
		"TOPIC_CONFIG=" + topicConfig,
	}

	bridge := startProcess(t, bridgeBin, append(common,
		"HTTP_ADDR="+addr,
		"SQLITE_PATH="+filepath.Join(t.TempDir(), "ecosense.db"),
	))

	client := &http.Client{Timeout: 2 * time.Second}
	base := "http://" + addr
	waitFor(t, 10*time.Second, "bridge connected to broker", func() bool {
		var body map[string]string
		return getJSON(client, base+"/healthz", &body) == http.StatusOK && body["mqtt"] == "connected"
	})

	station := startProcess(t, stationBin, append(common,
		"SENSOR_DRIVER=sim",
		"DISPLAY_DRIVER=text",
		"GPIO_DRIVER=sim",
		"SENSOR_POLL_INTERVAL=200ms",
		"RECONNECT_INTERVAL=500ms",
	))

	waitFor(t, 15*time.Second, "station readings stored", func() bool {
		var body struct {
			Items []json.RawMessage `json:"items"`
		}
		if getJSON(client, base+"/api/readings?kind=temperature&limit=5", &body) != http.StatusOK {
			return false
		}
		return len(body.Items) > 0
	})

	received := subscribe(t, host, port, topicConfig)

	req, err := http.NewRequest(http.MethodPut, base+"/api/thresholds",
		strings.NewReader(`{"temp_min": 10, "temp_max": 40, "umid_min": 20, "umid_max": 90}`))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("PUT /api/thresholds: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusOK)
	}

	select {
	case payload := <-received:
		var doc map[string]float64
		if err := json.Unmarshal(payload, &doc); err != nil {
			t.Fatalf("config payload %q: %v", payload, err)
		}
		if doc["temp_max"] != 40 || doc["umid_min"] != 20 {
			t.Fatalf("config payload=%v", doc)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("thresholds were not published")
	}

	stopProcess(t, station)
	stopProcess(t, bridge)
}

func startMosquitto(t *testing.T) (host, port string) {
	t.Helper()

	ctx := context.Background()
	mqttPort := nat.Port("1883/tcp")

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2",
		Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
		ExposedPorts: []string{string(mqttPort)},
		WaitingFor:   wait.ForListeningPort(mqttPort).WithStartupTimeout(30 * time.Second),
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

	host, err = c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, mqttPort)
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return host, mapped.Port()
}

func subscribe(t *testing.T, host, port, topic string) <-chan []byte {
	t.Helper()

	out := make(chan []byte, 4)
	opts := paho.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%s", host, port)).
		SetClientID(fmt.Sprintf("e2e-%d", time.Now().UnixNano()))
	c := paho.NewClient(opts)
	if tok := c.Connect(); !tok.WaitTimeout(5*time.Second) || tok.Error() != nil {
		t.Fatalf("test client connect: %v", tok.Error())
	}
	t.Cleanup(func() { c.Disconnect(100) })

	tok := c.Subscribe(topic, 1, func(_ paho.Client, m paho.Message) {
		select {
		case out <- m.Payload():
		default:
		}
	})
	if !tok.WaitTimeout(5*time.Second) || tok.Error() != nil {
		t.Fatalf("test client subscribe: %v", tok.Error())
	}
	return out
}

func repoRootPath(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	repo := filepath.Clean(filepath.Join(wd, repoRootRel))
	if _, err := os.Stat(filepath.Join(repo, "go.mod")); err != nil {
		t.Fatalf("repo root %q does not contain go.mod: %v", repo, err)
	}

	return repo
}

func buildBinary(t *testing.T, repoRoot, pkg string) string {
	t.Helper()

	out := filepath.Join(t.TempDir(), filepath.Base(pkg))

	build := exec.Command("go", "build", "-o", out, pkg)
	build.Dir = repoRoot
	build.Env = os.Environ()

	b, err := build.CombinedOutput()
	if err != nil {
		t.Fatalf("go build %s failed: %v\n%s", pkg, err, string(b))
	}

	return out
}

func startProcess(t *testing.T, bin string, env []string) *exec.Cmd {
	t.Helper()

	cmd := exec.Command(bin)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("start %s: %v", bin, err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	})
	return cmd
}

func pickFreeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen :0: %v", err)
	}
	defer ln.Close()

	return ln.Addr().String()
}

func getJSON(client *http.Client, url string, out any) int {
	resp, err := client.Get(url)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return 0
	}
	return resp.StatusCode
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("timed out after %s waiting for: %s", timeout, what)
}

func stopProcess(t *testing.T, cmd *exec.Cmd) {
	t.Helper()

	_ = cmd.Process.Signal(syscall.SIGTERM)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		t.Fatalf("%s did not exit in time", cmd.Path)
	case err := <-done:
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				t.Fatalf("%s exited non-zero: %v", cmd.Path, err)
			}
			t.Fatalf("%s wait error: %v", cmd.Path, err)
		}
	}
}
