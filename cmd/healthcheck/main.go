// Command healthcheck is the container HEALTHCHECK for keygate. It exits 0
// only when the server answers its health endpoint with status "ok" and at
// least one registered provider.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	httphandler "github.com/pulsesparkai/SparkOrchestra-sub001/internal/adapter/driving/http"
	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/config"
)

const (
	healthPath     = "/api/v1/health"
	defaultTimeout = 2 * time.Second
)

func main() {
	os.Exit(run(os.Getenv, os.Stderr))
}

func run(getenv func(string) string, stderr io.Writer) int {
	timeout, err := parseTimeout(getenv("KEYGATE_HEALTHCHECK_TIMEOUT"))
	if err != nil {
		fmt.Fprintf(stderr, "healthcheck: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	target := "http://" + loopbackAddr(getenv("KEYGATE_LISTEN_ADDR")) + healthPath
	if err := checkHealth(ctx, http.DefaultClient, target); err != nil {
		fmt.Fprintf(stderr, "healthcheck: %v\n", err)
		return 1
	}
	return 0
}

// checkHealth requires a 200 whose body reports status "ok" and a non-empty
// provider list.
func checkHealth(ctx context.Context, client *http.Client, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var health httphandler.HealthResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&health); err != nil {
		return fmt.Errorf("decode health response: %w", err)
	}
	if health.Status != "ok" {
		return fmt.Errorf("server reports status %q", health.Status)
	}
	if len(health.Providers) == 0 {
		return errors.New("server has no providers registered")
	}
	return nil
}

func parseTimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return defaultTimeout, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("KEYGATE_HEALTHCHECK_TIMEOUT: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("KEYGATE_HEALTHCHECK_TIMEOUT must be positive, got %s", d)
	}
	return d, nil
}

// loopbackAddr turns the server's listen address into one the check can
// dial from inside the same container: bind-all hosts become 127.0.0.1.
func loopbackAddr(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		host, port, _ = net.SplitHostPort(config.DefaultListenAddr)
	}

	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
