package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

const (
	TEST_SERVER_TIMEOUT = 30 * time.Second
	TEST_TODAY          = "2022-02-02"
)

var idPattern = regexp.MustCompile(`\(([0-9a-f-]{36})\)`)

func TestEndToEndWorkflow(t *testing.T) {
	// 1. Setup Environment
	// Allow overriding bin dir via env var, default to ../../bin (relative to tests/e2e)
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get cwd: %v", err)
	}

	binDir := os.Getenv("HABITPACT_BIN_DIR")
	if binDir == "" {
		binDir = filepath.Join(cwd, "..", "..", "bin")
	}
	binDir, _ = filepath.Abs(binDir)
	t.Logf("Using bin dir: %s", binDir)

	cliPath := filepath.Join(binDir, "habitpact")
	if _, err := os.Stat(cliPath); os.IsNotExist(err) {
		t.Skipf("CLI binary not found at %s. Build it with: go build -o bin/habitpact ./cmd/habitpact", cliPath)
	}

	// Create temp home for isolation
	tempDir := t.TempDir()
	t.Logf("Running test in temp dir: %s", tempDir)

	var cleanEnv []string
	for _, e := range os.Environ() {
		if !strings.HasPrefix(e, "HOME=") && !strings.HasPrefix(e, "HABITPACT_") {
			cleanEnv = append(cleanEnv, e)
		}
	}
	addr := freeAddr(t)
	cleanEnv = append(cleanEnv,
		fmt.Sprintf("HOME=%s", tempDir),
		fmt.Sprintf("HABITPACT_DB_PATH=%s", filepath.Join(tempDir, "habitpact.db")),
		fmt.Sprintf("HABITPACT_LOG_DIR=%s", filepath.Join(tempDir, "logs")),
		fmt.Sprintf("HABITPACT_SERVER_ADDR=%s", addr),
	)
	configFlag := "--config=" + filepath.Join(tempDir, "config.yaml")
	run := func(args ...string) string {
		return runCmd(t, cliPath, cleanEnv, append([]string{configFlag}, args...)...)
	}

	// 2. Initialize CLI
	t.Log("Initializing storage...")
	run("init")
	run("doctor")

	// 3. Users, habit and plan
	alice := extractID(t, run("user", "add", "Alice", "--username=alice", "--email=alice@example.com"))
	bob := extractID(t, run("user", "add", "Bob", "--username=bob", "--email=bob@example.com"))
	habit := extractID(t, run("habit", "add", "Read", "--user="+alice))

	out := run("plan", "add", "--user="+alice, "--habit="+habit,
		"--start="+TEST_TODAY, "--end=2022-02-20", "--today="+TEST_TODAY)
	if !strings.Contains(out, "Generated 4 log(s) for 2022-02-02..2022-02-05 (current_week)") {
		t.Fatalf("Unexpected plan output: %s", out)
	}
	plan := regexp.MustCompile(`Added plan: (\S+)`).FindStringSubmatch(out)[1]

	// 4. Invite Bob and accept
	out = run("invite", "create", plan, "--user="+alice, "--email=bob@example.com", "--name=Bob")
	invitation := regexp.MustCompile(`Invitation (\S+) sent`).FindStringSubmatch(out)[1]
	run("invite", "accept", invitation, "--user="+bob, "--today="+TEST_TODAY, "--yes")

	out = run("plan", "week", bob, "--today="+TEST_TODAY)
	if !strings.Contains(out, "alice") || !strings.Contains(out, "bob") {
		t.Fatalf("Expected both partners on Bob's week: %s", out)
	}

	// 5. Weekly rollover fills next week for both plans
	out = run("rollover", "--date="+TEST_TODAY, "--no-wait")
	if !strings.Contains(out, "2 plan(s), 14 log(s) created") {
		t.Fatalf("Unexpected rollover output: %s", out)
	}

	run("backup")
	out = run("backup", "list")
	if !strings.Contains(out, "habitpact-") {
		t.Fatalf("Expected a backup in list: %s", out)
	}

	// 6. Serve the API and read the week back over HTTP
	t.Log("Starting server...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveCmd := exec.CommandContext(ctx, cliPath, configFlag, "serve")
	serveCmd.Env = cleanEnv
	var stderrBuf bytes.Buffer
	serveCmd.Stderr = &stderrBuf
	if err := serveCmd.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	defer func() {
		cancel()
		_ = serveCmd.Wait()
		if t.Failed() {
			t.Logf("Server Stderr: %s", stderrBuf.String())
		}
	}()

	base := "http://" + addr + "/api/v2"
	waitForServer(t, base+"/status", TEST_SERVER_TIMEOUT)
	t.Log("Server is ready")

	resp, err := http.Get(base + "/users/" + alice + "/invitations/sent")
	if err != nil {
		t.Fatalf("Failed to list invitations: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 listing sent invitations, got %d", resp.StatusCode)
	}
	var sent []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&sent); err != nil {
		t.Fatalf("Failed to decode invitations: %v", err)
	}
	if len(sent) != 1 || sent[0].ID != invitation || sent[0].Status != "accepted" {
		t.Fatalf("Unexpected sent invitations: %+v", sent)
	}
}

func runCmd(t *testing.T, path string, env []string, args ...string) string {
	t.Helper()
	cmd := exec.Command(path, args...)
	cmd.Env = env
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("Command %s %v failed: %v\nOutput: %s", path, args, err, out)
	}
	return string(out)
}

func extractID(t *testing.T, out string) string {
	t.Helper()
	m := idPattern.FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("No id in output: %s", out)
	}
	return m[1]
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to reserve a port: %v", err)
	}
	defer l.Close()
	return l.Addr().String()
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	t.Helper()
	start := time.Now()
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		if time.Since(start) > timeout {
			t.Fatalf("Timed out waiting for server at %s", url)
		}
		time.Sleep(100 * time.Millisecond)
	}
}
