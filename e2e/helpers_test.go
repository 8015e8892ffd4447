package e2e

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"
)

// findRepoRoot walks up from the current working directory to locate go.mod
func findRepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("could not locate go.mod from %s", dir)
		}
		dir = parent
	}
}

// buildCLIBinary builds the CLI into a temp dir and returns (repoRoot, binaryPath).
func buildCLIBinary(t *testing.T, ldflags string) (string, string) {
	t.Helper()
	repoRoot := findRepoRoot(t)
	binaryName := "explorer"
	if runtime.GOOS == "windows" {
		binaryName += ".exe"
	}
	binaryPath := filepath.Join(t.TempDir(), binaryName)

	args := []string{"build", "-o", binaryPath}
	if ldflags != "" {
		args = append(args, "-ldflags", ldflags)
	}
	args = append(args, ".")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	t.Logf("Building CLI binary: %s", binaryPath)
	cmd := exec.CommandContext(ctx, "go", args...)
	cmd.Dir = repoRoot
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build failed: %v\n%s", err, string(out))
	}
	return repoRoot, binaryPath
}

// runCLI runs the binary in dir and returns its combined output.
func runCLI(t *testing.T, dir, binaryPath string, args ...string) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	cmd := exec.CommandContext(ctx, binaryPath, args...)
	cmd.Dir = dir
	// Tests never reach GitHub for semantic conventions.
	cmd.Env = append(os.Environ(), "EXPLORER_SEMCONV_ENABLED=false")
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// freeAddr returns a loopback address with a port that was free a moment ago.
func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

// waitForURLWithRetry issues GET requests until success or attempts exhausted.
func waitForURLWithRetry(t *testing.T, url string, attempts int, timeoutPerAttempt, backoff time.Duration) error {
	t.Helper()
	client := &http.Client{Timeout: timeoutPerAttempt}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		t.Logf("Hitting %s (attempt %d/%d)", url, attempt+1, attempts)
		resp, err := client.Get(url)
		if err == nil && resp != nil && resp.Body != nil {
			// Drain and close
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		if err == nil && resp != nil && resp.StatusCode >= 200 && resp.StatusCode < 400 {
			return nil
		}
		if err != nil {
			lastErr = err
		} else if resp != nil {
			lastErr = errors.New(resp.Status)
		}
		time.Sleep(backoff)
	}
	if lastErr == nil {
		lastErr = errors.New("exhausted attempts without success")
	}
	return lastErr
}

// startAndStreamOutput starts a long-running command and streams its
// stdout/stderr to the test logs. The returned wait function blocks until
// the process exits.
func startAndStreamOutput(t *testing.T, ctx context.Context, dir string, name string, args ...string) (func() error, error) {
	t.Helper()
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scanAndLog(t, stdout)
	}()
	go func() {
		defer wg.Done()
		scanAndLog(t, stderr)
	}()

	return func() error {
		wg.Wait()
		return cmd.Wait()
	}, nil
}

func scanAndLog(t *testing.T, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		t.Logf("%s", scanner.Text())
	}
}

// copyDir recursively copies a directory tree from src to dst.
func copyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		targetPath := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(targetPath, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(targetPath, data, info.Mode())
	})
}
