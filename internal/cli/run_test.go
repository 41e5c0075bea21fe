package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/playground/internal/cli"
	"github.com/aretw0/playground/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const offlineGraph = `
nodes:
  - id: greeting
    kind: constant
    params:
      value:
        hello: world
  - id: pretty
    kind: format_json
edges:
  - id: e1
    source: greeting
    target: pretty
    target_handle: value
`

func writeGraph(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRun_JSONReport(t *testing.T) {
	path := writeGraph(t, "graph.yaml", offlineGraph)
	var out bytes.Buffer

	err := cli.Run(context.Background(), cli.RunOptions{
		GraphPath: path,
		JSON:      true,
		Timeout:   5 * time.Second,
		Output:    &out,
	}, logging.NewNop())
	require.NoError(t, err)

	var report cli.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	require.Len(t, report.Results, 2)

	pretty, ok := report.Graph.Node("pretty")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"greeting": map[string]any{"hello": "world"}}, pretty.Data)
	assert.Contains(t, pretty.Output, `"hello": "world"`)
}

func TestRun_PlainOutput(t *testing.T) {
	path := writeGraph(t, "graph.yaml", offlineGraph)
	var out bytes.Buffer

	err := cli.Run(context.Background(), cli.RunOptions{GraphPath: path, Output: &out}, logging.NewNop())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "pretty")
	assert.Contains(t, out.String(), "success")
}

func TestRun_InvalidGraph(t *testing.T) {
	path := writeGraph(t, "graph.json", `{"nodes":[{"id":"a","kind":"nope"}]}`)

	err := cli.Run(context.Background(), cli.RunOptions{GraphPath: path, Output: &bytes.Buffer{}}, logging.NewNop())
	assert.Error(t, err)
}

func TestRun_UnsupportedExtension(t *testing.T) {
	path := writeGraph(t, "graph.txt", offlineGraph)

	err := cli.Run(context.Background(), cli.RunOptions{GraphPath: path, Output: &bytes.Buffer{}}, logging.NewNop())
	assert.Error(t, err)
}

func TestRun_WatchStopsOnCancel(t *testing.T) {
	path := writeGraph(t, "graph.yaml", offlineGraph)
	var out bytes.Buffer

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- cli.Run(ctx, cli.RunOptions{GraphPath: path, Watch: true, Output: &out}, logging.NewNop())
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err, "interruption is a clean exit")
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

// lockedBuffer lets the test read output while watch is still writing it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRun_WatchReloadsOnWrite(t *testing.T) {
	path := writeGraph(t, "graph.yaml", offlineGraph)
	out := &lockedBuffer{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- cli.Run(ctx, cli.RunOptions{GraphPath: path, Watch: true, Output: out}, logging.NewNop())
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "pretty")
	}, 5*time.Second, 20*time.Millisecond)

	changed := strings.Replace(offlineGraph, "hello: world", "hello: moon", 1)
	require.NoError(t, os.WriteFile(path, []byte(changed), 0644))

	require.Eventually(t, func() bool {
		s := out.String()
		return strings.Contains(s, "Reloaded") && strings.Contains(s, "moon")
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestRun_WatchIgnoresInvalidEdit(t *testing.T) {
	path := writeGraph(t, "graph.yaml", offlineGraph)
	out := &lockedBuffer{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- cli.Run(ctx, cli.RunOptions{GraphPath: path, Watch: true, Output: out}, logging.NewNop())
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "pretty")
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("nodes: [ {id: a, kind: nope} ]"), 0644))
	time.Sleep(500 * time.Millisecond)
	assert.NotContains(t, out.String(), "Reloaded")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
