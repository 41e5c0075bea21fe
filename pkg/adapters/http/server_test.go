package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/playground"
	adapter "github.com/aretw0/playground/pkg/adapters/http"
	"github.com/aretw0/playground/pkg/adapters/memory"
	"github.com/aretw0/playground/pkg/domain"
	"github.com/aretw0/playground/pkg/observability"
	"github.com/aretw0/playground/pkg/registry"
	"github.com/aretw0/playground/pkg/schema"
	"github.com/aretw0/playground/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *registry.Registry {
	reg := registry.NewRegistry()
	reg.MustRegister(registry.Template{
		Kind:   "constant",
		Title:  "Constant",
		Params: schema.Schema{"value": schema.Any()},
		Execute: func(_ context.Context, c registry.Call) (any, error) {
			return c.Params["value"], nil
		},
	})
	reg.MustRegister(registry.Template{
		Kind:   "upper",
		Title:  "Upper case",
		Inputs: []registry.Slot{{Name: "text", Type: schema.String()}},
		Execute: func(_ context.Context, c registry.Call) (any, error) {
			return strings.ToUpper(c.Inputs["text"].(string)), nil
		},
	})
	return reg
}

type harness struct {
	srv      *httptest.Server
	sessions *session.Manager
	store    *memory.Store
	metrics  *observability.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	reg := testRegistry()
	promReg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(promReg)

	h := &harness{store: memory.NewStore(), metrics: metrics}
	h.sessions = session.NewManager(h.store, session.WithEngineOptions(
		playground.WithRegistry(reg),
		playground.WithMetrics(metrics),
	))
	h.srv = httptest.NewServer(adapter.NewHandler(h.sessions, reg, adapter.WithGatherer(promReg)))
	t.Cleanup(func() {
		h.srv.Close()
		_ = h.sessions.CloseAll()
	})
	return h
}

func (h *harness) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func (h *harness) settle(t *testing.T, id string) {
	t.Helper()
	sess, ok := h.sessions.Get(id)
	require.True(t, ok)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, sess.Engine.Settle(ctx))
}

func TestHealthAndInfo(t *testing.T) {
	h := newHarness(t)

	resp, body := h.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	resp, body = h.do(t, http.MethodGet, "/info", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), playground.Version)
}

func TestListKinds(t *testing.T) {
	h := newHarness(t)
	resp, body := h.do(t, http.MethodGet, "/kinds", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var kinds []struct {
		Kind   string            `json:"kind"`
		Inputs []map[string]any  `json:"inputs"`
		Params map[string]string `json:"params"`
	}
	require.NoError(t, json.Unmarshal(body, &kinds))
	require.Len(t, kinds, 2)
	assert.Equal(t, "constant", kinds[0].Kind)
	assert.Equal(t, "any", kinds[0].Params["value"])
	assert.Equal(t, "upper", kinds[1].Kind)
	assert.Equal(t, "text", kinds[1].Inputs[0]["name"])
	assert.Equal(t, "string", kinds[1].Inputs[0]["type"])
}

func TestEditAndRun(t *testing.T) {
	h := newHarness(t)

	resp, body := h.do(t, http.MethodPost, "/playgrounds/p1/nodes", adapter.AddNodeRequest{
		ID: "src", Kind: "constant", Params: map[string]any{"value": "hello"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, _ = h.do(t, http.MethodPost, "/playgrounds/p1/nodes", adapter.AddNodeRequest{
		ID: "up", Kind: "upper", Position: &domain.Position{X: 200, Y: 40},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = h.do(t, http.MethodPost, "/playgrounds/p1/edges", adapter.ConnectRequest{
		Source: "src", Target: "up", TargetHandle: "text",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var edge domain.Edge
	require.NoError(t, json.Unmarshal(body, &edge))
	assert.NotEmpty(t, edge.ID)

	h.settle(t, "p1")

	resp, body = h.do(t, http.MethodGet, "/playgrounds/p1/results/up", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res domain.Result
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, domain.StatusSuccess, res.Status)
	assert.Equal(t, "HELLO", res.Value)

	resp, body = h.do(t, http.MethodPatch, "/playgrounds/p1/nodes/src", adapter.PatchNodeRequest{
		Params: map[string]any{"value": "bye"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	h.settle(t, "p1")

	_, body = h.do(t, http.MethodGet, "/playgrounds/p1/results", nil)
	var results []domain.Result
	require.NoError(t, json.Unmarshal(body, &results))
	require.Len(t, results, 2)
	assert.Equal(t, "BYE", results[1].Value)

	resp, body = h.do(t, http.MethodGet, "/playgrounds/p1/graph", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var g domain.Graph
	require.NoError(t, json.Unmarshal(body, &g))
	up, ok := g.Node("up")
	require.True(t, ok)
	assert.Equal(t, "bye", up.Data["src"])
	assert.Equal(t, 200.0, up.Position.X)

	resp, _ = h.do(t, http.MethodDelete, "/playgrounds/p1/edges/"+edge.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = h.do(t, http.MethodDelete, "/playgrounds/p1/nodes/src", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.Runs.WithLabelValues("upper", "success")))
}

func TestWiringErrors(t *testing.T) {
	h := newHarness(t)
	h.do(t, http.MethodPost, "/playgrounds/p2/nodes", adapter.AddNodeRequest{ID: "a", Kind: "constant", Params: map[string]any{"value": "x"}})
	h.do(t, http.MethodPost, "/playgrounds/p2/nodes", adapter.AddNodeRequest{ID: "b", Kind: "constant", Params: map[string]any{"value": "y"}})
	h.do(t, http.MethodPost, "/playgrounds/p2/nodes", adapter.AddNodeRequest{ID: "u", Kind: "upper"})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown kind", http.MethodPost, "/playgrounds/p2/nodes", adapter.AddNodeRequest{Kind: "nope"}, http.StatusUnprocessableEntity},
		{"duplicate id", http.MethodPost, "/playgrounds/p2/nodes", adapter.AddNodeRequest{ID: "a", Kind: "constant", Params: map[string]any{"value": 1}}, http.StatusConflict},
		{"missing param", http.MethodPost, "/playgrounds/p2/nodes", adapter.AddNodeRequest{Kind: "constant"}, http.StatusUnprocessableEntity},
		{"unknown slot", http.MethodPost, "/playgrounds/p2/edges", adapter.ConnectRequest{Source: "a", Target: "u", TargetHandle: "nope"}, http.StatusUnprocessableEntity},
		{"self loop", http.MethodPost, "/playgrounds/p2/edges", adapter.ConnectRequest{Source: "u", Target: "u", TargetHandle: "text"}, http.StatusUnprocessableEntity},
		{"missing node", http.MethodDelete, "/playgrounds/p2/nodes/ghost", nil, http.StatusNotFound},
		{"missing edge", http.MethodDelete, "/playgrounds/p2/edges/ghost", nil, http.StatusNotFound},
		{"missing result", http.MethodGet, "/playgrounds/p2/results/ghost", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := h.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, resp.StatusCode, string(body))
		})
	}

	resp, _ := h.do(t, http.MethodPost, "/playgrounds/p2/edges", adapter.ConnectRequest{Source: "a", Target: "u", TargetHandle: "text"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, body := h.do(t, http.MethodPost, "/playgrounds/p2/edges", adapter.ConnectRequest{Source: "b", Target: "u", TargetHandle: "text"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "fan-in is rejected")
	assert.Contains(t, string(body), "already connected")

	req, _ := http.NewRequest(http.MethodPost, h.srv.URL+"/playgrounds/p2/nodes", strings.NewReader("{not json"))
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestSaveAndList(t *testing.T) {
	h := newHarness(t)
	h.do(t, http.MethodPost, "/playgrounds/saved/nodes", adapter.AddNodeRequest{ID: "a", Kind: "constant", Params: map[string]any{"value": 1}})

	resp, body := h.do(t, http.MethodPost, "/playgrounds/saved/save", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	stored, err := h.store.Load(context.Background(), "saved")
	require.NoError(t, err)
	assert.Len(t, stored.Graph.Nodes, 1)

	_, body = h.do(t, http.MethodGet, "/playgrounds", nil)
	assert.JSONEq(t, `["saved"]`, string(body))

	resp, _ = h.do(t, http.MethodDelete, "/playgrounds/saved", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_, err = h.store.Load(context.Background(), "saved")
	assert.ErrorIs(t, err, domain.ErrPlaygroundNotFound)
}

func TestPutGraph(t *testing.T) {
	h := newHarness(t)
	g := domain.Graph{
		Nodes: []domain.Node{
			{ID: "a", Kind: "constant", Params: map[string]any{"value": "x"}},
			{ID: "b", Kind: "upper"},
		},
		Edges: []domain.Edge{{ID: "e", Source: "a", Target: "b", TargetHandle: "text"}},
	}
	resp, body := h.do(t, http.MethodPut, "/playgrounds/imported/graph", g)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	h.settle(t, "imported")

	_, body = h.do(t, http.MethodGet, "/playgrounds/imported/results/b", nil)
	assert.Contains(t, string(body), `"X"`)

	g.Edges = append(g.Edges, domain.Edge{ID: "loop", Source: "b", Target: "a", TargetHandle: "text"})
	resp, _ = h.do(t, http.MethodPut, "/playgrounds/imported/graph", g)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestSubscribeEvents(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.srv.URL+"/playgrounds/live/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	waitFor := func(prefix string) string {
		t.Helper()
		for {
			select {
			case l, ok := <-lines:
				if !ok {
					t.Fatalf("stream closed before %q", prefix)
				}
				if strings.HasPrefix(l, prefix) {
					return l
				}
			case <-ctx.Done():
				t.Fatalf("timed out waiting for %q", prefix)
			}
		}
	}

	waitFor("event: ping")

	h.do(t, http.MethodPost, "/playgrounds/live/nodes", adapter.AddNodeRequest{ID: "a", Kind: "constant", Params: map[string]any{"value": "v"}})
	waitFor("event: diff")
	data := waitFor("data: ")

	var diff domain.GraphDiff
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(data, "data: ")), &diff))
	require.NotEmpty(t, diff.Nodes)
	assert.Equal(t, "a", diff.Nodes[0].ID)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	h.do(t, http.MethodPost, "/playgrounds/m/nodes", adapter.AddNodeRequest{ID: "a", Kind: "constant", Params: map[string]any{"value": 1}})
	h.settle(t, "m")

	resp, body := h.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "playground_node_runs_total")
}
