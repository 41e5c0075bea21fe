package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/playground"
	"github.com/aretw0/playground/internal/presentation/tui"
	"github.com/aretw0/playground/pkg/codec"
	"github.com/aretw0/playground/pkg/domain"
	"github.com/aretw0/playground/pkg/observability"
	"github.com/aretw0/playground/pkg/registry"
)

// DefaultTimeout bounds how long run waits for the graph to settle.
const DefaultTimeout = 30 * time.Second

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	GraphPath string
	Network   string
	Timeout   time.Duration
	JSON      bool
	Watch     bool
	Debug     bool

	// Output receives results; logs always go to the logger.
	Output io.Writer

	// Registry overrides the built-in kinds.
	Registry *registry.Registry
}

// Report is the machine-readable output of run --json.
type Report struct {
	Graph   domain.Graph    `json:"graph"`
	Results []domain.Result `json:"results"`
}

// Run loads a graph file, executes it until it settles and prints the results.
// It returns an error when any node ended in error.
func Run(ctx context.Context, opts RunOptions, logger *slog.Logger) error {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	g, err := codec.ReadGraph(opts.GraphPath)
	if err != nil {
		return err
	}

	engineOpts := []playground.Option{
		playground.WithLogger(logger),
		playground.WithNetwork(opts.Network),
		playground.WithGraph(g),
		playground.WithName(opts.GraphPath),
	}
	if opts.Debug {
		engineOpts = append(engineOpts, playground.WithLifecycleHooks(observability.LoggingHooks(logger)))
	}
	if opts.Registry != nil {
		engineOpts = append(engineOpts, playground.WithRegistry(opts.Registry))
	}

	eng, err := playground.New(engineOpts...)
	if err != nil {
		return err
	}
	defer eng.Close()

	if opts.Watch {
		return handleExecutionError(watch(ctx, eng, opts, logger))
	}

	if err := settle(ctx, eng, opts.Timeout); err != nil {
		return handleExecutionError(err)
	}
	return report(eng, opts)
}

func settle(ctx context.Context, eng *playground.Engine, timeout time.Duration) error {
	settleCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := eng.Settle(settleCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("graph did not settle within %s", timeout)
		}
		return err
	}
	return nil
}

// report prints the results and fails when a node errored.
func report(eng *playground.Engine, opts RunOptions) error {
	g := eng.Snapshot()
	results := eng.Results()

	if opts.JSON {
		enc := json.NewEncoder(opts.Output)
		enc.SetIndent("", "  ")
		if err := enc.Encode(Report{Graph: g, Results: results}); err != nil {
			return err
		}
	} else if err := tui.NewRenderer(opts.Output).Results(g, results); err != nil {
		return err
	}

	var failed []string
	for _, r := range results {
		if r.Status == domain.StatusError {
			failed = append(failed, r.NodeID)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d node(s) failed: %v", len(failed), failed)
	}
	return nil
}
