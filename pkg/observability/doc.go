/*
Package observability turns engine lifecycle hooks into metrics and logs.

Metrics counts node runs by kind and outcome, times external calls and tracks
how many values were propagated downstream. Attach it with Metrics.Hooks, or
through playground.WithMetrics.
*/
package observability
