// Package rpc adapts the solana-go JSON-RPC client to the plain values the
// built-in node kinds publish, and resolves cluster names to endpoints.
package rpc
