// Package middleware wraps a ports.PlaygroundStore with storage-side behavior:
// envelope encryption with key rotation, and redaction of secret-looking values.
package middleware
