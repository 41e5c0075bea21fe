// Package kinds provides the built-in node kinds of the playground.
//
// Source kinds (constant, public_key) publish their params. Query kinds read an
// address from their input slot and call a Solana RPC node. Utility kinds
// (pick, format_json) reshape upstream values.
package kinds
