// Package redis persists playgrounds in Redis and coordinates replicas with a distributed lock.
package redis
