package middleware

import "github.com/aretw0/playground/pkg/ports"

// Middleware allows wrapping a PlaygroundStore to add behavior.
type Middleware func(ports.PlaygroundStore) ports.PlaygroundStore

// Chain applies middlewares so that the first one is the outermost.
func Chain(store ports.PlaygroundStore, mws ...Middleware) ports.PlaygroundStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
