package memory_test

import (
	"testing"

	"github.com/aretw0/playground/pkg/adapters/memory"
	"github.com/aretw0/playground/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunPlaygroundStoreContract(t, store)
}
