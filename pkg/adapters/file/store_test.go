package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/playground/pkg/adapters/file"
	"github.com/aretw0/playground/pkg/codec"
	"github.com/aretw0/playground/pkg/domain"
	"github.com/aretw0/playground/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_ContractJSON(t *testing.T) {
	ports.RunPlaygroundStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_ContractYAML(t *testing.T) {
	ports.RunPlaygroundStoreContract(t, file.New(t.TempDir(), file.WithFormat(codec.YAML)))
}

func TestFileStore_SwitchingFormatReplacesFile(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	p := &domain.Playground{ID: "pg1", Name: "first"}

	require.NoError(t, file.New(dir).Save(ctx, p))
	p.Name = "second"
	yamlStore := file.New(dir, file.WithFormat(codec.YAML))
	require.NoError(t, yamlStore.Save(ctx, p))

	_, err := os.Stat(filepath.Join(dir, "pg1.json"))
	assert.True(t, os.IsNotExist(err))

	loaded, err := file.New(dir).Load(ctx, "pg1")
	require.NoError(t, err)
	assert.Equal(t, "second", loaded.Name)

	ids, err := yamlStore.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"pg1"}, ids)
}

func TestFileStore_RejectsPathIDs(t *testing.T) {
	s := file.New(t.TempDir())
	ctx := context.Background()

	assert.Error(t, s.Save(ctx, &domain.Playground{ID: "../escape"}))
	_, err := s.Load(ctx, "")
	assert.Error(t, err)
}

func TestFileStore_ListMissingDir(t *testing.T) {
	s := file.New(filepath.Join(t.TempDir(), "nope"))
	ids, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
