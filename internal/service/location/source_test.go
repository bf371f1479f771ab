package location

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blood-donation/internal/domain"
)

func TestDecodeNodes(t *testing.T) {
	t.Run("bare array with numeric ids", func(t *testing.T) {
		nodes, err := DecodeNodes(strings.NewReader(`[
			{"id": 1, "division_id": 3, "name": "ঢাকা", "en_name": "Dhaka"},
			{"id": "2", "parent_id": "3", "en_name": "Gazipur"}
		]`))
		require.NoError(t, err)
		assert.Equal(t, []domain.LocationNode{
			{ID: "1", Name: "ঢাকা", EnName: "Dhaka", ParentID: "3"},
			{ID: "2", EnName: "Gazipur", ParentID: "3"},
		}, nodes)
	})

	t.Run("wrapped export", func(t *testing.T) {
		nodes, err := DecodeNodes(strings.NewReader(`{"type":"table","data":[{"id":"7","district_id":"47","name":"সাভার"}]}`))
		require.NoError(t, err)
		require.Len(t, nodes, 1)
		assert.Equal(t, "47", nodes[0].ParentID)
	})

	t.Run("rows without id or name are skipped", func(t *testing.T) {
		nodes, err := DecodeNodes(strings.NewReader(`[{"id":null,"name":"x"},{"id":5}]`))
		require.NoError(t, err)
		assert.Empty(t, nodes)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := DecodeNodes(strings.NewReader(`{`))
		assert.Error(t, err)
	})
}

func writeDataset(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		DivisionsFile: `[{"id":"3","name":"ঢাকা","en_name":"Dhaka"}]`,
		DistrictsFile: `[{"id":"47","division_id":"3","en_name":"Dhaka"}]`,
		UpazilasFile:  `[{"id":"2","district_id":"47","en_name":"Savar"}]`,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
}

func TestFileSource_Load(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir)

	ds, err := NewFileSource(dir).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, ds.Divisions, 1)
	assert.Len(t, ds.Districts, 1)
	assert.Len(t, ds.Upazilas, 1)

	_, err = NewFileSource(t.TempDir()).Load(context.Background())
	assert.ErrorContains(t, err, DivisionsFile)
}

func TestService_ReloadAndLookups(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir)
	svc := NewService(NewFileSource(dir), nil, nil)
	ctx := context.Background()

	assert.Equal(t, []string{"Savar"}, names(svc.UpazilasOf(ctx, "Dhaka")))
	assert.Len(t, svc.Divisions(ctx), 1)
	assert.True(t, svc.Hierarchy(ctx).Loaded())
}

func TestService_MissingData(t *testing.T) {
	svc := NewService(NewFileSource(t.TempDir()), nil, nil)
	ctx := context.Background()

	assert.Nil(t, svc.Hierarchy(ctx))
	assert.Empty(t, svc.Divisions(ctx))
	assert.Error(t, svc.Reload(ctx))
}

func TestBundledData(t *testing.T) {
	ds, err := NewFileSource(filepath.Join("..", "..", "..", "data", "locations")).Load(context.Background())
	require.NoError(t, err)

	assert.Empty(t, Problems(ds))
	h := NewHierarchy(ds)
	assert.Len(t, h.Divisions(), 8)
	assert.NotEmpty(t, h.DistrictsOf("Dhaka"))
}
