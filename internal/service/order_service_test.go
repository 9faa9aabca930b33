package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/hse-ops/hazard-report-api/pkg/errors"
	"github.com/hse-ops/hazard-report-api/pkg/storage"
)

func newTestOrderService(t *testing.T) (*OrderService, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	return NewOrderService(store, nil), dir
}

func TestOrderServiceListNewestFirst(t *testing.T) {
	svc, dir := newTestOrderService(t)

	older := filepath.Join(dir, "policy-2023.pdf")
	newer := filepath.Join(dir, "policy-2024.pdf")
	require.NoError(t, os.WriteFile(older, []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(newer, []byte("new"), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	files, err := svc.List()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "policy-2024.pdf", files[0].Name)
	assert.Equal(t, int64(3), files[0].Size)
	assert.Greater(t, files[0].LastModified, files[1].LastModified)
}

func TestOrderServiceListSkipsDirectories(t *testing.T) {
	svc, dir := newTestOrderService(t)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notice.pdf"), []byte("x"), 0o644))

	files, err := svc.List()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "notice.pdf", files[0].Name)
}

func TestOrderServiceOpenNotFound(t *testing.T) {
	svc, _ := newTestOrderService(t)

	_, err := svc.Open("missing.pdf")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
