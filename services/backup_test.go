package services

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"blood-bank/models"
	"blood-bank/storage"
)

func TestBackupSnapshot_UploadsGzippedCSV(t *testing.T) {
	store := newFakeStore()
	svc := NewBackupService(storage.NewMemory(filterFixture...), store, 4, zap.NewNop())
	svc.Now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	link, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://s3.example.com/bucket/backups/donors-2025-06-01T12-00-00Z.csv.gz", link)

	gz, err := gzip.NewReader(bytes.NewReader(store.objects["backups/donors-2025-06-01T12-00-00Z.csv.gz"]))
	require.NoError(t, err)
	raw, err := io.ReadAll(gz)
	require.NoError(t, err)

	donors, err := DecodeCSV(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, names(donors))
}

func TestBackupSnapshot_KeepsIDAndVersion(t *testing.T) {
	store := newFakeStore()
	seed := []models.Donor{
		{ID: "d1", Name: "Anu", Age: 30, BloodGroup: "O+", Contact: "9876543210", Location: "Kochi", Version: 3},
		{Name: "Legacy", Age: 50, BloodGroup: "A-", Contact: "9000000000", Location: "Kollam"},
	}
	svc := NewBackupService(storage.NewMemory(seed...), store, 4, zap.NewNop())

	_, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, store.objects, 1)

	var blob []byte
	for _, v := range store.objects {
		blob = v
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	require.NoError(t, err)
	raw, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "name,age,blood_group,contact,location,id,version\n"))

	donors, err := DecodeCSV(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, seed, donors)
}

func TestBackupSnapshot_RotatesOldest(t *testing.T) {
	store := newFakeStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, key := range []string{"backups/a", "backups/b", "backups/c", "backups/d"} {
		store.listed = append(store.listed, storage.Object{Key: key, LastModified: base.Add(time.Duration(i) * time.Hour)})
	}
	store.listed = append(store.listed, storage.Object{Key: "exports/keep-me", LastModified: base})

	svc := NewBackupService(storage.NewMemory(), store, 2, zap.NewNop())
	_, err := svc.Snapshot(context.Background())

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"backups/a", "backups/b"}, store.deleted)
}

func TestBackupSnapshot_StorageUnavailable(t *testing.T) {
	mem := storage.NewMemory()
	mem.FailWith(errors.New("offline"))
	store := newFakeStore()
	svc := NewBackupService(mem, store, 2, zap.NewNop())

	_, err := svc.Snapshot(context.Background())

	assert.True(t, HasCode(err, CodeUnavailable))
	assert.Empty(t, store.objects)
}

func TestBackupSnapshot_DeleteErrorsOnlyLogged(t *testing.T) {
	store := newFakeStore()
	store.deleteErr = errors.New("denied")
	store.listed = []storage.Object{{Key: "backups/a"}, {Key: "backups/b"}}

	svc := NewBackupService(storage.NewMemory(), store, 1, zap.NewNop())
	_, err := svc.Snapshot(context.Background())

	assert.NoError(t, err)
}
