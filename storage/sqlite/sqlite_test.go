package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/eventdesk/storage"
	"github.com/jmcleod/eventdesk/storage/storagetest"
)

func TestSQLiteRepository(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Repository {
		s, err := Open(context.Background(), MemoryPath)
		require.NoError(t, err)
		return s
	})
}

func TestSQLiteFileReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "event.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	id, err := s.InsertAttendee(ctx, &storage.Attendee{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	require.NoError(t, s.SetSetting(ctx, storage.SettingRSVPOpen, "false"))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetAttendee(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.Email)

	v, err := s.GetSetting(ctx, storage.SettingRSVPOpen)
	require.NoError(t, err)
	assert.Equal(t, "false", v, "reopen must not reseed existing settings")
}

func TestSQLiteEmailUniqueIgnoresCase(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, MemoryPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.InsertAttendee(ctx, &storage.Attendee{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	_, err = s.InsertAttendee(ctx, &storage.Attendee{Name: "Ada", Email: "ADA@example.com"})
	assert.ErrorIs(t, err, storage.ErrDuplicate)
}
