package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoveryPrimaryWins(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(filepath.Join(dir, "data.json"), filepath.Join(dir, "backup.json"))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, fs.Save(ctx, testSnapshot(t)))

	snap, source := LoadWithRecovery(ctx, fs, fs.BackupLoader())
	assert.Equal(t, SourcePrimary, source)
	assert.Equal(t, 42, snap.UserStats[7].MessageCount)
}

func TestRecoveryFallsBackToBackupAndRepairsPrimary(t *testing.T) {
	dir := t.TempDir()
	primary := filepath.Join(dir, "data.json")
	backup := filepath.Join(dir, "backup.json")
	fs, err := NewFileStore(primary, backup)
	require.NoError(t, err)

	ctx := context.Background()
	// two saves so the backup holds a valid snapshot, then corrupt primary
	require.NoError(t, fs.Save(ctx, testSnapshot(t)))
	require.NoError(t, fs.Save(ctx, testSnapshot(t)))
	require.NoError(t, os.WriteFile(primary, []byte("{not json"), 0o644))

	snap, source := LoadWithRecovery(ctx, fs, fs.BackupLoader())
	assert.Equal(t, SourceBackup, source)
	assert.Equal(t, 42, snap.UserStats[7].MessageCount)

	// the repair save must have restored a loadable primary
	repaired, err := fs.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, repaired.UserStats[7].MessageCount)
}

func TestRecoveryFreshWhenEverythingIsCorrupt(t *testing.T) {
	dir := t.TempDir()
	primary := filepath.Join(dir, "data.json")
	backup := filepath.Join(dir, "backup.json")
	fs, err := NewFileStore(primary, backup)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(primary, []byte("garbage"), 0o644))
	require.NoError(t, os.WriteFile(backup, []byte("[1,2"), 0o644))

	snap, source := LoadWithRecovery(context.Background(), fs, fs.BackupLoader())
	assert.Equal(t, SourceFresh, source)
	require.NotNil(t, snap)
	assert.NotNil(t, snap.UserStats)
	assert.Empty(t, snap.UserStats)
}

func TestValidateRejectsStructuralDamage(t *testing.T) {
	snap := testSnapshot(t)
	require.NoError(t, snap.Validate())

	snap.UserStats[7].MessageCount = -1
	assert.Error(t, snap.Validate())

	snap = testSnapshot(t)
	snap.UserAchievements[7].Unlocked.Add("no_such_achievement")
	assert.Error(t, snap.Validate())
}
