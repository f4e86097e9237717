package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
	"github.com/salaheddineelazouti/Projet-innovation/internal/store"
)

func setClock(t *testing.T, ts time.Time) {
	t.Helper()
	orig := now
	now = func() time.Time { return ts }
	t.Cleanup(func() { now = orig })
}

func seedDB(t *testing.T, path string, clients ...string) {
	t.Helper()
	st, err := store.NewSQLite(path)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))
	for _, c := range clients {
		_, err := st.CreateOrder(ctx, &model.OrderRecord{ClientName: c, IsPurchaseOrder: true}, store.MessageMeta{})
		require.NoError(t, err)
	}
}

func clientNames(t *testing.T, path string) []string {
	t.Helper()
	st, err := store.NewSQLite(path)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	names, err := st.ListClientNames(context.Background())
	require.NoError(t, err)
	return names
}

func TestCreate_Uncompressed(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "orders.db")
	seedDB(t, dbPath, "Chhiwat Fes")
	setClock(t, time.Date(2024, time.June, 3, 14, 5, 9, 0, time.UTC))

	b, err := Create(context.Background(), dbPath, filepath.Join(dir, "backups"), false)
	require.NoError(t, err)
	assert.Equal(t, "backup_20240603_140509.db", b.Name)
	assert.False(t, b.Compressed)
	assert.Positive(t, b.Size)
	assert.True(t, b.CreatedAt.Equal(time.Date(2024, time.June, 3, 14, 5, 9, 0, time.UTC)))

	assert.Equal(t, []string{"Chhiwat Fes"}, clientNames(t, b.Path))
}

func TestCreate_CompressedAndRestore(t *testing.T) {
	dir := t.TempDir()
	backups := filepath.Join(dir, "backups")
	dbPath := filepath.Join(dir, "orders.db")
	seedDB(t, dbPath, "Chhiwat Fes")

	setClock(t, time.Date(2024, time.June, 3, 10, 0, 0, 0, time.UTC))
	b, err := Create(context.Background(), dbPath, backups, true)
	require.NoError(t, err)
	assert.Equal(t, "backup_20240603_100000.db.gz", b.Name)
	assert.True(t, b.Compressed)

	entries, err := os.ReadDir(backups)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary snapshot is removed")

	// Changes after the snapshot are undone by the restore.
	seedDB(t, dbPath, "Restaurant Atlas")
	assert.Len(t, clientNames(t, dbPath), 2)

	setClock(t, time.Date(2024, time.June, 4, 8, 0, 0, 0, time.UTC))
	pre, err := Restore(context.Background(), dbPath, backups, b.Name)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(backups, "pre_restore_20240604_080000.db"), pre)

	assert.Equal(t, []string{"Chhiwat Fes"}, clientNames(t, dbPath))
	assert.Len(t, clientNames(t, pre), 2)

	// Pre-restore copies are not listed as backups.
	list, err := List(backups)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.Name, list[0].Name)
}

func TestCreate_Collision(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "orders.db")
	seedDB(t, dbPath)
	setClock(t, time.Date(2024, time.June, 3, 10, 0, 0, 0, time.UTC))

	_, err := Create(context.Background(), dbPath, dir, false)
	require.NoError(t, err)
	_, err = Create(context.Background(), dbPath, dir, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestCreate_MissingDatabase(t *testing.T) {
	dir := t.TempDir()
	_, err := Create(context.Background(), filepath.Join(dir, "nope.db"), dir, true)
	require.Error(t, err)
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
}

func TestList_NewestFirst(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "backup_20240101_000000.db")
	touch(t, dir, "backup_20240301_000000.db.gz")
	touch(t, dir, "backup_20240201_000000.db")
	touch(t, dir, "pre_restore_20240401_000000.db")
	touch(t, dir, "notes.txt")

	list, err := List(dir)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "backup_20240301_000000.db.gz", list[0].Name)
	assert.True(t, list[0].Compressed)
	assert.Equal(t, "backup_20240101_000000.db", list[2].Name)
	assert.Equal(t, time.March, list[0].CreatedAt.Month())
}

func TestList_MissingDir(t *testing.T) {
	list, err := List(filepath.Join(t.TempDir(), "none"))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPrune(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"01", "02", "03", "04"} {
		touch(t, dir, "backup_202401"+n+"_000000.db")
	}
	touch(t, dir, "pre_restore_20230101_000000.db")

	removed, err := Prune(dir, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"backup_20240102_000000.db", "backup_20240101_000000.db"}, removed)

	list, err := List(dir)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.FileExists(t, filepath.Join(dir, "pre_restore_20230101_000000.db"))

	removed, err = Prune(dir, 5)
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestRestore_InvalidName(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"../orders.db", "orders.db", "backup_x.txt"} {
		_, err := Restore(context.Background(), filepath.Join(dir, "orders.db"), dir, name)
		require.Error(t, err, name)
	}

	_, err := Restore(context.Background(), filepath.Join(dir, "orders.db"), dir, "backup_20240101_000000.db")
	require.Error(t, err, "missing file")
}

func TestRestore_NoCurrentDatabase(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.db")
	seedDB(t, src, "Boulangerie Amal")
	setClock(t, time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC))
	b, err := Create(context.Background(), src, dir, false)
	require.NoError(t, err)

	target := filepath.Join(dir, "fresh.db")
	pre, err := Restore(context.Background(), target, dir, b.Name)
	require.NoError(t, err)
	assert.Empty(t, pre)
	assert.Equal(t, []string{"Boulangerie Amal"}, clientNames(t, target))
}

func copyTo(t *testing.T, src, dest string) {
	t.Helper()
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(dest, data, 0o600))
}

func TestRestore_KeepsUncheckpointedWAL(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	src := filepath.Join(dir, "src.db")
	seedDB(t, src, "Boulangerie Amal")
	setClock(t, time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC))
	b, err := Create(ctx, src, dir, false)
	require.NoError(t, err)

	// Copy the live files while the store is still open: the committed
	// order exists only in the -wal, as after a crash.
	live := filepath.Join(dir, "live.db")
	st, err := store.NewSQLite(live)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))
	_, err = st.CreateOrder(ctx, &model.OrderRecord{ClientName: "Chhiwat Fes", IsPurchaseOrder: true}, store.MessageMeta{})
	require.NoError(t, err)

	crashed := filepath.Join(dir, "crashed.db")
	copyTo(t, live, crashed)
	copyTo(t, live+"-wal", crashed+"-wal")
	require.NoError(t, st.Close())

	wal, err := os.Stat(crashed + "-wal")
	require.NoError(t, err)
	require.Positive(t, wal.Size())

	setClock(t, time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC))
	pre, err := Restore(ctx, crashed, dir, b.Name)
	require.NoError(t, err)
	require.NotEmpty(t, pre)
	assert.NoFileExists(t, crashed+"-wal")

	assert.Equal(t, []string{"Chhiwat Fes"}, clientNames(t, pre))
	assert.Equal(t, []string{"Boulangerie Amal"}, clientNames(t, crashed))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1.5 KB", FormatSize(1536))
	assert.Equal(t, "2.0 MB", FormatSize(2*1024*1024))
}
