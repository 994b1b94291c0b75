package sqlite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

func seedLibrary(t *testing.T, b *Backend) {
	t.Helper()
	dune, err := b.Books().Add(types.NewBook{Title: "Dune", Author: "Herbert", Year: "1965"})
	require.NoError(t, err)
	_, err = b.Books().Add(types.NewBook{Title: "Emma", Author: "Austen", Quantity: 4})
	require.NoError(t, err)
	require.NoError(t, b.Books().Borrow(dune.ID))
	ada, err := b.Members().Add(types.NewMember{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	loan, err := b.Loans().Create(dune.ID, ada.ID)
	require.NoError(t, err)
	_, err = b.Loans().Return(loan.ID)
	require.NoError(t, err)
	_, err = b.Loans().Create(dune.ID, ada.ID)
	require.NoError(t, err)
}

func TestExportImportRoundTrip(t *testing.T) {
	src := setupBackend(t)
	seedLibrary(t, src)
	dir := t.TempDir()

	m, err := src.Export(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Books)
	assert.Equal(t, 1, m.Members)
	assert.Equal(t, 2, m.Loans)
	id, err := uuid.Parse(m.ExportID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())

	for _, name := range []string{booksJSONL, membersJSONL, loansJSONL, manifestJSON} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	dst := setupBackend(t)
	loaded, err := dst.Import(dir)
	require.NoError(t, err)
	assert.Equal(t, m.ExportID, loaded.ExportID)
	assert.Equal(t, 2, loaded.Books)
	assert.Equal(t, 2, loaded.Loans)

	wantBooks, err := src.Books().List()
	require.NoError(t, err)
	gotBooks, err := dst.Books().List()
	require.NoError(t, err)
	assert.Equal(t, wantBooks, gotBooks)

	wantMembers, err := src.Members().List()
	require.NoError(t, err)
	gotMembers, err := dst.Members().List()
	require.NoError(t, err)
	assert.Equal(t, wantMembers, gotMembers)

	wantLoans, err := src.Loans().List()
	require.NoError(t, err)
	gotLoans, err := dst.Loans().List()
	require.NoError(t, err)
	assert.Equal(t, wantLoans, gotLoans)

	// New rows continue after the imported ids.
	next, err := dst.Books().Add(types.NewBook{Title: "Ulysses", Author: "Joyce"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), next.ID)
}

func TestImportRefusesNonEmptyLibrary(t *testing.T) {
	src := setupBackend(t)
	seedLibrary(t, src)
	dir := t.TempDir()
	_, err := src.Export(dir)
	require.NoError(t, err)

	_, err = src.Import(dir)
	assert.ErrorIs(t, err, types.ErrNotEmpty)
}

func TestImportSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	content := `{"id":1,"title":"Dune","author":"Herbert","year":1965,"quantity":1,"available":true}
not json at all
{"id":2,"title":"Emma","author":"Austen","quantity":2,"available":false,"shelf":"B3"}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, booksJSONL), []byte(content), 0o644))

	b := setupBackend(t)
	m, err := b.Import(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Books)
	assert.Equal(t, 0, m.Members)

	books, err := b.Books().List()
	require.NoError(t, err)
	require.Len(t, books, 2)
	require.NotNil(t, books[0].Year)
	assert.Equal(t, int64(1965), *books[0].Year)
	assert.Nil(t, books[1].Year)
	assert.False(t, books[1].Available)
}

func TestWriteJSONLAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rows.jsonl")
	require.NoError(t, writeJSONL(path, []types.Member{{ID: 1, Name: "Ada"}, {ID: 2, Name: "Grace"}}))

	records, err := readJSONL(path)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
