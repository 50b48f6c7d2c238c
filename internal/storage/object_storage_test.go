package storage

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) ObjectStorage {
	t.Helper()
	s, err := NewLocalStorage(t.TempDir(), "https://files.example.com")
	require.NoError(t, err)
	return s
}

// ==================== Save Tests ====================

func TestSave_GeneratesUniquePath(t *testing.T) {
	s := newTestStorage(t)

	path1, err := s.Save("bill.pdf", strings.NewReader("content one"))
	require.NoError(t, err)
	path2, err := s.Save("bill.pdf", strings.NewReader("content two"))
	require.NoError(t, err)

	assert.NotEqual(t, path1, path2)
	assert.True(t, strings.HasSuffix(path1, ".pdf"))
}

func TestSave_RoundTrip(t *testing.T) {
	s := newTestStorage(t)

	path, err := s.Save("note.txt", strings.NewReader("hello"))
	require.NoError(t, err)

	reader, err := s.Get(path)
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

// ==================== Upload Tests ====================

func TestUpload_ExactPath(t *testing.T) {
	s := newTestStorage(t)

	path, err := s.Upload("derived/42-p1.png", bytes.NewReader([]byte{1, 2, 3}), "image/png", true)
	require.NoError(t, err)
	assert.Equal(t, "derived/42-p1.png", path)

	reader, err := s.Get(path)
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
}

// Upsert overwrites so retried conversions never accumulate derived files
func TestUpload_UpsertOverwrites(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Upload("derived/42-p1.png", strings.NewReader("first"), "image/png", true)
	require.NoError(t, err)
	_, err = s.Upload("derived/42-p1.png", strings.NewReader("second"), "image/png", true)
	require.NoError(t, err)

	reader, err := s.Get("derived/42-p1.png")
	require.NoError(t, err)
	defer reader.Close()

	data, _ := io.ReadAll(reader)
	assert.Equal(t, "second", string(data))
}

func TestUpload_NoUpsertFailsOnExisting(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Upload("derived/7-p1.png", strings.NewReader("first"), "image/png", false)
	require.NoError(t, err)

	_, err = s.Upload("derived/7-p1.png", strings.NewReader("second"), "image/png", false)
	assert.ErrorIs(t, err, ErrObjectExists)
}

func TestUpload_RejectsTraversal(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Upload("../outside.png", strings.NewReader("x"), "image/png", true)
	assert.ErrorIs(t, err, ErrPathTraversal)
}

// ==================== Get/Delete Tests ====================

func TestGet_NotFound(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Get("nope/missing.bin")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestGet_RejectsTraversal(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Get("../../etc/passwd")
	assert.ErrorIs(t, err, ErrPathTraversal)

	_, err = s.Get("/etc/passwd")
	assert.ErrorIs(t, err, ErrPathTraversal)
}

func TestDelete_MissingFileIsNotAnError(t *testing.T) {
	s := newTestStorage(t)

	assert.NoError(t, s.Delete("never/created.txt"))
}

func TestDelete_RemovesFile(t *testing.T) {
	s := newTestStorage(t)

	path, err := s.Save("gone.txt", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(path))

	_, err = s.Get(path)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

// ==================== PublicURL / ValidateFile ====================

func TestPublicURL(t *testing.T) {
	s := newTestStorage(t)

	assert.Equal(t, "https://files.example.com/files/derived/42-p1.png", s.PublicURL("derived/42-p1.png"))
}

// The configured base is the bare server origin; PublicURL owns the
// /files prefix, so it appears exactly once
func TestPublicURL_SingleFilesPrefix(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "https://relay.example.com/")
	require.NoError(t, err)

	url := s.PublicURL("derived/7-p1.png")
	assert.Equal(t, "https://relay.example.com/files/derived/7-p1.png", url)
	assert.Equal(t, 1, strings.Count(url, "/files/"))
}

func TestValidateFile(t *testing.T) {
	assert.NoError(t, ValidateFile("bill.pdf", 1024))
	assert.ErrorIs(t, ValidateFile("malware.exe", 10), ErrBlockedExt)
	assert.ErrorIs(t, ValidateFile("big.pdf", MaxFileSize+1), ErrFileTooLarge)
}
