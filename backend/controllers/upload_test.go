package controllers

import (
	"bytes"
	"io"
	"mime/multipart"
	"strings"
	"testing"

	"carabin/backend/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fileHeader builds a real multipart.FileHeader the way fiber hands one to
// the upload handlers.
func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(body, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	require.NotEmpty(t, form.File["file"])
	return form.File["file"][0]
}

func uploadConfig() *config.Config {
	return &config.Config{MaxUploadMB: 1}
}

func TestOpenUploadRejectsExtension(t *testing.T) {
	fh := fileHeader(t, "notes.txt", []byte("matiere,cours\n"))
	_, err := openUpload(fh, uploadConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".xlsx and .csv")
}

func TestOpenUploadEnforcesSizeCap(t *testing.T) {
	big := bytes.Repeat([]byte("a"), 1<<20+1)
	fh := fileHeader(t, "banque.csv", big)
	_, err := openUpload(fh, uploadConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 MB limit")
}

func TestOpenUploadRejectsFakeXlsx(t *testing.T) {
	fh := fileHeader(t, "banque.xlsx", []byte("matiere,cours\nCardio,HTA\n"))
	_, err := openUpload(fh, uploadConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a valid xlsx")
}

func TestOpenUploadRejectsBinaryCsv(t *testing.T) {
	// A zip renamed to .csv, and a csv carrying NUL bytes.
	for _, content := range [][]byte{
		[]byte("PK\x03\x04fake archive"),
		[]byte("matiere,cours\x00\nCardio,HTA\n"),
	} {
		fh := fileHeader(t, "banque.csv", content)
		_, err := openUpload(fh, uploadConfig())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a valid csv")
	}
}

func TestOpenUploadAcceptsValidFiles(t *testing.T) {
	// Longer than the sniff window so the reassembled reader is exercised.
	csv := "matiere,cours,question\n" + strings.Repeat("Cardio,HTA,Question ?\n", 40)
	fh := fileHeader(t, "banque.csv", []byte(csv))
	r, err := openUpload(fh, uploadConfig())
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, csv, string(got))

	fh = fileHeader(t, "banque.xlsx", []byte("PK\x03\x04workbook bytes"))
	_, err = openUpload(fh, uploadConfig())
	require.NoError(t, err)
}
