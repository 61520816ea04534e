package controllers

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"carabin/backend/config"
)

// openUpload validates and opens a spreadsheet upload: extension, size cap
// and a content sniff (xlsx files are zip archives; csv must be plain text).
func openUpload(fh *multipart.FileHeader, cfg *config.Config) (io.Reader, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext != ".xlsx" && ext != ".csv" {
		return nil, fmt.Errorf("only .xlsx and .csv files are accepted")
	}

	maxBytes := int64(cfg.MaxUploadMB) << 20
	if fh.Size > maxBytes {
		return nil, fmt.Errorf("file exceeds the %d MB limit", cfg.MaxUploadMB)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("could not open upload")
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		f.Close()
		return nil, fmt.Errorf("could not read upload")
	}
	head = head[:n]

	isZip := bytes.HasPrefix(head, []byte("PK"))
	if ext == ".xlsx" && !isZip {
		f.Close()
		return nil, fmt.Errorf("file is not a valid xlsx workbook")
	}
	if ext == ".csv" && (isZip || bytes.ContainsRune(head, 0)) {
		f.Close()
		return nil, fmt.Errorf("file is not a valid csv")
	}

	return io.MultiReader(bytes.NewReader(head), f), nil
}
