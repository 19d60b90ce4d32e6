package extract

import (
	"archive/zip"
	"bytes"
	"testing"

	"docrag-be/internal/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		mimeType string
		size     int64
		code     string
	}{
		{"valid pdf", "report.pdf", "application/pdf", 1024, ""},
		{"valid markdown with charset", "notes.MD", "text/markdown; charset=utf-8", 10, ""},
		{"empty file", "report.pdf", "application/pdf", 0, apperror.CodeEmptyFile},
		{"missing extension", "README", "text/plain", 10, apperror.CodeInvalidFileType},
		{"unsupported extension", "photo.png", "image/png", 10, apperror.CodeInvalidFileType},
		{"unsupported mime", "data.csv", "image/png", 10, apperror.CodeInvalidFileType},
		{"too large", "big.txt", "text/plain", DefaultMaxBytes + 1, apperror.CodeFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.fileName, tt.mimeType, tt.size, 0)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperror.Is(err, apperror.KindValidation))
			appErr, _ := apperror.As(err)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}
}

func TestDetectFileType(t *testing.T) {
	assert.Equal(t, "pdf", DetectFileType("a/b/Report.PDF"))
	assert.Equal(t, "", DetectFileType("Makefile"))
	assert.Equal(t, "gz", DetectFileType("archive.tar.gz"))
}

func TestExtractText_Plain(t *testing.T) {
	text, err := ExtractText("notes.txt", []byte("\xef\xbb\xbfhello\n\nworld"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n\nworld", text)
}

func TestExtractText_EmptyContent(t *testing.T) {
	_, err := ExtractText("notes.txt", []byte("   \n\n  "))
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeEmptyContent, appErr.Code)
}

func TestExtractText_Docx(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First</w:t></w:r><w:r><w:t xml:space="preserve"> paragraph</w:t></w:r></w:p>
    <w:p></w:p>
    <w:p><w:r><w:t>Second</w:t></w:r></w:p>
  </w:body>
</w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	text, err := ExtractText("doc.docx", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "First paragraph\n\nSecond", text)
}

func TestExtractText_CorruptDocx(t *testing.T) {
	_, err := ExtractText("doc.docx", []byte("not a zip"))
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}
