package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"docrag-be/internal/apperror"
)

const DefaultMaxBytes int64 = 50 * 1024 * 1024

var allowedExtensions = map[string]bool{
	"pdf":  true,
	"docx": true,
	"txt":  true,
	"doc":  true,
	"rtf":  true,
	"md":   true,
	"csv":  true,
	"json": true,
	"xml":  true,
}

var allowedMimeTypes = map[string]bool{
	"application/pdf": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/msword": true,
	"application/rtf":    true,
	"text/rtf":           true,
	"text/plain":         true,
	"text/markdown":      true,
	"text/x-markdown":    true,
	"text/csv":           true,
	"application/json":   true,
	"application/xml":    true,
	"text/xml":           true,
	// Browsers and curl fall back to this when they cannot sniff the type.
	"application/octet-stream": true,
}

// DetectFileType returns the lowercased extension without the dot, or "" if there is none.
func DetectFileType(fileName string) string {
	ext := filepath.Ext(fileName)
	if ext == "" || ext == "." {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// Validate checks an upload before any work is done on it.
func Validate(fileName, mimeType string, size int64, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	if size <= 0 {
		return apperror.Validation(apperror.CodeEmptyFile, "File is empty")
	}

	ext := DetectFileType(fileName)
	if ext == "" {
		return apperror.Validation(apperror.CodeInvalidFileType, "File has no extension")
	}
	if !allowedExtensions[ext] {
		return apperror.Validation(apperror.CodeInvalidFileType, fmt.Sprintf("Unsupported file extension: %s", ext))
	}

	if mimeType != "" {
		base := strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))
		if !allowedMimeTypes[base] {
			return apperror.Validation(apperror.CodeInvalidFileType, fmt.Sprintf("Unsupported file type: %s", base))
		}
	}

	if size > maxBytes {
		return apperror.Validation(apperror.CodeFileTooLarge,
			fmt.Sprintf("File size exceeds maximum limit of %d MB", maxBytes/(1024*1024)))
	}

	return nil
}
