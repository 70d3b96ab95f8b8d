package resume

import (
	"errors"
	"fmt"
	"mime"
	"strings"
)

const MaxUploadSize = 10 << 20

const (
	MimePDF  = "application/pdf"
	MimeDOC  = "application/msword"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText = "text/plain"
)

var (
	ErrEmptyFile       = errors.New("resume: empty file")
	ErrTooLarge        = errors.New("resume: file exceeds 10 MiB")
	ErrUnsupportedType = errors.New("resume: unsupported file type")
)

var allowedTypes = map[string]bool{
	MimePDF:  true,
	MimeDOC:  true,
	MimeDOCX: true,
	MimeText: true,
}

// NormalizeMime drops parameters and lowercases a Content-Type value.
func NormalizeMime(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// Validate checks an upload before any extraction work is done.
func Validate(size int64, contentType string) error {
	if size <= 0 {
		return ErrEmptyFile
	}
	if size > MaxUploadSize {
		return ErrTooLarge
	}
	if mt := NormalizeMime(contentType); !allowedTypes[mt] {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	return nil
}
