package storage

import (
	"bytes"
	"strings"
	"testing"

	"github.com/civitas-institute/civitas/internal/apperror"
)

func pdfBytes() []byte {
	return []byte("%PDF-1.7 fake document body")
}

func TestValidate_AcceptsAllowedTypes(t *testing.T) {
	tests := []struct {
		name string
		mime string
		data []byte
	}{
		{"pdf", "application/pdf", pdfBytes()},
		{"png", "image/png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00}},
		{"jpeg", "image/jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}},
		{"gif", "image/gif", []byte("GIF89a....")},
		{"plain text", "text/plain", []byte("meeting minutes")},
		{"docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			[]byte{0x50, 0x4B, 0x03, 0x04, 0x00, 0x00}},
		{"wav", "audio/wav", append([]byte("RIFF....WAVE"), 0x00)},
		{"mp3 id3", "audio/mpeg", []byte("ID3....")},
		{"mp4", "video/mp4", append([]byte{0, 0, 0, 0x18}, []byte("ftypisom....")...)},
		{"webm", "video/webm", []byte{0x1A, 0x45, 0xDF, 0xA3, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Validate(tt.data, tt.mime, MaxUploadSize); err != nil {
				t.Errorf("expected %s to validate, got %v", tt.name, err)
			}
		})
	}
}

func TestValidate_RejectsDisallowedMime(t *testing.T) {
	err := Validate([]byte("MZ...."), "application/x-msdownload", MaxUploadSize)
	assertValidationError(t, err)
}

func TestValidate_RejectsOversized(t *testing.T) {
	// 10 bytes over a 1KB cap; no need to allocate 100MB in tests.
	data := append(pdfBytes(), bytes.Repeat([]byte{0x20}, 1024)...)
	err := Validate(data, "application/pdf", 1024)
	assertValidationError(t, err)
	if !strings.Contains(apperror.SafeMessage(err), "file too large") {
		t.Errorf("expected size message, got %q", apperror.SafeMessage(err))
	}
}

func TestValidate_RejectsSpoofedContent(t *testing.T) {
	// Declared PDF, actually a PNG.
	data := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	err := Validate(data, "application/pdf", MaxUploadSize)
	assertValidationError(t, err)
}

func TestValidate_RejectsEmpty(t *testing.T) {
	assertValidationError(t, Validate(nil, "application/pdf", MaxUploadSize))
}

func TestValidate_RejectsBinaryAsText(t *testing.T) {
	data := []byte{'h', 'i', 0x00, 0x01}
	assertValidationError(t, Validate(data, "text/plain", MaxUploadSize))
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if code := apperror.SafeCode(err); code != 422 {
		t.Errorf("expected 422 validation error, got %d", code)
	}
}
