package storage

import (
	"bytes"
	"fmt"

	"github.com/civitas-institute/civitas/internal/apperror"
)

// MaxUploadSize is the hard cap on uploaded file size: 100MB. Enforced
// before any store or network call is made.
const MaxUploadSize = 100 * 1024 * 1024

// AllowedMimeTypes is the upload allowlist: documents, images, video, and
// audio formats the publications feed and partner pages can serve.
var AllowedMimeTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain": true,
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"video/mp4":  true,
	"video/webm": true,
	"audio/mpeg": true,
	"audio/wav":  true,
}

// MimeToExtension maps allowed MIME types to their canonical file extension.
var MimeToExtension = map[string]string{
	"application/pdf":    ".pdf",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"text/plain": ".txt",
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"video/mp4":  ".mp4",
	"video/webm": ".webm",
	"audio/mpeg": ".mp3",
	"audio/wav":  ".wav",
}

// Validate checks an upload against the size cap, the MIME allowlist, and
// (for binary formats with a recognizable signature) the file's magic
// bytes. It returns a ValidationError before any store call is attempted.
func Validate(data []byte, declaredMIME string, maxSize int64) error {
	if maxSize <= 0 || maxSize > MaxUploadSize {
		maxSize = MaxUploadSize
	}

	if !AllowedMimeTypes[declaredMIME] {
		return apperror.NewValidation("unsupported file type: " + declaredMIME)
	}

	if int64(len(data)) > maxSize {
		return apperror.NewValidation(
			fmt.Sprintf("file too large; maximum size is %d MB", maxSize/(1024*1024)))
	}

	if len(data) == 0 {
		return apperror.NewValidation("file is empty")
	}

	if !matchesMagicBytes(data, declaredMIME) {
		return apperror.NewValidation("file content does not match declared type")
	}

	return nil
}

// matchesMagicBytes checks that the file content's magic bytes match the
// declared MIME type. Prevents uploading executables or other formats with
// a spoofed Content-Type header. Text formats and the docx ZIP container's
// less distinctive variants fall through to an accept.
func matchesMagicBytes(data []byte, declaredMIME string) bool {
	switch declaredMIME {
	case "application/pdf":
		return bytes.HasPrefix(data, []byte("%PDF-"))
	case "application/msword":
		// OLE compound file signature.
		return bytes.HasPrefix(data, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		// DOCX is a ZIP container.
		return bytes.HasPrefix(data, []byte{0x50, 0x4B, 0x03, 0x04})
	case "image/jpeg":
		return len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF
	case "image/png":
		return bytes.HasPrefix(data, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A})
	case "image/gif":
		return bytes.HasPrefix(data, []byte("GIF8"))
	case "video/webm":
		// EBML header shared by webm/mkv.
		return bytes.HasPrefix(data, []byte{0x1A, 0x45, 0xDF, 0xA3})
	case "video/mp4":
		// "ftyp" box at offset 4.
		return len(data) >= 12 && bytes.Equal(data[4:8], []byte("ftyp"))
	case "audio/wav":
		return len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE"))
	case "audio/mpeg":
		// ID3 tag or MPEG frame sync.
		return bytes.HasPrefix(data, []byte("ID3")) ||
			(len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0)
	case "text/plain":
		// No signature; reject only NUL bytes in the first KB.
		probe := data
		if len(probe) > 1024 {
			probe = probe[:1024]
		}
		return !bytes.ContainsRune(probe, 0)
	default:
		return false
	}
}
