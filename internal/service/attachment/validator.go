// Package attachment validates upload metadata before any storage I/O.
// Classification is pure: declared MIME type maps to a message kind, and
// each kind carries its own size ceiling.
package attachment

import (
	"strings"

	"marketchat-backend/internal/domain"
	"marketchat-backend/pkg/constants"
	"marketchat-backend/pkg/errors"
)

// documentTypes are the non-media MIME types accepted as FILE attachments
var documentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"application/vnd.ms-powerpoint":                                     true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"text/plain": true,
	"text/csv":   true,
	"application/zip": true,
}

// Classify maps a declared MIME type and byte size to the message kind the
// resulting attachment belongs to. Type is checked before size so an
// unsupported oversized upload reports the more actionable error. Both
// checks run before any bytes touch the object store.
func Classify(mimeType string, byteSize int64) (domain.MessageKind, error) {
	mimeType = normalizeMIME(mimeType)

	var kind domain.MessageKind
	var ceiling int64

	switch {
	case strings.HasPrefix(mimeType, "audio/"):
		kind, ceiling = domain.KindAudio, constants.MaxAudioSize
	case strings.HasPrefix(mimeType, "video/"):
		kind, ceiling = domain.KindVideo, constants.MaxVideoSize
	case strings.HasPrefix(mimeType, "image/"):
		kind, ceiling = domain.KindImage, constants.MaxImageSize
	case documentTypes[mimeType]:
		kind, ceiling = domain.KindFile, constants.MaxDocumentSize
	default:
		return "", errors.UnsupportedTypeError(mimeType)
	}

	if byteSize > ceiling {
		return "", errors.FileTooLargeError(ceiling)
	}

	return kind, nil
}

// CeilingFor returns the size ceiling for a previously classified kind.
// Zero for kinds that never carry attachments.
func CeilingFor(kind domain.MessageKind) int64 {
	switch kind {
	case domain.KindAudio:
		return constants.MaxAudioSize
	case domain.KindVideo:
		return constants.MaxVideoSize
	case domain.KindImage:
		return constants.MaxImageSize
	case domain.KindFile:
		return constants.MaxDocumentSize
	}
	return 0
}

// normalizeMIME lowercases the type and strips parameters such as
// "; charset=utf-8" so lookups match the bare media type
func normalizeMIME(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
