package attachment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"marketchat-backend/pkg/errors"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{"..\\..\\windows\\system32\\cmd.exe", "cmd.exe"},
		{"photo 2024.png", "photo 2024.png"},
		{"bad\x00name.txt", "badname.txt"},
		{"", "upload"},
		{".", "upload"},
		{"..", "upload"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFileName(tt.in), "input %q", tt.in)
	}
}

func TestRejectionReason(t *testing.T) {
	assert.Equal(t, "unsupported_type", rejectionReason(errors.UnsupportedTypeError("text/html")))
	assert.Equal(t, "file_too_large", rejectionReason(errors.FileTooLargeError(5*1024*1024)))
	assert.Equal(t, "invalid", rejectionReason(errors.ValidationError("bad")))
}
