package imagemeta

import (
	"encoding/base64"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
)

// sniffLen is how many leading bytes content sniffing needs; matches
// http.DetectContentType's own limit.
const sniffLen = 512

// DetectMIME sniffs the payload's content type from its leading bytes.
func DetectMIME(data []byte) string {
	if len(data) > sniffLen {
		data = data[:sniffLen]
	}
	return http.DetectContentType(data)
}

// IsImage reports whether the payload sniffs as image content. The
// decision is based on bytes, not the file name, so a renamed .txt file
// does not pass.
func IsImage(data []byte) bool {
	return strings.HasPrefix(DetectMIME(data), "image/")
}

// EncodeDataURI wraps a payload into a self-contained data URI.
func EncodeDataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI splits a data URI back into its MIME type and payload.
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, errors.New("not a data URI")
	}
	mimeType, payload, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return "", nil, errors.New("data URI is not base64-encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, err
	}
	return mimeType, data, nil
}

// SanitizeFilename strips path components and control bytes from an
// upload's original file name before it is stored as a display label.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "\x00", "")
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	return name
}
