package media

import (
	"path/filepath"
	"regexp"
	"strings"
)

var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".mp4":  "video/mp4",
}

// MimeType resolves the content type from the file extension. Unknown
// extensions are rejected rather than sent as a generic type.
func MimeType(filePath string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	if mimeType, ok := mimeTypes[ext]; ok {
		return mimeType, nil
	}
	return "", &ValidationError{Field: "file", Message: "unsupported file type: " + ext}
}

const maxNameLength = 24

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9 _-]`)

// SanitizeName turns a file name into a media name the API accepts.
func SanitizeName(input string) string {
	if strings.TrimSpace(input) == "" {
		return "media"
	}

	clean := unsafeNameChars.ReplaceAllString(input, "")
	if clean == "" {
		return "media"
	}
	if len(clean) > maxNameLength {
		clean = clean[:maxNameLength]
	}
	return clean
}

// mediaName derives the media name from a path, without directory or extension.
func mediaName(filePath string) string {
	base := filepath.Base(filePath)
	return SanitizeName(strings.TrimSuffix(base, filepath.Ext(base)))
}
