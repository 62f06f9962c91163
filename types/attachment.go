package types

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Attachment is data captured alongside a test or step: a screenshot, a log
// excerpt, an API payload. Content is base64-encoded and the record is never
// mutated after creation.
type Attachment struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Extension string    `json:"extension,omitempty"`
	Content   string    `json:"content"`
	Size      int       `json:"size"`
	Timestamp time.Time `json:"timestamp"`
}

// NewAttachment captures raw bytes under a display name and MIME type.
// Size reflects the decoded payload, not the encoded form.
func NewAttachment(name, mimeType, extension string, data []byte) Attachment {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return Attachment{
		ID:        uuid.New().String(),
		Name:      name,
		Type:      mimeType,
		Extension: extension,
		Content:   base64.StdEncoding.EncodeToString(data),
		Size:      len(data),
		Timestamp: time.Now().UTC(),
	}
}

// TextAttachment captures plain text.
func TextAttachment(name, text string) Attachment {
	return NewAttachment(name, "text/plain", "txt", []byte(text))
}

// HTMLAttachment captures an HTML fragment.
func HTMLAttachment(name, html string) Attachment {
	return NewAttachment(name, "text/html", "html", []byte(html))
}

// ScreenshotAttachment captures PNG image bytes.
func ScreenshotAttachment(name string, png []byte) Attachment {
	return NewAttachment(name, "image/png", "png", png)
}

// JSONAttachment marshals v with indentation and captures the document.
func JSONAttachment(name string, v any) (Attachment, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return Attachment{}, fmt.Errorf("failed to marshal attachment %q: %w", name, err)
	}
	return NewAttachment(name, "application/json", "json", data), nil
}

// FileAttachment reads a file from disk, guessing the MIME type from its
// extension. An empty name defaults to the file's base name.
func FileAttachment(name, path string) (Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("failed to read attachment file: %w", err)
	}
	if name == "" {
		name = filepath.Base(path)
	}
	ext := filepath.Ext(path)
	mimeType := mime.TypeByExtension(ext)
	return NewAttachment(name, mimeType, strings.TrimPrefix(ext, "."), data), nil
}

// Bytes decodes the attachment content back to its raw form.
func (a Attachment) Bytes() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(a.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to decode attachment %q: %w", a.Name, err)
	}
	return data, nil
}
