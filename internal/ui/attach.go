package ui

import (
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/plpchat/client/internal/chat"
)

// LoadAttachment reads an image file and encodes it as a data URI for the
// wire. Files over the attachment cap are rejected here, before any frame
// is built.
func LoadAttachment(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("ui: attachment: %w", err)
	}
	if info.Size() > chat.MaxImageBytes {
		return "", fmt.Errorf("ui: attachment exceeds %d byte limit", chat.MaxImageBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("ui: attachment: %w", err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
