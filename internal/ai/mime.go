package ai

import (
	"path/filepath"
	"strings"
)

var extMIMETypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".txt":  "text/plain",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// InferMIMEType resolves an attachment's MIME type, falling back to the
// file extension when the caller supplied nothing useful.
func InferMIMEType(name, provided string) string {
	if provided != "" && provided != "application/octet-stream" {
		return provided
	}
	ext := strings.ToLower(filepath.Ext(name))
	if mt, ok := extMIMETypes[ext]; ok {
		return mt
	}
	if provided != "" {
		return provided
	}
	return "application/octet-stream"
}
