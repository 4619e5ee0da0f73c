package executor

import (
	"mime"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// guessContentType prefers the registered type for the name's extension and
// falls back to sniffing the body. Listing names such as "pr.data.0.Current"
// carry no useful extension.
func guessContentType(name string, body []byte) string {
	if ext := filepath.Ext(name); ext != "" {
		if contentType := mime.TypeByExtension(ext); contentType != "" {
			return contentType
		}
	}
	return mimetype.Detect(body).String()
}
