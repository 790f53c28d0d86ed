package documents

import "time"

// MaxUploadBytes bounds a single uploaded file.
const MaxUploadBytes = 10 << 20

// Document records an uploaded source file and its extracted text copy.
type Document struct {
	ID               string
	UserID           string
	FileName         string
	MimeType         string
	SizeBytes        int64
	StorageKey       string
	ExtractedTextKey string
	CreatedAt        time.Time
}

// Upload is what the client receives: the original name and the text pulled out of it.
// Content is intended to be sent back as an input source of type "upload".
type Upload struct {
	DocumentID string `json:"documentId"`
	Filename   string `json:"filename"`
	MimeType   string `json:"mimeType"`
	Content    string `json:"content"`
}
