package documents

import "errors"

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnsupportedType = errors.New("Only PDF, Word (.docx), and text files are allowed")
	ErrTooLarge        = errors.New("file exceeds the 10MB limit")
	ErrNoText          = errors.New("no text could be extracted from the file")
	ErrNotFound        = errors.New("document not found")
)
