package util

import "errors"

var (
	ErrNoExtractableText = errors.New("no extractable text found in document")
	ErrUnsupportedType   = errors.New("unsupported file type")
	ErrFileTooLarge      = errors.New("file exceeds upload size limit")
)
