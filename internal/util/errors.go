package util

import "errors"

var (
	ErrNoContent         = errors.New("no content provided")
	ErrNoExtractableText = errors.New("no extractable text found in document")
)
