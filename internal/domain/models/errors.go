package models

import "errors"

var (
	ErrEmptyDataset   = errors.New("dataset has no samples")
	ErrNaN            = errors.New("dataset contains NaN")
	ErrShapeMismatch  = errors.New("sample shape mismatch")
	ErrMalformedLabel = errors.New("malformed label")
	ErrModelNotFound  = errors.New("model not found")
	ErrUnknownProfile = errors.New("unknown training profile")
)
