package storage

import "errors"

var (
	ErrNotOpen = errors.New("store is not open")
)
