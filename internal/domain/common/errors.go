// Package common holds shared domain errors.
package common

import "errors"

var (
	ErrNotFound          = errors.New("requested item not found")
	ErrBadRequest        = errors.New("bad request")
	ErrSourceUnavailable = errors.New("source unreachable")
)
