package repository

import "errors"

// Package repository contains data access layer abstractions.
// Implementations can live in subpackages (e.g., postgres) inside this directory.

// ErrVersionConflict is returned by compare-and-set writes when the caller's
// base version no longer matches the stored row. It also covers a deleted
// row; callers that need to distinguish should re-fetch.
var ErrVersionConflict = errors.New("version conflict")
