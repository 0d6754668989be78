package models

import "errors"

var (
	// ErrSingular indicates a design whose cross-product matrix cannot be inverted.
	ErrSingular = errors.New("models: singular design matrix")

	// ErrTooFewObs indicates fewer observations than parameters plus one.
	ErrTooFewObs = errors.New("models: too few observations")

	// ErrTooFewGroups indicates fewer than two groups for a comparison or random effect.
	ErrTooFewGroups = errors.New("models: too few groups")

	// ErrDimensionMismatch indicates response, design and grouping lengths differ.
	ErrDimensionMismatch = errors.New("models: dimension mismatch")

	// ErrNotNested indicates a likelihood-ratio test between incompatible fits.
	ErrNotNested = errors.New("models: fits are not nested ML fits")
)
