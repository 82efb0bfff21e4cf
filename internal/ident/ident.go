// Package ident checks the shape of entity identifiers before they reach the store.
package ident

import (
	"github.com/google/uuid"

	"example.com/tweetfeed/internal/apperr"
)

// canonical hyphenated form, e.g. 9b2f4c1e-5d0a-11ef-8000-0242ac120002
const canonicalLen = 36

// Valid reports whether s is a canonical UUID string. Existence is not checked.
func Valid(s string) bool {
	if len(s) != canonicalLen {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// Validate returns an InvalidInput error naming field when id is empty or malformed.
func Validate(field, id string) error {
	if id == "" {
		return apperr.Invalid(field + " is required")
	}
	if !Valid(id) {
		return apperr.Invalid(field + " is not a valid identifier")
	}
	return nil
}

// Normalize validates id and returns its canonical lower-case form, which is
// how Cassandra renders uuid columns. Ids must be compared only in this form.
func Normalize(field, id string) (string, error) {
	if err := Validate(field, id); err != nil {
		return "", err
	}
	return uuid.MustParse(id).String(), nil
}
