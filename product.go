package pbo

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/meigma/pbo/internal/header"
)

// ProductPair is a key and value formed from two consecutive product
// entries.
type ProductPair struct {
	Key   string
	Value string
}

// AddProductEntry appends a raw product metadata string. The value must be
// non-empty valid UTF-8 free of NUL bytes, since an empty string ends the
// product block on disk.
func (a *Archive) AddProductEntry(value string) error {
	if err := validateProduct(value); err != nil {
		return err
	}
	a.products = append(a.products, value)
	return nil
}

func validateProduct(value string) error {
	switch {
	case value == "":
		return fmt.Errorf("%w: empty product entry", ErrInvalidOperation)
	case strings.IndexByte(value, 0) >= 0, len(value) > header.MaxStringLen:
		return fmt.Errorf("%w: invalid product entry %q", ErrInvalidOperation, value)
	case !utf8.ValidString(value):
		return fmt.Errorf("%w: product entry %q is not valid UTF-8", ErrInvalidOperation, value)
	}
	return nil
}

// AddProductPair appends key and value as two product entries.
func (a *Archive) AddProductPair(key, value string) error {
	if err := a.AddProductEntry(key); err != nil {
		return err
	}
	if err := a.AddProductEntry(value); err != nil {
		a.products = a.products[:len(a.products)-1]
		return err
	}
	return nil
}

// SetProductPair replaces the value of the first pair whose key matches
// key case-insensitively, or appends a new pair.
func (a *Archive) SetProductPair(key, value string) error {
	for i := 0; i+1 < len(a.products); i += 2 {
		if strings.EqualFold(a.products[i], key) {
			if err := validateProduct(value); err != nil {
				return err
			}
			a.products[i+1] = value
			return nil
		}
	}
	return a.AddProductPair(key, value)
}

// ProductEntries returns a copy of the raw product metadata strings.
func (a *Archive) ProductEntries() []string {
	return append([]string(nil), a.products...)
}

// ProductPairs groups product entries into pairs by position. A trailing
// unpaired entry is ignored.
func (a *Archive) ProductPairs() []ProductPair {
	pairs := make([]ProductPair, 0, len(a.products)/2)
	for i := 0; i+1 < len(a.products); i += 2 {
		pairs = append(pairs, ProductPair{Key: a.products[i], Value: a.products[i+1]})
	}
	return pairs
}

// FindProductEntry returns the value of the first pair whose key matches
// key case-insensitively.
func (a *Archive) FindProductEntry(key string) (string, bool) {
	for i := 0; i+1 < len(a.products); i += 2 {
		if strings.EqualFold(a.products[i], key) {
			return a.products[i+1], true
		}
	}
	return "", false
}
