package vietqr

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Item is one entry of a transfer description.
type Item struct {
	Name     string
	Size     string
	Quantity int
}

// Describe renders items as "Tra sua (M) x2, Ca phe (S) x1", folded to ASCII
// and cut to at most max characters. max ≤ 0 or above MaxDescriptionLen means
// MaxDescriptionLen.
func Describe(items []Item, max int) string {
	if max <= 0 || max > MaxDescriptionLen {
		max = MaxDescriptionLen
	}
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%s (%s) x%d", it.Name, it.Size, it.Quantity))
	}
	s := Fold(strings.Join(parts, ", "))
	if len(s) > max {
		s = strings.TrimRight(s[:max], " ,")
	}
	return s
}

// Fold strips diacritics and drops anything outside printable ASCII.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case 'đ':
			return 'd'
		case 'Đ':
			return 'D'
		}
		if r < 0x20 || r > 0x7E {
			return -1
		}
		return r
	}, out)
}
