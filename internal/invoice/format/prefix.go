package format

import (
	"strings"
	"unicode"

	"github.com/gosimple/slug"
)

const (
	DefaultPrefixLength   = 4
	DefaultFallbackPrefix = "CUST"
)

// PrefixRule derives the customer code placed at the front of a number.
type PrefixRule struct {
	Length   int
	Fallback string
}

var DefaultPrefixRule = PrefixRule{Length: DefaultPrefixLength, Fallback: DefaultFallbackPrefix}

// Derive transliterates name to ASCII, keeps its letters, upper-cases them
// and takes the first Length. A name without letters yields Fallback.
func (r PrefixRule) Derive(name string) string {
	length := r.Length
	if length <= 0 {
		length = DefaultPrefixLength
	}
	fallback := r.Fallback
	if fallback == "" {
		fallback = DefaultFallbackPrefix
	}

	letters := strings.Map(func(c rune) rune {
		if unicode.IsLetter(c) {
			return c
		}
		return ' '
	}, strings.TrimSpace(name))

	var b strings.Builder
	for _, c := range slug.Make(letters) {
		if c >= 'a' && c <= 'z' {
			b.WriteRune(c - 'a' + 'A')
			if b.Len() == length {
				break
			}
		}
	}
	if b.Len() == 0 {
		return fallback
	}
	return b.String()
}

// Relabel swaps the prefix segment of number for one derived from name.
// Anything other than three hyphen-separated segments is returned unchanged.
func (r PrefixRule) Relabel(number, name string) string {
	parts := strings.Split(number, "-")
	if len(parts) != 3 {
		return number
	}
	parts[0] = r.Derive(name)
	return strings.Join(parts, "-")
}

func DerivePrefix(name string) string {
	return DefaultPrefixRule.Derive(name)
}

// UpdatePrefix relabels number for a new customer name. It never allocates.
func UpdatePrefix(number, name string) string {
	return DefaultPrefixRule.Relabel(number, name)
}
