// Package similarity scores how confusable two identifiers are.
package similarity

import (
	"strings"
	"unicode"

	"github.com/xrash/smetrics"
)

// Score is the confusability of two identifiers. Both fields are nil when
// either identifier normalizes to the empty string.
type Score struct {
	EditDistance *int     `json:"edit_distance"`
	Ratio        *float64 `json:"ratio"`
}

// lookalikes folds characters commonly swapped in impersonation handles.
var lookalikes = strings.NewReplacer(
	"0", "o",
	"1", "l",
	"3", "e",
	"5", "s",
	"7", "t",
	"@", "a",
	"$", "s",
)

// NormalizeIdentifier lowercases s, removes whitespace, and folds lookalike
// characters so that "J0hn_D0e" and "john_doe" compare equal.
func NormalizeIdentifier(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
	return lookalikes.Replace(s)
}

// Confusability normalizes both identifiers and returns their edit distance
// and Jaro-Winkler similarity. It is symmetric in its arguments.
func Confusability(a, b string) Score {
	na, nb := NormalizeIdentifier(a), NormalizeIdentifier(b)
	if na == "" || nb == "" {
		return Score{}
	}
	if nb < na {
		na, nb = nb, na
	}
	dist := smetrics.WagnerFischer(na, nb, 1, 1, 1)
	ratio := Ratio(na, nb)
	return Score{EditDistance: &dist, Ratio: &ratio}
}

// Ratio returns the Jaro-Winkler similarity of a and b in [0, 1], without
// normalization. Equal strings score 1 and empty input scores 0.
func Ratio(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	if b < a {
		a, b = b, a
	}
	r := smetrics.JaroWinkler(a, b, 0.7, 4)
	return min(max(r, 0), 1)
}
