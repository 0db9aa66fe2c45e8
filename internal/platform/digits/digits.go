// Package digits converts Persian and Arabic-Indic digits to ASCII digits.
package digits

import (
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

const (
	persianZero     = '۰'
	arabicIndicZero = '٠'
)

// latin maps a Persian or Arabic-Indic digit to its ASCII counterpart.
var latin = runes.Map(func(r rune) rune {
	switch {
	case r >= persianZero && r <= persianZero+9:
		return '0' + (r - persianZero)
	case r >= arabicIndicZero && r <= arabicIndicZero+9:
		return '0' + (r - arabicIndicZero)
	default:
		return r
	}
})

// Normalize returns s with every Persian and Arabic-Indic digit replaced by
// the ASCII digit of the same value. Other runes are left unchanged.
func Normalize(s string) string {
	out, _, err := transform.String(latin, s)
	if err != nil {
		return s
	}
	return out
}
