package digits

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Normalize(t *testing.T) {
	testCases := []struct {
		name     string
		in       string
		expected string
	}{
		{name: "persian digits", in: "۰۱۲۳۴۵۶۷۸۹", expected: "0123456789"},
		{name: "arabic-indic digits", in: "٠١٢٣٤٥٦٧٨٩", expected: "0123456789"},
		{name: "mixed text", in: "قیمت ۱۲۵۰۰ Toman", expected: "قیمت 12500 Toman"},
		{name: "date", in: "۱۴۰۳/۰۱/۰۵", expected: "1403/01/05"},
		{name: "ascii untouched", in: "Pen 42.5", expected: "Pen 42.5"},
		{name: "empty", in: "", expected: ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Normalize(tc.in))
		})
	}
}
