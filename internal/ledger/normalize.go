package ledger

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripDiacritics = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// NormalizeName folds a display name for matching: diacritics removed,
// lower-cased, inner whitespace collapsed. Producer and counterparty
// names come from imports with inconsistent accenting, so every name
// comparison goes through this.
func NormalizeName(s string) string {
	out, _, err := transform.String(stripDiacritics, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// OnlyDigits strips everything but digits from a tax identifier.
func OnlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidCNPJ reports whether the 14-digit CNPJ check digits verify.
func ValidCNPJ(cnpj string) bool {
	nums := OnlyDigits(cnpj)
	if len(nums) != 14 || allSame(nums) {
		return false
	}
	d1 := cnpjDigit(nums[:12], []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2})
	d2 := cnpjDigit(nums[:12]+d1, []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2})
	return strings.HasSuffix(nums, d1+d2)
}

// ValidCPF reports whether the 11-digit CPF check digits verify.
func ValidCPF(cpf string) bool {
	nums := OnlyDigits(cpf)
	if len(nums) != 11 || allSame(nums) {
		return false
	}
	w1 := []int{10, 9, 8, 7, 6, 5, 4, 3, 2}
	w2 := []int{11, 10, 9, 8, 7, 6, 5, 4, 3, 2}
	d1 := cnpjDigit(nums[:9], w1)
	d2 := cnpjDigit(nums[:9]+d1, w2)
	return strings.HasSuffix(nums, d1+d2)
}

func cnpjDigit(base string, weights []int) string {
	sum := 0
	for i, r := range base {
		sum += int(r-'0') * weights[i]
	}
	rest := sum % 11
	if rest < 2 {
		return "0"
	}
	return string(rune('0' + 11 - rest))
}

func allSame(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}
