package core

import "strings"

// CPFLength is the number of digits in a Brazilian CPF.
const CPFLength = 11

// DigitsOnly removes every character that is not an ASCII decimal digit.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidCPF reports whether s is an 11-digit CPF with correct check digits.
// Sequences of one repeated digit are rejected even though their check
// digits work out.
func ValidCPF(s string) bool {
	if len(s) != CPFLength {
		return false
	}

	var d [CPFLength]int
	for i := 0; i < CPFLength; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		d[i] = int(c - '0')
	}

	repeated := true
	for i := 1; i < CPFLength; i++ {
		if d[i] != d[0] {
			repeated = false
			break
		}
	}
	if repeated {
		return false
	}

	return checkDigit(d[:9]) == d[9] && checkDigit(d[:10]) == d[10]
}

// checkDigit computes the next CPF check digit. Weights run from
// len(digits)+1 down to 2.
func checkDigit(digits []int) int {
	sum := 0
	weight := len(digits) + 1
	for _, v := range digits {
		sum += v * weight
		weight--
	}
	r := sum % 11
	if r < 2 {
		return 0
	}
	return 11 - r
}
