package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var validCPFs = []string{
	"11144477735",
	"52998224725",
	"12345678909",
	"39053344705",
	"98765432100",
	"00000000191",
}

func TestValidCPF_Accepts(t *testing.T) {
	for _, cpf := range validCPFs {
		assert.True(t, ValidCPF(cpf), "expected %s to be valid", cpf)
	}
}

func TestValidCPF_FlippedCheckDigit(t *testing.T) {
	for _, cpf := range validCPFs {
		last := cpf[10] - '0'
		for delta := byte(1); delta < 10; delta++ {
			flipped := cpf[:10] + string('0'+(last+delta)%10)
			assert.False(t, ValidCPF(flipped), "expected %s to be rejected", flipped)
		}
	}
}

func TestValidCPF_FlippedFirstCheckDigit(t *testing.T) {
	for _, cpf := range validCPFs {
		d := cpf[9] - '0'
		flipped := cpf[:9] + string('0'+(d+1)%10) + cpf[10:]
		assert.False(t, ValidCPF(flipped), "expected %s to be rejected", flipped)
	}
}

func TestValidCPF_Rejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"too short", "1114447773"},
		{"too long", "111444777350"},
		{"formatted", "111.444.777-35"},
		{"letters", "1114447773a"},
		{"all zeros", "00000000000"},
		{"all ones", "11111111111"},
		{"all nines", "99999999999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, ValidCPF(tt.in))
		})
	}
}

func TestDigitsOnly(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"529.982.247-25", "52998224725"},
		{"52998224725", "52998224725"},
		{" 111 444 777 35 ", "11144477735"},
		{"abc", ""},
		{"", ""},
		{"١٢٣", ""}, // non-ASCII digits are dropped
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DigitsOnly(tt.in), "DigitsOnly(%q)", tt.in)
	}
}
