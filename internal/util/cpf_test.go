package util

import (
	"errors"
	"testing"
)

func TestValidateCPF(t *testing.T) {
	tests := []struct {
		name  string
		cpf   string
		valid bool
	}{
		{"valido sem mascara", "52998224725", true},
		{"valido com mascara", "529.982.247-25", true},
		{"digito verificador errado", "52998224724", false},
		{"curto", "1234567890", false},
		{"longo", "123456789012", false},
		{"sequencia repetida", "11111111111", false},
		{"vazio", "", false},
		{"letras", "abc.def.ghi-jk", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateCPF(tc.cpf)
			if tc.valid && err != nil {
				t.Fatalf("esperava válido, veio %v", err)
			}
			if !tc.valid && !errors.Is(err, ErrCPFInvalido) {
				t.Fatalf("esperava ErrCPFInvalido, veio %v", err)
			}
		})
	}
}

func TestNormalizeCPF(t *testing.T) {
	if got := NormalizeCPF("529.982.247-25"); got != "52998224725" {
		t.Fatalf("normalização inesperada: %s", got)
	}
}
