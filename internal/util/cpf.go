package util

import (
	"errors"
	"strings"
)

var (
	// ErrCPFInvalido indica CPF com formato ou dígitos verificadores inválidos.
	ErrCPFInvalido = errors.New("cpf inválido")
)

// NormalizeCPF remove máscara (pontos e hífen) e devolve apenas dígitos.
func NormalizeCPF(cpf string) string {
	var b strings.Builder
	for _, r := range cpf {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateCPF valida os dois dígitos verificadores do CPF.
// Aceita com ou sem máscara; sequências repetidas (000..., 111...) são rejeitadas.
func ValidateCPF(cpf string) error {
	digits := NormalizeCPF(cpf)
	if len(digits) != 11 {
		return ErrCPFInvalido
	}

	repeated := true
	for i := 1; i < 11; i++ {
		if digits[i] != digits[0] {
			repeated = false
			break
		}
	}
	if repeated {
		return ErrCPFInvalido
	}

	if int(digits[9]-'0') != cpfCheckDigit(digits, 9) {
		return ErrCPFInvalido
	}
	if int(digits[10]-'0') != cpfCheckDigit(digits, 10) {
		return ErrCPFInvalido
	}
	return nil
}

func cpfCheckDigit(digits string, length int) int {
	sum := 0
	for i := 0; i < length; i++ {
		sum += int(digits[i]-'0') * (length + 1 - i)
	}
	rest := (sum * 10) % 11
	if rest == 10 {
		rest = 0
	}
	return rest
}
