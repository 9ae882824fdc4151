package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrInvalidRefresh sinaliza refresh token desconhecido, expirado ou já rotacionado.
var ErrInvalidRefresh = errors.New("refresh token inválido")

const refreshTokenBytes = 32

// GenerateRefreshToken devolve o token que vai no cookie e o hash que vai no
// Redis. Só o hash é persistido; o valor bruto nunca toca o armazenamento.
func GenerateRefreshToken() (raw string, hashed string, err error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}

	raw = base64.RawURLEncoding.EncodeToString(buf)
	return raw, HashRefreshToken(raw), nil
}

// HashRefreshToken produz o hash SHA-256 do token em base64 URL-safe.
func HashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// RefreshRedisKey monta a chave Redis de uma sessão de refresh.
func RefreshRedisKey(audience, hash string) string {
	return fmt.Sprintf("refresh:%s:%s", audience, hash)
}
