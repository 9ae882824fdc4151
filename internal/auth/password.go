package auth

import "github.com/alexedwards/argon2id"

// hashParams calibra o Argon2id para o login do backoffice. Os parâmetros
// ficam embutidos no próprio hash, então podem evoluir sem migração.
var hashParams = &argon2id.Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// Hash gera o hash Argon2id da senha em texto puro.
func Hash(senha string) (string, error) {
	return argon2id.CreateHash(senha, hashParams)
}

// Verify compara a senha informada com o hash armazenado.
func Verify(senha, encodedHash string) (bool, error) {
	return argon2id.ComparePasswordAndHash(senha, encodedHash)
}
