package storage

import (
	"context"
	"errors"
)

// ErrDesabilitado indica que nenhum bucket foi configurado no ambiente.
var ErrDesabilitado = errors.New("storage: armazenamento não configurado")

// UploadInput representa o envio de um arquivo (brasão, logo) ao bucket.
type UploadInput struct {
	Key          string
	Body         []byte
	ContentType  string
	CacheControl string
}

// UploadResult descreve o artefato persistido.
type UploadResult struct {
	URL  string
	ETag string
}

// Uploader define comportamento básico para armazenar blobs.
type Uploader interface {
	Upload(ctx context.Context, input UploadInput) (*UploadResult, error)
}
