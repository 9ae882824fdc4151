package storage

import "context"

// NoopUploader é usado quando o ambiente não define credenciais de bucket.
// O upload de logo responde erro em vez de gravar em lugar nenhum.
type NoopUploader struct{}

func (NoopUploader) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	return nil, ErrDesabilitado
}
