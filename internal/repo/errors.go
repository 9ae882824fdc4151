package repo

import "errors"

// ErrNotFound é devolvido quando a consulta não encontra o registro pedido,
// inclusive quando ele existe mas pertence a outra prefeitura.
var ErrNotFound = errors.New("registro não encontrado")
