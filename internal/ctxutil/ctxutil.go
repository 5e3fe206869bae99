package ctxutil

import (
	"context"

	"github.com/elsakane2015/classtrack/internal/models"
)

type key int

const keyIdentity key = iota

// WithIdentity stores the already-authorized caller resolved by the identity
// collaborator (trusted headers in this deployment).
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, keyIdentity, id)
}

func Identity(ctx context.Context) (models.Identity, bool) {
	v := ctx.Value(keyIdentity)
	if v == nil {
		return models.Identity{}, false
	}
	id, ok := v.(models.Identity)
	return id, ok
}
