package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional transaction handle.
// Repos joined into an aggregate write receive the aggregate's transaction
// here; a nil Tx means the repo runs against the base connection.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}
