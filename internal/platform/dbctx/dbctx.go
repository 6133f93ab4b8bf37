package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// From wraps a plain context with no transaction.
func From(ctx context.Context) Context {
	return Context{Ctx: ctx}
}

// Conn returns dbc.Tx when set, otherwise fallback, bound to dbc.Ctx.
func (dbc Context) Conn(fallback *gorm.DB) *gorm.DB {
	tx := dbc.Tx
	if tx == nil {
		tx = fallback
	}
	ctx := dbc.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return tx.WithContext(ctx)
}
