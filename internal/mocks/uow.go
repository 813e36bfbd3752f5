package mocks

import (
	"context"

	"github.com/segyhp/loan-settlement/internal/repository"
)

// UnitOfWork is a function-backed repository.UnitOfWork. A nil WithinTxFn
// runs fn directly against Repos.
type UnitOfWork struct {
	Repos      repository.Repos
	WithinTxFn func(ctx context.Context, fn func(r repository.Repos) error) error
	Calls      int
}

func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(r repository.Repos) error) error {
	u.Calls++
	if u.WithinTxFn != nil {
		return u.WithinTxFn(ctx, fn)
	}
	return fn(u.Repos)
}
