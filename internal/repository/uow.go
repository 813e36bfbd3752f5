package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type sqlUnitOfWork struct {
	db *sqlx.DB
}

func NewUnitOfWork(db *sqlx.DB) UnitOfWork {
	return &sqlUnitOfWork{db: db}
}

func (u *sqlUnitOfWork) WithinTx(ctx context.Context, fn func(r Repos) error) error {
	tx, err := u.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	repos := Repos{
		Clients:  NewClientRepository(tx),
		Loans:    NewLoanRepository(tx),
		Payments: NewPaymentRepository(tx),
	}
	if err := fn(repos); err != nil {
		return err
	}

	return tx.Commit()
}
