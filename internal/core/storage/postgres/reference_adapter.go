package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/orderhub-lab/orderhub-analytics/internal/core/analysis"
	"github.com/orderhub-lab/orderhub-analytics/internal/core/errors"
)

// ReferenceAdapter implements storage.ReferenceStore over the ordering
// platform's product and branch tables. Read-only.
type ReferenceAdapter struct {
	db *sql.DB
}

// NewReferenceAdapter creates a reference resolver sharing the given pool.
func NewReferenceAdapter(db *sql.DB) *ReferenceAdapter {
	return &ReferenceAdapter{db: db}
}

// GetProduct resolves a product by ID. Returns errors.ErrProductNotFound if
// no such product exists.
func (a *ReferenceAdapter) GetProduct(ctx context.Context, id string) (*analysis.Product, error) {
	var p analysis.Product
	err := a.db.QueryRowContext(ctx, queryGetProduct, id).Scan(&p.ID, &p.Name, &p.LifetimeSaleQuantity)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product %s: %w", id, errors.ErrProductNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return &p, nil
}

// GetBranch resolves a branch by ID. Returns errors.ErrBranchNotFound if no
// such branch exists.
func (a *ReferenceAdapter) GetBranch(ctx context.Context, id string) (*analysis.Branch, error) {
	var b analysis.Branch
	err := a.db.QueryRowContext(ctx, queryGetBranch, id).Scan(&b.ID, &b.Name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("branch %s: %w", id, errors.ErrBranchNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get branch %s: %w", id, err)
	}
	return &b, nil
}
