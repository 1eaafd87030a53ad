package repo

import (
	"context"
	"fmt"

	"github.com/pkordes/tagconsole/internal/domain"
)

// AssociationRepo defines the persistence operations on member rows.
type AssociationRepo interface {
	// GetOwner returns the member's name and formatted address.
	// Returns domain.ErrNotFound if no member has that IDSAE.
	GetOwner(ctx context.Context, idsae int64) (domain.Owner, error)

	// SearchOwners returns members whose name contains name, ignoring case.
	SearchOwners(ctx context.Context, name string) ([]domain.Owner, error)

	// SetValidity overwrites the cached validity flag.
	SetValidity(ctx context.Context, idsae int64, flag domain.ValidityFlag) error

	// RenewExpiration stores a new expiration date and marks the member
	// valid. Returns domain.ErrNotFound if no member has that IDSAE.
	RenewExpiration(ctx context.Context, idsae int64, expiration string) error

	// Ping checks that the store answers a trivial statement.
	Ping(ctx context.Context) error
}

type invokerAssociationRepo struct {
	inv Invoker
}

// NewAssociationRepo constructs an AssociationRepo on inv.
func NewAssociationRepo(inv Invoker) AssociationRepo {
	return &invokerAssociationRepo{inv: inv}
}

func (r *invokerAssociationRepo) GetOwner(ctx context.Context, idsae int64) (domain.Owner, error) {
	const q = `
		SELECT a.idsae, a.nombre, d.calle, d.num_int, d.num_ext
		FROM asociado a
		LEFT JOIN direccion d ON d.idsae = a.idsae
		WHERE a.idsae = $1`

	rows, err := r.inv.Query(ctx, q, idsae)
	if err != nil {
		return domain.Owner{}, fmt.Errorf("repo.AssociationRepo.GetOwner: %w", err)
	}
	if len(rows) == 0 {
		return domain.Owner{}, fmt.Errorf("repo.AssociationRepo.GetOwner: %w", domain.ErrNotFound)
	}
	a := mapAssociation(rows[0])
	return domain.Owner{IDSAE: a.IDSAE, Name: a.Name, Address: a.Address.String()}, nil
}

func (r *invokerAssociationRepo) SearchOwners(ctx context.Context, name string) ([]domain.Owner, error) {
	const q = `
		SELECT idsae, nombre
		FROM asociado
		WHERE nombre ILIKE '%' || $1::text || '%'
		ORDER BY nombre, idsae`

	rows, err := r.inv.Query(ctx, q, name)
	if err != nil {
		return nil, fmt.Errorf("repo.AssociationRepo.SearchOwners: %w", err)
	}
	owners := make([]domain.Owner, 0, len(rows))
	for _, row := range rows {
		owners = append(owners, domain.Owner{IDSAE: row.Int("idsae"), Name: row.String("nombre")})
	}
	return owners, nil
}

func (r *invokerAssociationRepo) SetValidity(ctx context.Context, idsae int64, flag domain.ValidityFlag) error {
	const q = `UPDATE asociado SET valida_vigencia = $1 WHERE idsae = $2`

	if _, err := r.inv.Query(ctx, q, int(flag), idsae); err != nil {
		return fmt.Errorf("repo.AssociationRepo.SetValidity: %w", err)
	}
	return nil
}

func (r *invokerAssociationRepo) RenewExpiration(ctx context.Context, idsae int64, expiration string) error {
	const q = `
		UPDATE asociado
		SET vigencia = $1, valida_vigencia = 0
		WHERE idsae = $2
		RETURNING idsae`

	rows, err := r.inv.Query(ctx, q, expiration, idsae)
	if err != nil {
		return fmt.Errorf("repo.AssociationRepo.RenewExpiration: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("repo.AssociationRepo.RenewExpiration: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *invokerAssociationRepo) Ping(ctx context.Context) error {
	if _, err := r.inv.Query(ctx, `SELECT 1 AS ok`); err != nil {
		return fmt.Errorf("repo.AssociationRepo.Ping: %w", err)
	}
	return nil
}
