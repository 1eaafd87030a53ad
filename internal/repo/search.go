package repo

import (
	"context"
	"fmt"

	"github.com/pkordes/tagconsole/internal/domain"
)

// SearchRepo runs the console lookups. Every method returns rows of kind
// domain.ResultNormal; reconciliation and suspension annotation happen in
// the service layer.
type SearchRepo interface {
	// ByID returns one row per credential held by the member, or one row
	// with a nil Credential when the member holds none.
	ByID(ctx context.Context, idsae int64) ([]domain.SearchResult, error)

	// ByName matches members whose name contains name, ignoring case.
	ByName(ctx context.Context, name string) ([]domain.SearchResult, error)

	// ByCredential matches tag codes or app identifiers. With exact set the
	// whole value must match; otherwise the first len(key) characters do.
	ByCredential(ctx context.Context, key string, exact bool) ([]domain.SearchResult, error)
}

type invokerSearchRepo struct {
	inv Invoker
}

// NewSearchRepo constructs a SearchRepo on inv.
func NewSearchRepo(inv Invoker) SearchRepo {
	return &invokerSearchRepo{inv: inv}
}

const searchSelect = `
	SELECT a.idsae, a.nombre, a.vigencia, a.valida_vigencia,
	       d.calle, d.num_int, d.num_ext,
	       t.id_tags, t.etiqueta, t.identificador, t.activa, t.tag_nueva
	FROM asociado a
	LEFT JOIN direccion d ON d.idsae = a.idsae
	LEFT JOIN tags t ON t.idsae = a.idsae`

func (r *invokerSearchRepo) ByID(ctx context.Context, idsae int64) ([]domain.SearchResult, error) {
	const q = searchSelect + `
	WHERE a.idsae = $1
	ORDER BY t.id_tags`

	rows, err := r.inv.Query(ctx, q, idsae)
	if err != nil {
		return nil, fmt.Errorf("repo.SearchRepo.ByID: %w", err)
	}
	return mapSearchRows(rows), nil
}

func (r *invokerSearchRepo) ByName(ctx context.Context, name string) ([]domain.SearchResult, error) {
	const q = searchSelect + `
	WHERE a.nombre ILIKE '%' || $1::text || '%'
	ORDER BY a.nombre, a.idsae, t.id_tags`

	rows, err := r.inv.Query(ctx, q, name)
	if err != nil {
		return nil, fmt.Errorf("repo.SearchRepo.ByName: %w", err)
	}
	return mapSearchRows(rows), nil
}

func (r *invokerSearchRepo) ByCredential(ctx context.Context, key string, exact bool) ([]domain.SearchResult, error) {
	const exactQ = searchSelect + `
	WHERE t.etiqueta = $1 OR t.identificador = $1
	ORDER BY a.idsae, t.id_tags`

	const prefixQ = searchSelect + `
	WHERE left(t.etiqueta, char_length($1::text)) = $1::text
	   OR left(t.identificador, char_length($1::text)) = $1::text
	ORDER BY a.idsae, t.id_tags`

	q := prefixQ
	if exact {
		q = exactQ
	}
	rows, err := r.inv.Query(ctx, q, key)
	if err != nil {
		return nil, fmt.Errorf("repo.SearchRepo.ByCredential: %w", err)
	}
	return mapSearchRows(rows), nil
}

func mapSearchRows(rows []Row) []domain.SearchResult {
	out := make([]domain.SearchResult, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.SearchResult{
			Kind:       domain.ResultNormal,
			Owner:      mapAssociation(row),
			Credential: mapCredential(row),
		})
	}
	return out
}

func mapAssociation(row Row) domain.Association {
	return domain.Association{
		IDSAE:      row.Int("idsae"),
		Name:       row.String("nombre"),
		Expiration: row.String("vigencia"),
		Validity:   domain.ValidityFlag(row.Int("valida_vigencia")),
		Address: domain.Address{
			Street:   row.String("calle"),
			Interior: row.String("num_int"),
			Exterior: row.String("num_ext"),
		},
	}
}

// mapCredential returns nil when the row carries no tag columns, which is
// how the LEFT JOIN reports a member without credentials.
func mapCredential(row Row) *domain.Credential {
	if row.IsNull("etiqueta") && row.IsNull("identificador") {
		return nil
	}
	code := row.String("etiqueta")
	return &domain.Credential{
		ID:         row.Int("id_tags"),
		IDSAE:      row.Int("idsae"),
		Kind:       domain.KindFromCode(code),
		Code:       code,
		Identifier: row.String("identificador"),
		Active:     row.Int("activa") == 0,
		Pool:       domain.PoolState(row.Int("tag_nueva")),
		IssuedAt:   row.Time("fecha_alta"),
		UpdatedAt:  row.Time("fecha_actualizacion"),

		IssuanceDocURL:           row.String("doc_alta_tag"),
		CancellationDocURL:       row.String("doc_cancelacion"),
		RemoteCancellationDocURL: row.String("cancelacion_wa"),
	}
}
