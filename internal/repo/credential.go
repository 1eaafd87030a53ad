package repo

import (
	"context"
	"fmt"

	"github.com/pkordes/tagconsole/internal/domain"
)

// CredentialRepo defines the writes and pool reads on the tags table.
type CredentialRepo interface {
	// ListAvailable returns the codes of pooled tags in pool order.
	ListAvailable(ctx context.Context) ([]string, error)

	// ActiveHolders returns the IDSAE of every member other than idsae who
	// holds key as an active, non-pooled credential of kind.
	ActiveHolders(ctx context.Context, kind domain.CredentialKind, key string, idsae int64) ([]int64, error)

	// AssignPooledTag binds the pooled tag code to idsae.
	// Returns domain.ErrNotFound if code is not in the pool.
	AssignPooledTag(ctx context.Context, idsae int64, code string) (domain.Credential, error)

	// InsertApp creates an active app credential for idsae.
	InsertApp(ctx context.Context, idsae int64, identifier string) (domain.Credential, error)

	// Deactivate marks the member's credential inactive.
	// Returns domain.ErrNotFound if the member holds no such credential.
	Deactivate(ctx context.Context, idsae int64, kind domain.CredentialKind, key string) error
}

type invokerCredentialRepo struct {
	inv Invoker
}

// NewCredentialRepo constructs a CredentialRepo on inv.
func NewCredentialRepo(inv Invoker) CredentialRepo {
	return &invokerCredentialRepo{inv: inv}
}

func (r *invokerCredentialRepo) ListAvailable(ctx context.Context) ([]string, error) {
	const q = `
		SELECT etiqueta
		FROM tags
		WHERE tag_nueva = 1
		ORDER BY id_tags`

	rows, err := r.inv.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.CredentialRepo.ListAvailable: %w", err)
	}
	codes := make([]string, 0, len(rows))
	for _, row := range rows {
		codes = append(codes, row.String("etiqueta"))
	}
	return codes, nil
}

func (r *invokerCredentialRepo) ActiveHolders(ctx context.Context, kind domain.CredentialKind, key string, idsae int64) ([]int64, error) {
	const tagQ = `
		SELECT DISTINCT idsae
		FROM tags
		WHERE etiqueta = $1::text
		  AND tag_nueva <> 1
		  AND activa = 0
		  AND idsae IS DISTINCT FROM $2::bigint`

	const appQ = `
		SELECT DISTINCT idsae
		FROM tags
		WHERE identificador = $1::text
		  AND activa = 0
		  AND idsae IS DISTINCT FROM $2::bigint`

	q := tagQ
	if kind == domain.KindApp {
		q = appQ
	}
	rows, err := r.inv.Query(ctx, q, key, idsae)
	if err != nil {
		return nil, fmt.Errorf("repo.CredentialRepo.ActiveHolders: %w", err)
	}
	holders := make([]int64, 0, len(rows))
	for _, row := range rows {
		holders = append(holders, row.Int("idsae"))
	}
	return holders, nil
}

const credentialReturning = `
		RETURNING id_tags, idsae, etiqueta, identificador, activa, tag_nueva, fecha_alta`

func (r *invokerCredentialRepo) AssignPooledTag(ctx context.Context, idsae int64, code string) (domain.Credential, error) {
	const q = `
		UPDATE tags
		SET idsae = $1, tag_nueva = 0, activa = 0, fecha_alta = now()
		WHERE etiqueta = $2 AND tag_nueva = 1` + credentialReturning

	rows, err := r.inv.Query(ctx, q, idsae, code)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("repo.CredentialRepo.AssignPooledTag: %w", err)
	}
	if len(rows) == 0 {
		return domain.Credential{}, fmt.Errorf("repo.CredentialRepo.AssignPooledTag: %w", domain.ErrNotFound)
	}
	return *mapCredential(rows[0]), nil
}

func (r *invokerCredentialRepo) InsertApp(ctx context.Context, idsae int64, identifier string) (domain.Credential, error) {
	const q = `
		INSERT INTO tags (idsae, etiqueta, identificador, tag_nueva, activa, fecha_alta)
		VALUES ($1, 'APP', $2, 2, 0, now())` + credentialReturning

	rows, err := r.inv.Query(ctx, q, idsae, identifier)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("repo.CredentialRepo.InsertApp: %w", err)
	}
	if len(rows) == 0 {
		return domain.Credential{}, fmt.Errorf("repo.CredentialRepo.InsertApp: no row returned")
	}
	return *mapCredential(rows[0]), nil
}

func (r *invokerCredentialRepo) Deactivate(ctx context.Context, idsae int64, kind domain.CredentialKind, key string) error {
	const tagQ = `
		UPDATE tags SET activa = 1
		WHERE idsae = $1 AND etiqueta = $2
		RETURNING id_tags`

	const appQ = `
		UPDATE tags SET activa = 1
		WHERE idsae = $1 AND identificador = $2
		RETURNING id_tags`

	q := tagQ
	if kind == domain.KindApp {
		q = appQ
	}
	rows, err := r.inv.Query(ctx, q, idsae, key)
	if err != nil {
		return fmt.Errorf("repo.CredentialRepo.Deactivate: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("repo.CredentialRepo.Deactivate: %w", domain.ErrNotFound)
	}
	return nil
}
