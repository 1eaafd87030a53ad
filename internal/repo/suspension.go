package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/pkordes/tagconsole/internal/domain"
)

// ErrAlreadySuspended is returned by SuspensionRepo.Insert when the
// credential value is already in the misuse log.
var ErrAlreadySuspended = errors.New("credential already suspended")

// SuspensionRepo defines the persistence operations on the misuse log.
type SuspensionRepo interface {
	// List returns every entry ordered by ID ascending.
	List(ctx context.Context) ([]domain.SuspensionEntry, error)

	// Insert appends an entry with ID = max(ID)+1, or 1 when the log is
	// empty. The ID is computed by the same statement that inserts the row.
	// Returns ErrAlreadySuspended if entry.Credential is already logged.
	Insert(ctx context.Context, entry domain.SuspensionEntry) (domain.SuspensionEntry, error)

	// ListSuspended returns the log left-joined to the tag table, newest
	// entry first, as ResultSuspendedList rows.
	ListSuspended(ctx context.Context) ([]domain.SearchResult, error)
}

type invokerSuspensionRepo struct {
	inv Invoker
}

// NewSuspensionRepo constructs a SuspensionRepo on inv.
func NewSuspensionRepo(inv Invoker) SuspensionRepo {
	return &invokerSuspensionRepo{inv: inv}
}

func (r *invokerSuspensionRepo) List(ctx context.Context) ([]domain.SuspensionEntry, error) {
	const q = `
		SELECT id_bitacora, idsae, tag, fecha_bitacora, comentario
		FROM bitacora_mal_uso
		ORDER BY id_bitacora`

	rows, err := r.inv.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.SuspensionRepo.List: %w", err)
	}
	entries := make([]domain.SuspensionEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, mapSuspensionEntry(row))
	}
	return entries, nil
}

// Insert relies on HAVING without GROUP BY: the aggregate yields exactly one
// row when the credential is not yet logged and none when it is, so the
// duplicate check and the ID computation happen in one statement.
func (r *invokerSuspensionRepo) Insert(ctx context.Context, entry domain.SuspensionEntry) (domain.SuspensionEntry, error) {
	const q = `
		INSERT INTO bitacora_mal_uso (id_bitacora, idsae, tag, fecha_bitacora, comentario)
		SELECT COALESCE(MAX(id_bitacora), 0) + 1, $1::bigint, $2::text, $3::text, $4::text
		FROM bitacora_mal_uso
		HAVING NOT EXISTS (SELECT 1 FROM bitacora_mal_uso WHERE upper(tag) = upper($2::text))
		RETURNING id_bitacora, idsae, tag, fecha_bitacora, comentario`

	rows, err := r.inv.Query(ctx, q, entry.IDSAE, entry.Credential, entry.Date, entry.Reason)
	if err != nil {
		return domain.SuspensionEntry{}, fmt.Errorf("repo.SuspensionRepo.Insert: %w", err)
	}
	if len(rows) == 0 {
		return domain.SuspensionEntry{}, fmt.Errorf("repo.SuspensionRepo.Insert: %w", ErrAlreadySuspended)
	}
	return mapSuspensionEntry(rows[0]), nil
}

func (r *invokerSuspensionRepo) ListSuspended(ctx context.Context) ([]domain.SearchResult, error) {
	const q = `
		SELECT DISTINCT b.id_bitacora, b.idsae, b.tag AS suspended_tag, b.comentario,
		       b.fecha_bitacora, t.id_tags, t.etiqueta, t.identificador, t.activa, t.tag_nueva
		FROM bitacora_mal_uso b
		LEFT JOIN tags t ON b.tag = t.identificador OR b.tag = t.etiqueta
		ORDER BY b.id_bitacora DESC`

	rows, err := r.inv.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.SuspensionRepo.ListSuspended: %w", err)
	}

	out := make([]domain.SearchResult, 0, len(rows))
	for _, row := range rows {
		cred := mapCredential(row)
		if cred == nil {
			// The logged value no longer matches any tag row.
			tag := row.String("suspended_tag")
			cred = &domain.Credential{IDSAE: row.Int("idsae"), Kind: domain.KindTag, Code: tag}
		}
		out = append(out, domain.SearchResult{
			Kind:       domain.ResultSuspendedList,
			Owner:      domain.Association{IDSAE: row.Int("idsae")},
			Credential: cred,
			Suspension: &domain.SuspensionInfo{
				EntryID: row.Int("id_bitacora"),
				Reason:  row.String("comentario"),
				Date:    row.String("fecha_bitacora"),
			},
		})
	}
	return out, nil
}

func mapSuspensionEntry(row Row) domain.SuspensionEntry {
	return domain.SuspensionEntry{
		ID:         row.Int("id_bitacora"),
		IDSAE:      row.Int("idsae"),
		Credential: row.String("tag"),
		Date:       row.String("fecha_bitacora"),
		Reason:     row.String("comentario"),
	}
}
