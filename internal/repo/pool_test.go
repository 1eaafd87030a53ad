package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tagconsole/internal/domain"
	"github.com/pkordes/tagconsole/internal/repo"
	"github.com/pkordes/tagconsole/testutil"
)

// newTestInvoker opens a transaction against the test database and returns
// a PoolInvoker on it. The transaction is rolled back when the test ends.
func newTestInvoker(t *testing.T) *repo.PoolInvoker {
	t.Helper()
	inv := repo.NewPoolInvoker(testutil.NewTx(t))
	_, err := inv.Query(context.Background(), `TRUNCATE bitacora_mal_uso, tags, direccion, asociado`)
	require.NoError(t, err)
	return inv
}

func seedMember(t *testing.T, inv repo.Invoker, idsae int64, name, vigencia string) {
	t.Helper()
	ctx := context.Background()
	_, err := inv.Query(ctx, `INSERT INTO asociado (idsae, nombre, vigencia, valida_vigencia) VALUES ($1, $2, $3, 0)`, idsae, name, vigencia)
	require.NoError(t, err)
	_, err = inv.Query(ctx, `INSERT INTO direccion (idsae, calle, num_int, num_ext) VALUES ($1, 'Roble', '', '4')`, idsae)
	require.NoError(t, err)
}

func seedTag(t *testing.T, inv repo.Invoker, idsae *int64, code string, pool domain.PoolState) {
	t.Helper()
	_, err := inv.Query(context.Background(),
		`INSERT INTO tags (idsae, etiqueta, tag_nueva, activa) VALUES ($1, $2, $3, 0)`, idsae, code, int(pool))
	require.NoError(t, err)
}

func TestPoolInvoker_SuspensionSequence(t *testing.T) {
	inv := newTestInvoker(t)
	r := repo.NewSuspensionRepo(inv)
	ctx := context.Background()

	first, err := r.Insert(ctx, domain.SuspensionEntry{IDSAE: 1, Credential: "AAA0001", Date: "18/10/2026", Reason: "prestado"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID, "empty log starts at 1")

	_, err = inv.Query(ctx, `INSERT INTO bitacora_mal_uso VALUES (5, 2, 'BBB0002', '01/01/2026', 'x')`)
	require.NoError(t, err)

	next, err := r.Insert(ctx, domain.SuspensionEntry{IDSAE: 3, Credential: "CCC0003", Date: "18/10/2026", Reason: "clonado"})
	require.NoError(t, err)
	assert.Equal(t, int64(6), next.ID, "max 5 gives 6")

	_, err = r.Insert(ctx, domain.SuspensionEntry{IDSAE: 3, Credential: "ccc0003", Date: "18/10/2026", Reason: "otra vez"})
	assert.ErrorIs(t, err, repo.ErrAlreadySuspended)

	entries, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestPoolInvoker_SearchByCredential(t *testing.T) {
	inv := newTestInvoker(t)
	ctx := context.Background()
	owner := int64(100)
	seedMember(t, inv, owner, "Juan Pérez", "31/12/2030")
	seedTag(t, inv, &owner, "ABC1234", domain.PoolAssignedTag)
	seedTag(t, inv, &owner, "XYZ9999", domain.PoolAssignedTag)

	r := repo.NewSearchRepo(inv)

	got, err := r.ByCredential(ctx, "ABC", false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ABC1234", got[0].Credential.Code)
	assert.Equal(t, "Roble, 4", got[0].Owner.Address.String())

	got, err = r.ByCredential(ctx, "ABC1234", true)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = r.ByName(ctx, "pérez")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestPoolInvoker_AssignFromPool(t *testing.T) {
	inv := newTestInvoker(t)
	ctx := context.Background()
	seedMember(t, inv, 100, "Juan Pérez", "31/12/2030")
	seedTag(t, inv, nil, "NEW0001", domain.PoolAvailable)

	r := repo.NewCredentialRepo(inv)

	avail, err := r.ListAvailable(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"NEW0001"}, avail)

	cred, err := r.AssignPooledTag(ctx, 100, "NEW0001")
	require.NoError(t, err)
	assert.Equal(t, int64(100), cred.IDSAE)
	assert.Equal(t, domain.PoolAssignedTag, cred.Pool)

	avail, err = r.ListAvailable(ctx)
	require.NoError(t, err)
	assert.Empty(t, avail)

	holders, err := r.ActiveHolders(ctx, domain.KindTag, "NEW0001", 200)
	require.NoError(t, err)
	assert.Equal(t, []int64{100}, holders)
}
