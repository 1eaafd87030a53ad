package repo_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tagconsole/internal/domain"
	"github.com/pkordes/tagconsole/internal/repo"
)

func TestSearchRepo_ByCredential_ExactVsPrefix(t *testing.T) {
	inv := respond()
	r := repo.NewSearchRepo(inv)

	_, err := r.ByCredential(context.Background(), "ABC1234", true)
	require.NoError(t, err)
	_, err = r.ByCredential(context.Background(), "ABC", false)
	require.NoError(t, err)

	require.Len(t, inv.calls, 2)
	assert.Contains(t, inv.calls[0].query, "t.etiqueta = $1 OR t.identificador = $1")
	assert.NotContains(t, inv.calls[0].query, "left(")
	assert.Contains(t, inv.calls[1].query, "left(t.etiqueta, char_length($1::text))")
	assert.Contains(t, inv.calls[1].query, "left(t.identificador, char_length($1::text))")
	assert.NotContains(t, inv.calls[1].query, "substring(", "short keys match by prefix only")
	assert.Equal(t, []any{"ABC"}, inv.calls[1].params)
}

func TestSearchRepo_MapsRows(t *testing.T) {
	inv := respond([]repo.Row{
		{
			"idsae": int64(100), "nombre": "Juan Pérez", "vigencia": "31/12/2030", "valida_vigencia": int16(1),
			"calle": "Av. Central", "num_int": nil, "num_ext": "12",
			"id_tags": int64(9), "etiqueta": "ABC1234", "identificador": nil, "activa": int16(0), "tag_nueva": int16(0),
		},
		{
			// JSON-decoded row from the gateway.
			"idsae": json.Number("100"), "nombre": "Juan Pérez", "vigencia": "31/12/2030", "valida_vigencia": json.Number("1"),
			"id_tags": json.Number("10"), "etiqueta": "APP", "identificador": "5512345678", "activa": json.Number("1"), "tag_nueva": json.Number("2"),
		},
		{
			"idsae": int64(101), "nombre": "Sin Tag", "vigencia": "", "valida_vigencia": int16(0),
			"etiqueta": nil, "identificador": nil,
		},
	})

	got, err := repo.NewSearchRepo(inv).ByID(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, domain.ResultNormal, got[0].Kind)
	assert.Equal(t, int64(100), got[0].Owner.IDSAE)
	assert.Equal(t, domain.Expired, got[0].Owner.Validity)
	assert.Equal(t, "Av. Central, 12", got[0].Owner.Address.String())
	require.NotNil(t, got[0].Credential)
	assert.Equal(t, domain.KindTag, got[0].Credential.Kind)
	assert.True(t, got[0].Credential.Active)

	require.NotNil(t, got[1].Credential)
	assert.Equal(t, domain.KindApp, got[1].Credential.Kind)
	assert.Equal(t, "5512345678", got[1].Credential.Key())
	assert.False(t, got[1].Credential.Active)
	assert.Equal(t, domain.PoolApp, got[1].Credential.Pool)

	assert.Nil(t, got[2].Credential)
	assert.Equal(t, []any{int64(100)}, inv.calls[0].params)
}

func TestSearchRepo_PropagatesInvokerErrors(t *testing.T) {
	remote := &domain.RemoteExecutionError{Message: "relation \"asociado\" does not exist"}
	r := repo.NewSearchRepo(&fakeInvoker{err: remote})

	_, err := r.ByName(context.Background(), "juan")

	var re *domain.RemoteExecutionError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, remote.Message, re.Message)
}
