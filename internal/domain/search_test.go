package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tagconsole/internal/domain"
)

func TestSearchForm_SetClearsOtherModes(t *testing.T) {
	var f domain.SearchForm
	f.Set(domain.ModeByID, "100")
	f.Set(domain.ModeByName, "Juan")

	assert.Equal(t, "", f.Value(domain.ModeByID))
	assert.Equal(t, "Juan", f.Value(domain.ModeByName))
	assert.Equal(t, domain.SearchQuery{Mode: domain.ModeByName, Key: "Juan"}, f.Query())

	f.Clear()
	assert.Equal(t, domain.SearchQuery{}, f.Query())
}

func TestSearchFormFromFields(t *testing.T) {
	f, err := domain.SearchFormFromFields("", "", "A1B2")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeByTag, f.Query().Mode)

	f, err = domain.SearchFormFromFields("", "  ", "")
	require.NoError(t, err)
	assert.Equal(t, domain.SearchQuery{}, f.Query())

	_, err = domain.SearchFormFromFields("100", "Juan", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSearchResult_Suspended(t *testing.T) {
	r := domain.SearchResult{
		Kind:       domain.ResultNormal,
		Owner:      domain.Association{IDSAE: 7, Expiration: "31/12/2030"},
		Credential: &domain.Credential{Kind: domain.KindTag, Code: "ABC1234"},
	}
	assert.Equal(t, "31/12/2030", r.DisplayDate())

	s := r.Suspended(domain.SuspensionInfo{EntryID: 3, Reason: "prestado", Date: "01/10/2026"})

	assert.Equal(t, domain.ResultSuspended, s.Kind)
	assert.Equal(t, "01/10/2026", s.DisplayDate())
	assert.Equal(t, domain.ResultNormal, r.Kind, "original row must not change")
}

func TestCredential_Key(t *testing.T) {
	tag := domain.Credential{Kind: domain.KindTag, Code: " ABC1234 ", Identifier: "999"}
	app := domain.Credential{Kind: domain.KindApp, Code: domain.AppLabel, Identifier: "5512345678"}

	assert.Equal(t, "ABC1234", tag.Key())
	assert.Equal(t, "5512345678", app.Key())
	assert.Equal(t, domain.KindApp, domain.KindFromCode("app"))
	assert.Equal(t, domain.KindTag, domain.KindFromCode("ABC1234"))
	assert.Equal(t, "ABC1234", domain.NormalizeKey("  abc1234"))
}
