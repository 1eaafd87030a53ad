package domain

import (
	"fmt"
	"strings"
)

// SearchMode selects how the console looks members up.
type SearchMode string

const (
	ModeByID      SearchMode = "idsae"
	ModeByName    SearchMode = "nombre"
	ModeByTag     SearchMode = "tag"
	ModeSuspended SearchMode = "suspended"
)

// ExactTagLength is the key length from which tag searches switch from a
// prefix match to an exact match.
const ExactTagLength = 7

// SearchForm holds the console's search inputs. Only one mode is populated
// at a time: setting a mode clears the other fields.
type SearchForm struct {
	mode SearchMode
	key  string
}

// Set selects mode with key and discards any previous input.
func (f *SearchForm) Set(mode SearchMode, key string) {
	f.mode = mode
	f.key = key
}

// Clear resets the form.
func (f *SearchForm) Clear() {
	*f = SearchForm{}
}

// Value returns the key for mode, or "" when another mode is active.
func (f SearchForm) Value(mode SearchMode) string {
	if f.mode != mode {
		return ""
	}
	return f.key
}

// Query turns the form into a search query.
func (f SearchForm) Query() SearchQuery {
	return SearchQuery{Mode: f.mode, Key: f.key}
}

// SearchFormFromFields builds a form from the three text inputs of the
// console. More than one populated field is rejected.
func SearchFormFromFields(idsae, name, tag string) (SearchForm, error) {
	var f SearchForm
	set := 0
	for _, in := range []struct {
		mode SearchMode
		val  string
	}{{ModeByID, idsae}, {ModeByName, name}, {ModeByTag, tag}} {
		if strings.TrimSpace(in.val) == "" {
			continue
		}
		set++
		f.Set(in.mode, in.val)
	}
	if set > 1 {
		return SearchForm{}, fmt.Errorf("%w: only one search field may be set", ErrValidation)
	}
	return f, nil
}

// SearchQuery is one dispatcher request. MinVersion, when non-zero, makes
// the dispatcher wait for the suspension registry to cover that version.
type SearchQuery struct {
	Mode       SearchMode
	Key        string
	MinVersion int64
}

// ResultKind tags the variant held by a SearchResult.
type ResultKind string

const (
	ResultNormal        ResultKind = "normal"
	ResultSuspended     ResultKind = "suspended"
	ResultSuspendedList ResultKind = "suspended_list"
)

// SearchResult is one row shown to the operator. Suspension is set exactly
// when Kind is ResultSuspended or ResultSuspendedList.
type SearchResult struct {
	Kind       ResultKind
	Owner      Association
	Credential *Credential // nil when the member holds no credential
	Suspension *SuspensionInfo
}

// DisplayDate is the date the operator sees: the suspension date for
// suspended rows, the membership expiration otherwise.
func (r SearchResult) DisplayDate() string {
	if r.Suspension != nil {
		return r.Suspension.Date
	}
	return r.Owner.Expiration
}

// CredentialKey returns the registry key of the row's credential, or "".
func (r SearchResult) CredentialKey() string {
	if r.Credential == nil {
		return ""
	}
	return r.Credential.Key()
}

// Suspended turns a normal row into the annotated variant.
func (r SearchResult) Suspended(info SuspensionInfo) SearchResult {
	r.Kind = ResultSuspended
	r.Suspension = &info
	return r
}
