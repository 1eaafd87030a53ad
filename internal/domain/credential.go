package domain

import (
	"fmt"
	"strings"
	"time"
)

// CredentialKind distinguishes physical RFID tags from app identifiers.
type CredentialKind string

const (
	KindTag CredentialKind = "TAG"
	KindApp CredentialKind = "APP"
)

// AppLabel is the tag-code value stored on app credential rows.
const AppLabel = "APP"

// ParseCredentialKind accepts "TAG" or "APP" in any case.
func ParseCredentialKind(s string) (CredentialKind, error) {
	switch CredentialKind(strings.ToUpper(strings.TrimSpace(s))) {
	case KindTag:
		return KindTag, nil
	case KindApp:
		return KindApp, nil
	}
	return "", fmt.Errorf("%w: unknown credential kind %q", ErrValidation, s)
}

// PoolState mirrors the tag_nueva column.
type PoolState int

const (
	PoolAssignedTag PoolState = 0
	PoolAvailable   PoolState = 1
	PoolApp         PoolState = 2
)

// Credential is one row of the tag table: either a physical tag or an app
// identifier bound to a member.
type Credential struct {
	ID         int64
	IDSAE      int64 // zero while the tag sits in the pool
	Kind       CredentialKind
	Code       string // tag code; AppLabel for app rows
	Identifier string
	Active     bool
	Pool       PoolState
	IssuedAt   *time.Time
	UpdatedAt  *time.Time

	IssuanceDocURL           string
	CancellationDocURL       string
	RemoteCancellationDocURL string
}

// Key is the value that identifies the credential to the suspension
// registry: the identifier for apps, the tag code otherwise.
func (c Credential) Key() string {
	return CredentialKey(c.Kind, c.Code, c.Identifier)
}

// CredentialKey picks the identifying value for kind.
func CredentialKey(kind CredentialKind, code, identifier string) string {
	if kind == KindApp {
		return strings.TrimSpace(identifier)
	}
	return strings.TrimSpace(code)
}

// KindFromCode classifies a stored tag-code value.
func KindFromCode(code string) CredentialKind {
	if strings.EqualFold(strings.TrimSpace(code), AppLabel) {
		return KindApp
	}
	return KindTag
}

// NormalizeKey is the canonical form used to compare credential values
// across rows and suspension entries.
func NormalizeKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
