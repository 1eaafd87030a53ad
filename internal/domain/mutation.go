package domain

// AssignRequest binds a tag or app identifier to a member.
type AssignRequest struct {
	IDSAE      int64
	OwnerName  string
	Address    string
	Kind       CredentialKind
	Code       string // tag code, for KindTag
	Identifier string // app identifier, for KindApp
	Photos     IdentityPhotos
	Signature  *Image
}

// Key returns the credential value being assigned.
func (r AssignRequest) Key() string {
	return CredentialKey(r.Kind, r.Code, r.Identifier)
}

// Assignment is the result of a successful assign. Receipt is nil when the
// issuance document could not be produced.
type Assignment struct {
	Credential Credential
	Receipt    *Receipt
}

// DeactivateRequest deactivates ("baja") a credential and produces the
// cancellation document.
type DeactivateRequest struct {
	IDSAE      int64
	OwnerName  string
	Address    string
	Kind       CredentialKind
	Code       string
	Identifier string
	Mode       CancellationMode
	Photos     IdentityPhotos
	Signature  *Image
}

// Key returns the credential value being deactivated.
func (r DeactivateRequest) Key() string {
	return CredentialKey(r.Kind, r.Code, r.Identifier)
}

// PaymentRequest renews a member's expiration date.
type PaymentRequest struct {
	IDSAE      int64
	OwnerName  string
	Expiration string
}
