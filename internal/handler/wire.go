package handler

import (
	"fmt"
	"time"

	"github.com/pkordes/tagconsole/internal/domain"
)

// ---- responses -------------------------------------------------------------

// CredentialJSON is one tag or app row.
type CredentialJSON struct {
	ID                       int64      `json:"id"`
	Kind                     string     `json:"kind"`
	Etiqueta                 string     `json:"etiqueta"`
	Identificador            string     `json:"identificador,omitempty"`
	Active                   bool       `json:"active"`
	Pool                     int        `json:"tagNueva"`
	IssuedAt                 *time.Time `json:"fechaAlta,omitempty"`
	UpdatedAt                *time.Time `json:"fechaActualizacion,omitempty"`
	IssuanceDocURL           string     `json:"docAltaTag,omitempty"`
	CancellationDocURL       string     `json:"docCancelacion,omitempty"`
	RemoteCancellationDocURL string     `json:"cancelacionWa,omitempty"`
}

// SuspensionJSON is the misuse entry attached to a suspended row.
type SuspensionJSON struct {
	EntryID int64  `json:"entryId"`
	Reason  string `json:"reason"`
	Date    string `json:"date"`
}

// SearchResultJSON is one row of a console result table.
type SearchResultJSON struct {
	Kind        string          `json:"kind"`
	IDSAE       int64           `json:"idsae"`
	Nombre      string          `json:"nombre"`
	Direccion   string          `json:"direccion"`
	Vigencia    string          `json:"vigencia"`
	Validity    int             `json:"validaVigencia"`
	Valid       bool            `json:"valid"`
	DisplayDate string          `json:"displayDate"`
	Credential  *CredentialJSON `json:"credential"`
	Suspension  *SuspensionJSON `json:"suspension"`
}

// OwnerJSON is a member in an owner picker.
type OwnerJSON struct {
	IDSAE     int64  `json:"idsae"`
	Nombre    string `json:"nombre"`
	Direccion string `json:"direccion"`
}

// ReceiptJSON is a stored document.
type ReceiptJSON struct {
	ID  string `json:"id"`
	Key string `json:"key"`
	URL string `json:"url"`
}

func toCredentialJSON(c *domain.Credential) *CredentialJSON {
	if c == nil {
		return nil
	}
	return &CredentialJSON{
		ID:                       c.ID,
		Kind:                     string(c.Kind),
		Etiqueta:                 c.Code,
		Identificador:            c.Identifier,
		Active:                   c.Active,
		Pool:                     int(c.Pool),
		IssuedAt:                 c.IssuedAt,
		UpdatedAt:                c.UpdatedAt,
		IssuanceDocURL:           c.IssuanceDocURL,
		CancellationDocURL:       c.CancellationDocURL,
		RemoteCancellationDocURL: c.RemoteCancellationDocURL,
	}
}

func toSearchResultJSON(r domain.SearchResult) SearchResultJSON {
	out := SearchResultJSON{
		Kind:        string(r.Kind),
		IDSAE:       r.Owner.IDSAE,
		Nombre:      r.Owner.Name,
		Direccion:   r.Owner.Address.String(),
		Vigencia:    r.Owner.Expiration,
		Validity:    int(r.Owner.Validity),
		Valid:       r.Owner.Validity == domain.Valid,
		DisplayDate: r.DisplayDate(),
		Credential:  toCredentialJSON(r.Credential),
	}
	if r.Suspension != nil {
		out.Suspension = &SuspensionJSON{EntryID: r.Suspension.EntryID, Reason: r.Suspension.Reason, Date: r.Suspension.Date}
	}
	return out
}

func toSearchResultsJSON(rows []domain.SearchResult) []SearchResultJSON {
	out := make([]SearchResultJSON, 0, len(rows))
	for _, r := range rows {
		out = append(out, toSearchResultJSON(r))
	}
	return out
}

func toOwnerJSON(o domain.Owner) OwnerJSON {
	return OwnerJSON{IDSAE: o.IDSAE, Nombre: o.Name, Direccion: o.Address}
}

func toReceiptJSON(r *domain.Receipt) *ReceiptJSON {
	if r == nil {
		return nil
	}
	return &ReceiptJSON{ID: r.ID.String(), Key: r.Key, URL: r.URL}
}

// ---- requests --------------------------------------------------------------

// PhotosJSON carries the counter photos as data URLs.
type PhotosJSON struct {
	INEFront    string `json:"ineFront"`
	INEBack     string `json:"ineBack"`
	Circulation string `json:"circulation"`
}

func (p PhotosJSON) decode() (domain.IdentityPhotos, error) {
	var out domain.IdentityPhotos
	for _, f := range []struct {
		name string
		in   string
		dst  **domain.Image
	}{
		{"ineFront", p.INEFront, &out.INEFront},
		{"ineBack", p.INEBack, &out.INEBack},
		{"circulation", p.Circulation, &out.Circulation},
	} {
		img, err := decodeImage(f.in)
		if err != nil {
			return domain.IdentityPhotos{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = img
	}
	return out, nil
}

func decodeImage(s string) (*domain.Image, error) {
	if s == "" {
		return nil, nil
	}
	img, err := domain.ParseDataURL(s)
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// SearchParams re-identifies the operator's search.
type SearchParams struct {
	Mode string `json:"mode" validate:"oneof=idsae nombre tag suspended"`
	Key  string `json:"key"`
}

// SuspendBody is the body of POST /api/console/suspensions.
type SuspendBody struct {
	IDSAE      int64         `json:"idsae" validate:"gt=0"`
	Kind       string        `json:"kind" validate:"oneof=TAG APP"`
	Code       string        `json:"etiqueta"`
	Identifier string        `json:"identificador"`
	Reason     string        `json:"reason" validate:"required"`
	Search     *SearchParams `json:"search,omitempty"`
}

// AssignBody is the body of POST /api/console/assignments.
type AssignBody struct {
	IDSAE      int64      `json:"idsae" validate:"gt=0"`
	OwnerName  string     `json:"nombre" validate:"required"`
	Address    string     `json:"direccion" validate:"required"`
	Kind       string     `json:"kind" validate:"oneof=TAG APP"`
	Code       string     `json:"etiqueta"`
	Identifier string     `json:"identificador"`
	Photos     PhotosJSON `json:"photos"`
	Signature  string     `json:"signature"`
}

// DeactivateBody is the body of POST /api/console/deactivations.
type DeactivateBody struct {
	IDSAE      int64      `json:"idsae" validate:"gt=0"`
	OwnerName  string     `json:"nombre" validate:"required"`
	Address    string     `json:"direccion"`
	Kind       string     `json:"kind" validate:"oneof=TAG APP"`
	Code       string     `json:"etiqueta"`
	Identifier string     `json:"identificador"`
	Mode       string     `json:"mode" validate:"oneof=in_person remote"`
	Photos     PhotosJSON `json:"photos"`
	Signature  string     `json:"signature"`
}

// PaymentBody is the body of POST /api/console/payments.
type PaymentBody struct {
	IDSAE     int64  `json:"idsae"`
	OwnerName string `json:"nombre"`
	Vigencia  string `json:"vigencia" validate:"required"`
}

// ReceiptBody is the body of POST /api/console/receipts, which regenerates
// a document for an existing credential.
type ReceiptBody struct {
	Kind       string     `json:"kind" validate:"oneof=issuance cancellation"`
	Mode       string     `json:"mode" validate:"required_if=Kind cancellation"`
	IDSAE      int64      `json:"idsae" validate:"gt=0"`
	OwnerName  string     `json:"nombre" validate:"required"`
	Address    string     `json:"direccion"`
	Credential string     `json:"credentialKind" validate:"oneof=TAG APP"`
	Code       string     `json:"etiqueta"`
	Identifier string     `json:"identificador"`
	Photos     PhotosJSON `json:"photos"`
	Signature  string     `json:"signature"`
}
