package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReceiptKind selects the issuance ("alta") or cancellation ("baja") form.
type ReceiptKind string

const (
	ReceiptIssuance     ReceiptKind = "issuance"
	ReceiptCancellation ReceiptKind = "cancellation"
)

// CancellationMode records how a cancellation was confirmed. Each mode
// stores its document in its own column.
type CancellationMode string

const (
	CancelInPerson CancellationMode = "in_person"
	CancelRemote   CancellationMode = "remote"
)

// Image is a decoded picture ready to be placed on a receipt.
type Image struct {
	// Type is the fpdf image type: "PNG", "JPG" or "GIF".
	Type string
	Data []byte
}

// ParseDataURL decodes a base64 "data:image/...;base64," URL as produced by
// browser canvases and file readers.
func ParseDataURL(s string) (Image, error) {
	header, payload, ok := strings.Cut(s, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return Image{}, fmt.Errorf("%w: image must be a base64 data URL", ErrValidation)
	}
	mime := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	var typ string
	switch strings.ToLower(mime) {
	case "image/png":
		typ = "PNG"
	case "image/jpeg", "image/jpg":
		typ = "JPG"
	case "image/gif":
		typ = "GIF"
	default:
		return Image{}, fmt.Errorf("%w: unsupported image type %q", ErrValidation, mime)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("%w: image payload: %v", ErrValidation, err)
	}
	return Image{Type: typ, Data: data}, nil
}

// IdentityPhotos are the document photos captured at the counter.
type IdentityPhotos struct {
	INEFront    *Image
	INEBack     *Image
	Circulation *Image
}

// Complete reports whether all three photos required for an assignment
// are present.
func (p IdentityPhotos) Complete() bool {
	return p.INEFront != nil && p.INEBack != nil && p.Circulation != nil
}

// ReceiptRequest carries everything the renderer lays out.
type ReceiptRequest struct {
	Folio      uuid.UUID // assigned when the document is issued
	Kind       ReceiptKind
	Mode       CancellationMode // cancellation only
	Owner      Owner
	Credential CredentialKind
	Code       string
	Identifier string
	Signature  *Image
	Photos     IdentityPhotos
	Date       time.Time
}

// Key is the credential value printed on the receipt and used in its name.
func (r ReceiptRequest) Key() string {
	return CredentialKey(r.Credential, r.Code, r.Identifier)
}

// Folder is the storage prefix for the receipt kind.
func (r ReceiptRequest) Folder() string {
	if r.Kind == ReceiptCancellation {
		return "Bajas"
	}
	return "Altas"
}

// FileName is the stored object name, without folder.
func (r ReceiptRequest) FileName() string {
	if r.Kind == ReceiptCancellation {
		return fmt.Sprintf("Politica_Baja_%d_%s.pdf", r.Owner.IDSAE, r.Key())
	}
	return fmt.Sprintf("Politica_alta_tag_%d_%s.pdf", r.Owner.IDSAE, r.Key())
}

// ObjectKey is Folder/FileName.
func (r ReceiptRequest) ObjectKey() string {
	return r.Folder() + "/" + r.FileName()
}

// Validate checks the fields the renderer cannot do without.
func (r ReceiptRequest) Validate() error {
	switch r.Kind {
	case ReceiptIssuance:
	case ReceiptCancellation:
		if r.Mode != CancelInPerson && r.Mode != CancelRemote {
			return fmt.Errorf("%w: cancellation mode must be in_person or remote", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown receipt kind %q", ErrValidation, r.Kind)
	}
	if r.Owner.IDSAE <= 0 {
		return fmt.Errorf("%w: idsae is required", ErrValidation)
	}
	if strings.TrimSpace(r.Owner.Name) == "" {
		return fmt.Errorf("%w: owner name is required", ErrValidation)
	}
	if r.Key() == "" {
		return fmt.Errorf("%w: tag or app identifier is required", ErrValidation)
	}
	return nil
}

// Receipt is a stored document.
type Receipt struct {
	ID  uuid.UUID
	Key string
	URL string
}

// ReceiptRecord is one entry of the receipts viewer.
type ReceiptRecord struct {
	IDSAE      int64
	Kind       ReceiptKind
	Mode       CancellationMode // empty for issuance records
	Code       string
	Identifier string
	URL        string
	Date       *time.Time
}
