// Package receipt lays out the signed issuance and cancellation documents
// handed to members when a credential is assigned or withdrawn.
package receipt

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/pkordes/tagconsole/internal/domain"
)

// Options configures the letterhead.
type Options struct {
	Place        string // printed before the date, e.g. "Tecámac, Estado de México"
	Organization string
	Logo         *domain.Image
	Location     *time.Location
}

// Renderer produces A4 PDFs with the core fonts. Text is translated to
// cp1252 so Spanish accents render without embedding a font.
type Renderer struct {
	opts     Options
	compress bool
}

// NewRenderer constructs a Renderer. Empty options fall back to the
// association's letterhead.
func NewRenderer(opts Options) *Renderer {
	if opts.Place == "" {
		opts.Place = "Tecámac, Estado de México"
	}
	if opts.Organization == "" {
		opts.Organization = "Comunidad Decidida"
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Renderer{opts: opts, compress: true}
}

// LoadLogo reads a PNG or JPEG letterhead logo from disk.
func LoadLogo(path string) (*domain.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("receipt.LoadLogo: %w", err)
	}
	var typ string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		typ = "PNG"
	case ".jpg", ".jpeg":
		typ = "JPG"
	default:
		return nil, fmt.Errorf("receipt.LoadLogo: unsupported logo type %q", filepath.Ext(path))
	}
	return &domain.Image{Type: typ, Data: data}, nil
}

var months = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// LongDate formats t as "15 de junio de 2025".
func LongDate(t time.Time) string {
	return fmt.Sprintf("%d de %s de %d", t.Day(), months[t.Month()-1], t.Year())
}

const (
	pageWidth = 210.0
	left      = 20.0
	textWidth = 170.0
	lineH     = 5.5
)

// page wraps the document with the text translator bound.
type page struct {
	*fpdf.Fpdf
	tr func(string) string
}

func (p page) centered(y float64, s string) {
	p.SetXY(0, y)
	p.CellFormat(pageWidth, 6, p.tr(s), "", 0, "C", false, 0, "")
}

func (p page) paragraph(y float64, paras ...string) float64 {
	p.SetXY(left, y)
	for i, s := range paras {
		if i > 0 {
			p.Ln(lineH / 2)
			p.SetX(left)
		}
		p.MultiCell(textWidth, lineH, p.tr(s), "", "J", false)
	}
	return p.GetY()
}

func (p page) image(name string, img *domain.Image, x, y, w, h float64) {
	if img == nil {
		return
	}
	opt := fpdf.ImageOptions{ImageType: img.Type}
	p.RegisterImageOptionsReader(name, opt, bytes.NewReader(img.Data))
	p.ImageOptions(name, x, y, w, h, false, opt, 0, "")
}

// Render lays out req. Signature and photos are optional; the photos annex
// page is added only when at least one photo is present.
func (r *Renderer) Render(req domain.ReceiptRequest) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetTitle(fmt.Sprintf("%s %s", req.Folder(), req.Key()), true)
	pdf.SetAutoPageBreak(false, 0)
	p := page{Fpdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	p.AddPage()
	p.image("logo", r.opts.Logo, 15, 12, 50, 13)

	date := req.Date
	if date.IsZero() {
		date = time.Now()
	}
	p.SetFont("Helvetica", "", 10)
	p.SetXY(100, 17)
	p.CellFormat(100, 6, p.tr(fmt.Sprintf("%s a %s", r.opts.Place, LongDate(date.In(r.opts.Location)))), "", 0, "R", false, 0, "")
	p.SetXY(100, 23)
	p.SetFont("Helvetica", "", 8)
	p.CellFormat(100, 5, p.tr("Folio: "+req.Folio.String()), "", 0, "R", false, 0, "")

	var closingY float64
	if req.Kind == domain.ReceiptCancellation {
		closingY = r.cancellation(p, req)
	} else {
		closingY = r.issuance(p, req)
	}

	p.SetFont("Helvetica", "", 11)
	for i, line := range []string{
		"ATENTAMENTE",
		"Administrador General y Consejo Directivo",
		"GESTIÓN 2024-2027",
		"Informes y trámites administrativos: 55 76 99 86 20 // WhatsApp 55 37 85 09 54",
	} {
		p.centered(closingY+float64(i)*10, line)
	}

	r.annex(p, req.Photos)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("receipt.Render: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) issuance(p page, req domain.ReceiptRequest) float64 {
	p.SetFont("Helvetica", "B", 14)
	p.centered(37, "Comprobante de Entrega de Tag de Acceso Vehicular")

	credential := "TAG identificado con el número: " + req.Key()
	if req.Credential == domain.KindApp {
		credential = "Aplicación Móvil identificada con el número: " + req.Key()
	}

	p.SetFont("Helvetica", "", 11)
	p.paragraph(55, fmt.Sprintf("Yo %s, propietario del domicilio ubicado en %s, hago constar que he recibido de %s el Acceso Vehicular %s.",
		req.Owner.Name, req.Owner.Address, r.opts.Organization, credential))

	p.SetFont("Helvetica", "B", 11)
	p.SetXY(left, 80)
	p.CellFormat(textWidth, 6, p.tr("He presentado la siguiente documentación vigente:"), "", 1, "L", false, 0, "")
	p.SetFont("Helvetica", "", 11)
	for _, doc := range []string{"- INE", "- CARTA PODER (EN SU CASO)", "- TARJETA DE CIRCULACIÓN"} {
		p.SetX(left + 5)
		p.CellFormat(textWidth, 7, p.tr(doc), "", 1, "L", false, 0, "")
	}

	p.paragraph(112,
		"Haciéndome en este acto responsable del uso indebido que pudiera darse a dicho dispositivo de acceso.",
		"De igual forma, al firmar la presente, asumo la responsabilidad por cualquier daño en perjuicio del Conjunto, y a cumplir con lo establecido en el reglamento de uso de Tag vigente, el cual se anexa a la presente, que incluye las sanciones administrativas conducentes.",
		"Conforme a lo dispuesto en la ley que regula la propiedad en condominio del Estado de México, CAPÍTULO TERCERO, ARTÍCULO 15, seré solidariamente responsable junto con mi arrendatario o familiar por el uso indebido del dispositivo móvil o Tag.",
		"Recibo y acepto el reglamento de uso de Tag y normatividad vigente, así como las condiciones del Aviso de Privacidad.",
	)

	p.image("signature", req.Signature, left, 195, 50, 25)
	p.SetFont("Helvetica", "B", 11)
	p.SetXY(left, 226)
	p.CellFormat(textWidth, 6, "FIRMA PROPIETARIO / REPRESENTANTE", "", 0, "L", false, 0, "")
	return 245
}

func (r *Renderer) cancellation(p page, req domain.ReceiptRequest) float64 {
	p.SetFont("Helvetica", "B", 14)
	p.centered(37, "Comprobante de Baja de Acceso Vehicular")

	credential := "el TAG identificado con el número: " + req.Key()
	if req.Credential == domain.KindApp {
		credential = "la aplicación móvil identificada con el número: " + req.Key()
	}

	p.SetFont("Helvetica", "", 11)
	p.paragraph(55,
		fmt.Sprintf("El(los) propietario(s) %s, solicita(n) la baja del acceso vehicular por %s.", req.Owner.Name, credential),
		fmt.Sprintf("Declara(n) ser mayor de edad y estar al corriente en las cuotas de mantenimiento de %s, Asociación Civil.", r.opts.Organization),
		"Acepta(n) presentar su identificación oficial INE en mano, tipo selfie, para la verificación del trámite y se compromete(n) a que los datos proporcionados son verídicos.",
		"Conoce(n) que tras la baja, perderá(n) el acceso vehicular y los beneficios asociados. Los datos personales serán tratados con confidencialidad según la Ley Federal de Protección de Datos Personales.",
	)

	if req.Mode == domain.CancelInPerson {
		p.image("signature", req.Signature, left, 120, 50, 25)
	}
	p.SetFont("Helvetica", "B", 11)
	p.SetXY(left, 147)
	p.CellFormat(textWidth, 6, "FIRMA PROPIETARIO / REPRESENTANTE", "", 0, "L", false, 0, "")
	if req.Mode == domain.CancelRemote {
		p.SetXY(left, 167)
		p.CellFormat(textWidth, 6, "PROPIETARIO CONFIRMA BAJA POR WHATSAPP", "", 0, "L", false, 0, "")
	}
	return 190
}

func (r *Renderer) annex(p page, photos domain.IdentityPhotos) {
	if photos.INEFront == nil && photos.INEBack == nil && photos.Circulation == nil {
		return
	}
	const (
		w, h   = 84.0, 52.5
		margin = 15.0
		top    = 40.0
		step   = h + 20
	)
	p.AddPage()
	p.SetFont("Helvetica", "B", 12)
	p.centered(17, "Documentos Anexos")
	p.SetFont("Helvetica", "B", 10)

	for i, ph := range []struct {
		name, label string
		img         *domain.Image
	}{
		{"ine_front", "Frente del INE", photos.INEFront},
		{"ine_back", "Reverso del INE", photos.INEBack},
		{"circulation", "Tarjeta de Circulación", photos.Circulation},
	} {
		if ph.img == nil {
			continue
		}
		y := top + float64(i)*step
		p.SetXY(margin, y-8)
		p.CellFormat(w, 6, p.tr(ph.label), "", 0, "L", false, 0, "")
		p.image(ph.name, ph.img, margin, y, w, h)
	}
}
