package services

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shalix/document-engine/internal/models"
)

// deliveryNoteMarker is the disclaimer phrase printed on delivery notes
// and never on invoices. Its presence alone decides the document kind.
const deliveryNoteMarker = "RECUERDE PARA PEDIDOS POR INTERNET"

// Fields is the structured result of pattern extraction over a page's
// text. Fields a pattern did not match stay at their zero value; the
// amount is optional for both kinds and defaults to 0.
type Fields struct {
	DocNumber string
	ClientID  string
	TaxID     string
	IssuedAt  string
	Amount    float64
}

// KindExtractor extracts the fixed field set of one document kind.
// Extract reports the names of mandatory fields it could not find; a
// non-empty missing list is a classification failure for the page.
type KindExtractor interface {
	Kind() models.DocKind
	Extract(text string) (Fields, []string)
}

// Classify decides the document kind of the normalized page text and
// extracts its fields with the matching kind extractor.
func Classify(text string) (models.DocKind, Fields, []string) {
	var ex KindExtractor = invoiceExtractor{}
	if strings.Contains(text, deliveryNoteMarker) {
		ex = deliveryNoteExtractor{}
	}
	fields, missing := ex.Extract(text)
	return ex.Kind(), fields, missing
}

var (
	invTaxIDRe     = regexp.MustCompile(`CIF/DNI: \S+\s+\S+\s+(\S+)`)
	invDocNumberRe = regexp.MustCompile(`(\d+)\s*GRACIAS POR SU PEDIDO`)
	invIssuedAtRe  = regexp.MustCompile(`CIF/DNI:\s*(\d{2}-\d{2}-\d{4})`)
	invClientIDRe  = regexp.MustCompile(`CIF/DNI: \d{2}-\d{2}-\d{4}\n([A-Z0-9]+)`)
	invAmountRe    = regexp.MustCompile(`(\d{1,3}(?:,\d{2})?)\s*FORMA DE PAGO TOTAL FACTURA`)
)

type invoiceExtractor struct{}

func (invoiceExtractor) Kind() models.DocKind { return models.KindInvoice }

func (invoiceExtractor) Extract(text string) (Fields, []string) {
	var f Fields
	var missing []string

	f.TaxID = findGroup(invTaxIDRe, text)
	f.DocNumber = findGroup(invDocNumberRe, text)
	f.IssuedAt = findGroup(invIssuedAtRe, text)
	f.ClientID = findGroup(invClientIDRe, text)
	f.Amount = parseAmount(findGroup(invAmountRe, text))

	for _, m := range []struct{ name, value string }{
		{"tax_id", f.TaxID},
		{"doc_number", f.DocNumber},
		{"issued_at", f.IssuedAt},
		{"client_id", f.ClientID},
	} {
		if m.value == "" {
			missing = append(missing, m.name)
		}
	}
	return f, missing
}

var (
	dnDocNumberRe = regexp.MustCompile(`PVV\n(\d+)`)
	dnIssuedAtRe  = regexp.MustCompile(`(\d{2}/\d{2}/\d{4})`)
	dnAmountRe    = regexp.MustCompile(`BULTOS\s+(\d+,\d+)\s+VOLUMEN`)
	dnTaxIDRe     = regexp.MustCompile(`(\w+) CONSULTAS LLAME TELEFONO`)
)

type deliveryNoteExtractor struct{}

func (deliveryNoteExtractor) Kind() models.DocKind { return models.KindDeliveryNote }

func (deliveryNoteExtractor) Extract(text string) (Fields, []string) {
	var f Fields
	var missing []string

	f.DocNumber = findGroup(dnDocNumberRe, text)
	// Delivery notes print slash-separated dates; normalize to the
	// hyphen-separated form invoices use so artifact names line up.
	f.IssuedAt = strings.ReplaceAll(findGroup(dnIssuedAtRe, text), "/", "-")
	f.TaxID = findGroup(dnTaxIDRe, text)
	f.Amount = parseAmount(findGroup(dnAmountRe, text))

	for _, m := range []struct{ name, value string }{
		{"doc_number", f.DocNumber},
		{"issued_at", f.IssuedAt},
		{"tax_id", f.TaxID},
	} {
		if m.value == "" {
			missing = append(missing, m.name)
		}
	}
	return f, missing
}

func findGroup(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// parseAmount converts a decimal-comma total to a float. Absence or a
// malformed match is not fatal and is recorded as 0.
func parseAmount(raw string) float64 {
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0
	}
	return v
}
