package models

// DocKind identifies the business document type of a processed page.
type DocKind string

const (
	KindInvoice      DocKind = "INVOICE"
	KindDeliveryNote DocKind = "DELIVERY_NOTE"
)

// Status is the lifecycle state of a PageRecord. Transitions only move
// forward: PENDING -> FAILED | READY | MERGED, READY -> UPLOADED | UPLOAD_FAILED.
type Status string

const (
	StatusPending      Status = "PENDING"
	StatusFailed       Status = "FAILED"
	StatusReady        Status = "READY"
	StatusMerged       Status = "MERGED"
	StatusUploaded     Status = "UPLOADED"
	StatusUploadFailed Status = "UPLOAD_FAILED"
)

// PageRecord is one row of the documents table: a single physical page
// (or, after merging, a consolidated artifact) and its lifecycle status.
// Pages sharing (DocNumber, ClientID, DocKind) form one logical document.
type PageRecord struct {
	ID           int64
	DocKind      DocKind
	Status       Status
	DocNumber    string
	ClientID     string
	TaxID        string
	IssuedAt     string
	PageIndex    int
	Amount       float64
	ArtifactPath string
}

// CatalogEntry is the metadata record written to the remote document
// catalog for every successfully published artifact. Field names match
// the existing documents collection schema.
type CatalogEntry struct {
	DocNumber string  `firestore:"doc_number"`
	ClientID  string  `firestore:"client_id"`
	TaxID     string  `firestore:"cif"`
	IssuedAt  string  `firestore:"emited_at"`
	Amount    float64 `firestore:"total"`
	DocKind   string  `firestore:"doc_type"`
	PDFURL    string  `firestore:"pdf_url"`
}
