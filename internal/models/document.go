package models

// PdfData is the raw encoding of a PDF document.
type PdfData []byte

// PageDocument is one page of a master document re-encoded as its own
// single-page PDF. Index is the 1-based position in the source.
type PageDocument struct {
	Index int
	Data  PdfData
}

// UploadRequest is the decoded form of a master PDF upload. It only lives for
// the duration of one request.
type UploadRequest struct {
	MasterDocument PdfData
	Filename       string
	PayMonthHint   string
	// MappingFile is accepted for compatibility with older clients but is not
	// read by the dispatch pipeline.
	MappingFile []byte
}

// GCSEvent is the payload of a Cloud Storage object finalize event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}
