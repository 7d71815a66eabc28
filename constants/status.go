package constants

// BillStatus is the canonical status stored on each bill row.
type BillStatus string

// Stable values (store these exact strings in DB).
const (
	BillStatusComplete BillStatus = "COMPLETE" // items or payments recovered
	BillStatusNoItems  BillStatus = "NO_ITEMS" // text recovered, nothing billable
	BillStatusEmpty    BillStatus = "EMPTY"    // OCR recovered no fragments
)

// SchemaVersion is written on first insert of a bill document.
const SchemaVersion = 1

// RawTextExcerptLimit caps raw_ocr_text on the persisted document.
const RawTextExcerptLimit = 5000
