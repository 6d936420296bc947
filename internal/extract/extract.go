package extract

import (
	"regexp"

	"github.com/google/uuid"
)

// Family identifies which pattern family produced a reference.
type Family string

const (
	FamilyInvoiceCode Family = "invoice-code"
	FamilyDateCode    Family = "date-code"
	FamilyUUID        Family = "uuid"
	FamilyHashNumber  Family = "hash-number"
	FamilyBareNumber  Family = "bare-number"
)

// Reference is a candidate backend-record identifier pulled out of
// notification text. It is derived state, never persisted.
type Reference struct {
	Value  string
	Family Family
}

// Pattern families in strict priority order. The first family with a
// match wins regardless of where its match sits in the text; within a
// family the first occurrence is taken.
var (
	// Structured invoice code: PREFIX-########-XXXX.
	invoiceCodePattern = regexp.MustCompile(`\b[A-Z]{2,5}-\d{8}-[A-Z0-9]{2,6}\b`)

	// Date-coded token without the prefix: ########-XXXX.
	dateCodePattern = regexp.MustCompile(`\b\d{8}-[A-Z0-9]{2,6}\b`)

	// Canonical hyphenated UUID. Matches are re-validated with
	// uuid.Parse so malformed hex never slips through.
	uuidPattern = regexp.MustCompile(
		`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`,
	)

	// Hash-prefixed integer: #123. The digits alone are the reference.
	hashNumberPattern = regexp.MustCompile(`#(\d+)\b`)

	// Bare integer of at least 4 digits. Shorter runs collide with
	// times, street numbers, and phone fragments.
	bareNumberPattern = regexp.MustCompile(`\b\d{4,}\b`)
)

// Extract pulls zero or one candidate reference out of a notification
// message. Returns nil when no family matches; the caller must treat
// that as "cannot auto-resolve" rather than guessing.
func Extract(message string) *Reference {
	if message == "" {
		return nil
	}

	if m := invoiceCodePattern.FindString(message); m != "" {
		return &Reference{Value: m, Family: FamilyInvoiceCode}
	}

	if m := dateCodePattern.FindString(message); m != "" {
		return &Reference{Value: m, Family: FamilyDateCode}
	}

	for _, m := range uuidPattern.FindAllString(message, -1) {
		if _, err := uuid.Parse(m); err == nil {
			return &Reference{Value: m, Family: FamilyUUID}
		}
	}

	if m := hashNumberPattern.FindStringSubmatch(message); m != nil {
		return &Reference{Value: m[1], Family: FamilyHashNumber}
	}

	if m := bareNumberPattern.FindString(message); m != "" {
		return &Reference{Value: m, Family: FamilyBareNumber}
	}

	return nil
}
