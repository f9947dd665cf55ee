package document

import "strings"

// statusesByType is the per-type lifecycle. The first entry is the default
// for newly created documents.
var statusesByType = map[Type][]string{
	TypePurchase:         {"draft", "ordered", "received", "cancelled"},
	TypePurchaseEstimate: {"draft", "sent", "accepted", "declined"},
	TypeBill:             {"draft", "received", "paid", "void"},
	TypeDebitNote:        {"draft", "issued", "settled", "void"},
	TypeInvoice:          {"draft", "sent", "paid", "void"},
	TypeCreditNote:       {"draft", "issued", "applied", "void"},
}

// Statuses returns the lifecycle states for a document type.
func Statuses(t Type) []string {
	states := statusesByType[t]
	out := make([]string, len(states))
	copy(out, states)
	return out
}

// DefaultStatus returns the state assigned to newly created documents.
func DefaultStatus(t Type) string {
	states := statusesByType[t]
	if len(states) == 0 {
		return "draft"
	}
	return states[0]
}

// ValidStatus reports whether status is part of the type's lifecycle.
func ValidStatus(t Type, status string) bool {
	status = strings.ToLower(strings.TrimSpace(status))
	for _, known := range statusesByType[t] {
		if status == known {
			return true
		}
	}
	return false
}
