package models

import "strings"

// CardToken is a stored, reusable reference to a card held by the gateway.
// AcquirerRef is immutable once created; Verified flips to true on the first
// successful charge.
type CardToken struct {
	ID          string `json:"id"`
	PartnerID   string `json:"partner_id"`
	AcquirerRef string `json:"acquirer_ref"`
	Name        string `json:"name"`
	Verified    bool   `json:"verified"`
}

// TokenDisplayName builds the masked display name for a stored card,
// "XXXXXXXXXXXX1234 - HOLDER".
func TokenDisplayName(pan, holder string) string {
	pan = strings.ReplaceAll(pan, " ", "")
	last4 := pan
	if len(pan) > 4 {
		last4 = pan[len(pan)-4:]
	}
	return "XXXXXXXXXXXX" + last4 + " - " + holder
}
