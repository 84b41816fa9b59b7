package models

import "fmt"

// Card is raw card data as submitted by the host platform.
type Card struct {
	Number     string `json:"cc_number"`
	Brand      string `json:"cc_brand"`
	HolderName string `json:"cc_holder_name"`
	Expiry     string `json:"cc_expiry"`
	CVC        string `json:"cc_cvc"`
}

// Validate requires every card field; the gateway rejects partial data.
func (c *Card) Validate() error {
	fields := map[string]string{
		"cc_number":      c.Number,
		"cc_brand":       c.Brand,
		"cc_holder_name": c.HolderName,
		"cc_expiry":      c.Expiry,
		"cc_cvc":         c.CVC,
	}
	for name, v := range fields {
		if v == "" {
			return fmt.Errorf("missing card field %s", name)
		}
	}
	return nil
}

// Customer is the cardholder identity forwarded to the gateway on tokenize.
type Customer struct {
	Name        string `json:"name"`
	Company     bool   `json:"is_company"`
	Email       string `json:"email"`
	Street      string `json:"street"`
	City        string `json:"city"`
	CountryCode string `json:"country_code"`
	IP          string `json:"ip"`
}
