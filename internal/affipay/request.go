package affipay

import (
	"fmt"
	"strings"

	"github.com/eduwebgroup/affipay/internal/expiry"
)

const maxStreetLen = 40

// Card is the raw card data a tokenize request is built from.
type Card struct {
	Number     string
	Brand      string
	HolderName string
	Expiry     string // card face, "MM/YY"
	CVC        string
}

// Customer identifies the cardholder to the gateway.
type Customer struct {
	Name        string
	Company     bool
	Email       string
	Street      string
	City        string
	CountryCode string
	IP          string
}

// CustomerInformation is the gateway's wire shape for cardholder identity.
type CustomerInformation struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Address1  string `json:"address1"`
	City      string `json:"city"`
	Country   string `json:"country"`
	IP        string `json:"ip"`
}

// CardTokenRequest is the body for POST /cardToken/add.
type CardTokenRequest struct {
	PAN                 string              `json:"pan"`
	ExpMonth            string              `json:"expMonth"`
	ExpYear             string              `json:"expYear"`
	HolderName          string              `json:"holderName"`
	CustomerInformation CustomerInformation `json:"customerInformation"`
}

// NoPresentCardData references a stored card token on a charge.
type NoPresentCardData struct {
	CardToken string `json:"cardToken"`
}

// ChargeRequest is the body for POST /ecommerce/v2/charge.
type ChargeRequest struct {
	Amount            float64           `json:"amount"`
	Currency          int               `json:"currency"`
	NoPresentCardData NoPresentCardData `json:"noPresentCardData"`
}

// BuildCardTokenRequest turns local card and customer data into the gateway's
// tokenize shape: spaces stripped from the PAN, card-face expiry split into
// month and a "20"-prefixed year, street truncated to 40 characters, and
// company names mapped to an empty first name.
func BuildCardTokenRequest(card Card, customer Customer) (CardTokenRequest, error) {
	month, year, err := expiry.Split(card.Expiry)
	if err != nil {
		return CardTokenRequest{}, fmt.Errorf("card expiry: %w", err)
	}
	return CardTokenRequest{
		PAN:                 strings.ReplaceAll(card.Number, " ", ""),
		ExpMonth:            month,
		ExpYear:             year,
		HolderName:          card.HolderName,
		CustomerInformation: customerInformation(customer),
	}, nil
}

func customerInformation(c Customer) CustomerInformation {
	first, last := SplitName(c.Name)
	if c.Company {
		first, last = "", c.Name
	}
	street := c.Street
	if len(street) > maxStreetLen {
		street = street[:maxStreetLen]
	}
	return CustomerInformation{
		FirstName: first,
		LastName:  last,
		Email:     c.Email,
		Address1:  street,
		City:      c.City,
		Country:   c.CountryCode,
		IP:        c.IP,
	}
}

// SplitName splits a personal name the way the gateway expects: the last
// word is the last name, everything before it the first name.
func SplitName(name string) (first, last string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
}

// currencyCodes maps supported ISO alpha codes to the gateway's numeric ones.
var currencyCodes = map[string]int{
	"MXN": 484,
}

// CurrencyCode resolves the gateway numeric code for an ISO currency code.
func CurrencyCode(code string) (int, error) {
	n, ok := currencyCodes[code]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, code)
	}
	return n, nil
}
