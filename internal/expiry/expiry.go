package expiry

import (
	"fmt"
	"strings"
)

// Split parses a card-face expiry "MM/YY" (or "MMYY") into the month and the
// four-digit year the gateway expects ("04/27" -> "04", "2027").
func Split(in string) (month, year string, err error) {
	s := strings.TrimSpace(in)
	s = strings.ReplaceAll(s, "/", "")
	if len(s) != 4 {
		return "", "", fmt.Errorf("expiry must be MM/YY or MMYY")
	}
	for i := 0; i < 4; i++ {
		if s[i] < '0' || s[i] > '9' {
			return "", "", fmt.Errorf("expiry must be digits")
		}
	}
	mm := int(s[0]-'0')*10 + int(s[1]-'0')
	if mm < 1 || mm > 12 {
		return "", "", fmt.Errorf("expiry month must be 01..12")
	}
	return s[:2], "20" + s[2:], nil
}

// Face formats month and a two- or four-digit year back to "MM/YY" for display.
func Face(month, year string) string {
	if len(year) == 4 {
		year = year[2:]
	}
	return month + "/" + year
}

// Validate reports whether in is a well-formed card-face expiry.
func Validate(in string) error {
	_, _, err := Split(in)
	return err
}
