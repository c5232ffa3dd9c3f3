package domain

import (
	"strings"
	"time"
)

// CustomerIdentity classifies who the customer record represents.
type CustomerIdentity string

const (
	IdentityFarmer    CustomerIdentity = "Farmer"
	IdentityHarvester CustomerIdentity = "Harvester"
	IdentityLoader    CustomerIdentity = "Loader"
	IdentityUnknown   CustomerIdentity = "Unknown"
)

// Note is an append-only annotation on a customer record.
type Note struct {
	Text      string    `json:"note"`
	AuthorBy  string    `json:"by"`
	Timestamp time.Time `json:"time"`
}

// NormalizeNumber strips formatting and the Indian country-code prefix so
// numbers from the telephony provider match the stored ten-digit form.
func NormalizeNumber(raw string) string {
	number := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	switch {
	case strings.HasPrefix(number, "+91"):
		return number[3:]
	case strings.HasPrefix(number, "91") && len(number) == 12:
		return number[2:]
	case strings.HasPrefix(number, "0") && len(number) == 11:
		return number[1:]
	default:
		return number
	}
}

// Customer is a farmer or harvester the CRM tracks. Number is the unique
// phone number, stored without the country-code prefix.
type Customer struct {
	ID        string
	Name      string
	Number    string
	Identity  CustomerIdentity
	Village   string
	Taluk     string
	District  string
	Notes     []Note
	CreatedAt time.Time
	UpdatedAt time.Time
}
