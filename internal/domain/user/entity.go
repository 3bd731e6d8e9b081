// internal/domain/user/entity.go
package user

import (
	"regexp"
	"time"
)

type Provider string

const (
	ProviderVodacom Provider = "vodacom"
	ProviderMTN     Provider = "mtn"
	ProviderCellC   Provider = "cellc"
	ProviderTelkom  Provider = "telkom"

	DefaultProvider = ProviderVodacom
)

// Providers lists every telco a subscriber can be registered with.
var Providers = []Provider{ProviderVodacom, ProviderMTN, ProviderCellC, ProviderTelkom}

func (p Provider) Valid() bool {
	for _, known := range Providers {
		if p == known {
			return true
		}
	}
	return false
}

var msisdnPattern = regexp.MustCompile(`^\d{10}$`)

// ValidMSISDN reports whether s is a 10 digit subscriber number.
func ValidMSISDN(s string) bool {
	return msisdnPattern.MatchString(s)
}

type User struct {
	MSISDN    string    `json:"msisdn" db:"msisdn"`
	Name      string    `json:"name" db:"name"`
	Provider  Provider  `json:"provider" db:"provider"`
	Airtime   float64   `json:"airtime" db:"airtime"`
	IsAdmin   bool      `json:"isAdmin" db:"is_admin"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
