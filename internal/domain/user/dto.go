// internal/domain/user/dto.go
package user

import "time"

// Profile is the subscriber view returned by /user/profile and /admin/profile.
type Profile struct {
	MSISDN      string    `json:"msisdn"`
	Name        string    `json:"name"`
	MemberSince time.Time `json:"memberSince"`
	Provider    Provider  `json:"provider"`
	Airtime     float64   `json:"airtime"`
	IsAdmin     bool      `json:"isAdmin"`
}

func (u *User) Profile() *Profile {
	return &Profile{
		MSISDN:      u.MSISDN,
		Name:        u.Name,
		MemberSince: u.CreatedAt,
		Provider:    u.Provider,
		Airtime:     u.Airtime,
		IsAdmin:     u.IsAdmin,
	}
}
