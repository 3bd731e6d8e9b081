// internal/domain/auth/dto.go
package auth

import "time"

type SendOTPRequest struct {
	MSISDN string `json:"msisdn"`
}

type RegisterRequest struct {
	MSISDN   string `json:"msisdn"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

type VerifyOTPRequest struct {
	MSISDN string `json:"msisdn"`
	OTP    string `json:"otp"`
}

// OTPResponse echoes the code only outside production.
type OTPResponse struct {
	MSISDN    string    `json:"msisdn"`
	ExpiresAt time.Time `json:"expiresAt"`
	OTP       string    `json:"otp,omitempty"`
}

// Session is the result of a successful OTP verification. The token only
// leaves the server in the HttpOnly cookie.
type Session struct {
	Token     string    `json:"-"`
	JTI       string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *UserInfo `json:"user"`
}

type UserInfo struct {
	MSISDN   string  `json:"msisdn"`
	Name     string  `json:"name"`
	Provider string  `json:"provider"`
	Airtime  float64 `json:"airtime"`
	IsAdmin  bool    `json:"isAdmin"`
}
