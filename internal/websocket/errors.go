// internal/websocket/errors.go
package websocket

import "errors"

var (
	ErrTokenBlacklisted = errors.New("token has been blacklisted")
	ErrMissingToken     = errors.New("missing authentication token")
	ErrAdminRequired    = errors.New("admin access required")
)
