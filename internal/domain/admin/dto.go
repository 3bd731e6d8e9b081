// internal/domain/admin/dto.go
package admin

import (
	"vas-billing-service/internal/domain/catalog"
	"vas-billing-service/internal/domain/subscription"
)

const unknownServiceName = "Unknown"

// ActiveUsersPerService is one row of the admin dashboard.
type ActiveUsersPerService struct {
	ServiceID       int64  `json:"serviceId"`
	ServiceName     string `json:"serviceName"`
	ActiveUserCount int    `json:"activeUserCount"`
}

// CountActiveUsers counts distinct subscribers with an active subscription,
// one row per service in catalog order. Services nobody uses report zero.
// Active subscriptions pointing at a service outside the catalog are
// reported under an "Unknown" name after the catalog rows.
func CountActiveUsers(services []*catalog.Service, subs []*subscription.Subscription) []*ActiveUsersPerService {
	users := make(map[int64]map[string]struct{})
	for _, s := range subs {
		if !s.IsActive() {
			continue
		}
		set, ok := users[s.ServiceID]
		if !ok {
			set = make(map[string]struct{})
			users[s.ServiceID] = set
		}
		set[s.MSISDN] = struct{}{}
	}

	out := make([]*ActiveUsersPerService, 0, len(services))
	seen := make(map[int64]bool, len(services))
	for _, svc := range services {
		seen[svc.ID] = true
		out = append(out, &ActiveUsersPerService{
			ServiceID:       svc.ID,
			ServiceName:     svc.Name,
			ActiveUserCount: len(users[svc.ID]),
		})
	}

	for _, s := range subs {
		if seen[s.ServiceID] || len(users[s.ServiceID]) == 0 {
			continue
		}
		seen[s.ServiceID] = true
		out = append(out, &ActiveUsersPerService{
			ServiceID:       s.ServiceID,
			ServiceName:     unknownServiceName,
			ActiveUserCount: len(users[s.ServiceID]),
		})
	}
	return out
}

// ConnectionStats reports live websocket connections.
type ConnectionStats struct {
	Users       int `json:"users"`
	Connections int `json:"connections"`
	Admins      int `json:"admins"`
}
