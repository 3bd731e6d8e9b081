package admin

import (
	"testing"

	"vas-billing-service/internal/domain/catalog"
	"vas-billing-service/internal/domain/subscription"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountActiveUsers(t *testing.T) {
	services := []*catalog.Service{
		{ID: 1, Name: "A"},
		{ID: 2, Name: "B"},
	}
	subs := []*subscription.Subscription{
		{ServiceID: 1, MSISDN: "0820000001", Status: subscription.StatusActive},
		{ServiceID: 1, MSISDN: "0820000002", Status: subscription.StatusActive},
		{ServiceID: 2, MSISDN: "0820000001", Status: subscription.StatusCancelled},
	}

	rows := CountActiveUsers(services, subs)

	require.Len(t, rows, 2)
	assert.Equal(t, &ActiveUsersPerService{ServiceID: 1, ServiceName: "A", ActiveUserCount: 2}, rows[0])
	assert.Equal(t, &ActiveUsersPerService{ServiceID: 2, ServiceName: "B", ActiveUserCount: 0}, rows[1])
}

func TestCountActiveUsersCountsDistinctSubscribers(t *testing.T) {
	services := []*catalog.Service{{ID: 1, Name: "A"}}
	subs := []*subscription.Subscription{
		{ServiceID: 1, MSISDN: "0820000001", Status: subscription.StatusActive},
		{ServiceID: 1, MSISDN: "0820000001", Status: subscription.StatusActive},
		{ServiceID: 9, MSISDN: "0820000003", Status: subscription.StatusActive},
	}

	rows := CountActiveUsers(services, subs)

	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].ActiveUserCount)
	assert.Equal(t, &ActiveUsersPerService{ServiceID: 9, ServiceName: "Unknown", ActiveUserCount: 1}, rows[1])
}
