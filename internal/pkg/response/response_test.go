package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	xerrors "vas-billing-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{xerrors.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("lookup: %w", xerrors.ErrServiceInactive), http.StatusNotFound},
		{xerrors.ErrNotRegistered, http.StatusNotFound},
		{xerrors.ErrAlreadySubscribed, http.StatusBadRequest},
		{fmt.Errorf("%w: insufficient funds", xerrors.ErrBillingFailed), http.StatusBadRequest},
		{xerrors.ErrOTPExpired, http.StatusBadRequest},
		{xerrors.ErrForbidden, http.StatusForbidden},
		{xerrors.ErrUnauthorized, http.StatusUnauthorized},
		{xerrors.ErrRateLimited, http.StatusTooManyRequests},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), tc.err.Error())
	}
}

func TestFromErrorHidesInternalCause(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	FromError(c, errors.New("pq: relation does not exist"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "internal server error", body.Message)
	assert.Empty(t, body.Error)
	assert.True(t, c.IsAborted())
}

func TestFromErrorCarriesBusinessMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	FromError(c, xerrors.ErrInsufficientAirtime, gin.H{"provider": "mtn"})

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "insufficient airtime balance", body["message"])
	assert.Equal(t, map[string]interface{}{"provider": "mtn"}, body["data"])
}
