package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	cases := map[*Error]int{
		Validation("bad"):       http.StatusBadRequest,
		Unauthorized("who"):     http.StatusUnauthorized,
		Forbidden("no"):         http.StatusForbidden,
		NotFound("gone"):        http.StatusNotFound,
		Conflict("dup"):         http.StatusConflict,
		TooManyRequests("slow"): http.StatusTooManyRequests,
		Internal("boom", nil):   http.StatusInternalServerError,
	}
	for err, status := range cases {
		require.Equal(t, status, err.Status(), err.Message)
	}
}

func TestAsUnwrapsChain(t *testing.T) {
	cause := errors.New("connection reset")
	wrapped := fmt.Errorf("saving: %w", Internal("Failed to save", cause))

	appErr, ok := As(wrapped)
	require.True(t, ok)
	require.Equal(t, KindInternal, appErr.Kind)
	require.ErrorIs(t, wrapped, cause)
	require.Equal(t, "Failed to save: connection reset", appErr.Error())

	_, ok = As(cause)
	require.False(t, ok)
}

func TestWithData(t *testing.T) {
	err := NotFound("none").WithData("data", map[string]interface{}{"terms": []interface{}{}})
	require.Contains(t, err.Data, "data")
}
