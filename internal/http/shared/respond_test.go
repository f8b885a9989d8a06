package shared

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	dErrors "signet/pkg/domain-errors"
)

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Error
}

func TestWriteErrorMapsTaxonomyToStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"bad request", dErrors.New(dErrors.CodeBadRequest, "invalid request body"), http.StatusBadRequest},
		{"duplicate collapses to 400", dErrors.New(dErrors.CodeDuplicate, "user already exists"), http.StatusBadRequest},
		{"invalid state collapses to 400", dErrors.New(dErrors.CodeInvalidState, "document is already signed"), http.StatusBadRequest},
		{"unauthorized", dErrors.New(dErrors.CodeUnauthorized, "invalid credentials"), http.StatusUnauthorized},
		{"forbidden", dErrors.New(dErrors.CodeForbidden, "you do not have access to this document"), http.StatusForbidden},
		{"not found", dErrors.New(dErrors.CodeNotFound, "document not found"), http.StatusNotFound},
		{"conflict", dErrors.New(dErrors.CodeConflict, "document was modified concurrently"), http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteError(rr, tc.err)
			require.Equal(t, tc.status, rr.Code)

			var de *dErrors.Error
			require.True(t, errors.As(tc.err, &de))
			require.Equal(t, de.Message, decodeError(t, rr))
		})
	}
}

func TestWriteErrorHidesInternals(t *testing.T) {
	t.Run("plain error", func(t *testing.T) {
		rr := httptest.NewRecorder()
		WriteError(rr, errors.New("pq: connection refused"))
		require.Equal(t, http.StatusInternalServerError, rr.Code)
		require.Equal(t, "internal server error", decodeError(t, rr))
	})

	t.Run("internal domain error", func(t *testing.T) {
		rr := httptest.NewRecorder()
		WriteError(rr, dErrors.New(dErrors.CodeInternal, "failed to create user"))
		require.Equal(t, http.StatusInternalServerError, rr.Code)
		require.Equal(t, "internal server error", decodeError(t, rr))
	})

	t.Run("wrapped cause stays hidden", func(t *testing.T) {
		rr := httptest.NewRecorder()
		WriteError(rr, dErrors.Wrap(errors.New("disk full"), dErrors.CodeNotFound, "document content not found"))
		require.Equal(t, http.StatusNotFound, rr.Code)
		require.Equal(t, "document content not found", decodeError(t, rr))
	})
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteJSON(rr, http.StatusCreated, map[string]string{"id": "abc"})
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	require.JSONEq(t, `{"id":"abc"}`, rr.Body.String())
}
