package upstream

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorType
	}{
		{http.StatusTooManyRequests, ErrorRateLimited},
		{http.StatusNotFound, ErrorNotFound},
		{http.StatusUnauthorized, ErrorUnauthorized},
		{http.StatusForbidden, ErrorUnauthorized},
		{http.StatusBadRequest, ErrorBadRequest},
		{http.StatusInternalServerError, ErrorServerError},
		{http.StatusBadGateway, ErrorServerError},
		{http.StatusServiceUnavailable, ErrorServerError},
		{http.StatusTeapot, ErrorUnknown},
	}

	for _, tc := range tests {
		got := ClassifyStatus(tc.status)
		if got.Type != tc.want {
			t.Errorf("ClassifyStatus(%d).Type = %v, want %v", tc.status, got.Type, tc.want)
		}
		if got.StatusCode != tc.status {
			t.Errorf("ClassifyStatus(%d).StatusCode = %d", tc.status, got.StatusCode)
		}
	}
}

func TestAsErrorUnwrapsChain(t *testing.T) {
	inner := ClassifyStatus(http.StatusNotFound)
	wrapped := fmt.Errorf("resolving match: %w", inner)

	ue, ok := AsError(wrapped)
	if !ok {
		t.Fatal("expected upstream error in chain")
	}
	if ue.Type != ErrorNotFound {
		t.Errorf("Type = %v, want ErrorNotFound", ue.Type)
	}
	if !IsNotFound(wrapped) {
		t.Error("IsNotFound should see through wrapping")
	}
	if IsNotFound(errors.New("plain")) {
		t.Error("plain errors are not upstream not-found")
	}
}

func TestErrorString(t *testing.T) {
	withStatus := ClassifyStatus(http.StatusServiceUnavailable)
	if withStatus.Error() != "upstream: live feed server error (status 503)" {
		t.Errorf("unexpected message %q", withStatus.Error())
	}
	noStatus := BadPayload("unexpected end of JSON input")
	if noStatus.Error() != "upstream: unreadable payload: unexpected end of JSON input" {
		t.Errorf("unexpected message %q", noStatus.Error())
	}
}
