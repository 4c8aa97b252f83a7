package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/plantshop/internal/model"
)

func TestMapAPIErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *model.APIError
		want int
	}{
		{model.NewValidationError("x"), http.StatusBadRequest},
		{model.NewInvalidQuantityError(0), http.StatusBadRequest},
		{model.NewInvalidCredentialsError(), http.StatusUnauthorized},
		{model.NewInvalidTokenError(), http.StatusUnauthorized},
		{model.NewUnauthorizedError(), http.StatusUnauthorized},
		{model.NewDuplicateEmailError(), http.StatusConflict},
		{model.NewItemNotFoundError("p"), http.StatusNotFound},
		{model.NewCartEntryNotFoundError("e"), http.StatusNotFound},
		{model.NewWishlistEntryNotFoundError("p"), http.StatusNotFound},
		{model.NewUserNotFoundError(), http.StatusNotFound},
		{model.NewRateLimitExceededError(), http.StatusTooManyRequests},
		{model.NewStoreUnavailableError(), http.StatusServiceUnavailable},
		{model.NewInternalError(), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := mapAPIErrorToHTTPStatus(tt.err); got != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.err.Code, got, tt.want)
		}
	}
}

func TestHandleServiceError_WrappedAPIError(t *testing.T) {
	w := httptest.NewRecorder()
	handleServiceError(w, fmt.Errorf("context: %w", model.NewDuplicateEmailError()))

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	if got := parseAPIErrorResponse(t, w)["code"]; got != model.ErrCodeDuplicateEmail {
		t.Errorf("code = %q, want %q", got, model.ErrCodeDuplicateEmail)
	}
}

func TestHandleServiceError_StoreUnavailable_Returns503WithRetryAfter(t *testing.T) {
	w := httptest.NewRecorder()
	handleServiceError(w, fmt.Errorf("failed to list cart: %w: dial tcp: refused", model.ErrStoreUnavailable))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	body := w.Body.String()
	if strings.Contains(body, "dial tcp") {
		t.Errorf("response leaks internal error details: %s", body)
	}
}

func TestHandleServiceError_UnknownError_Returns500WithoutDetails(t *testing.T) {
	w := httptest.NewRecorder()
	handleServiceError(w, errors.New("pq: relation \"users\" does not exist"))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if strings.Contains(w.Body.String(), "relation") {
		t.Errorf("response leaks internal error details: %s", w.Body.String())
	}
	if got := parseAPIErrorResponse(t, w)["code"]; got != model.ErrCodeInternal {
		t.Errorf("code = %q, want %q", got, model.ErrCodeInternal)
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		PlantID  string `json:"plantId"`
		Quantity int    `json:"quantity"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "valid", body: `{"plantId":"p","quantity":2}`},
		{name: "unknown field", body: `{"plantId":"p","price":1}`, wantErr: true},
		{name: "wrong type", body: `{"quantity":"two"}`, wantErr: true},
		{name: "empty body", body: ``, wantErr: true},
		{name: "trailing value", body: `{"plantId":"p"}{"plantId":"q"}`, wantErr: true},
		{name: "too large", body: `{"plantId":"` + strings.Repeat("a", maxRequestBodyBytes) + `"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst payload
			err := decodeJSON(httptest.NewRecorder(), req, &dst)

			if tt.wantErr {
				if !errors.Is(err, model.NewValidationError("")) {
					t.Errorf("err = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if dst.PlantID != "p" || dst.Quantity != 2 {
				t.Errorf("decoded = %+v", dst)
			}
		})
	}
}

func TestDecodeJSON_MalformedBody_UsesFixedMessage(t *testing.T) {
	type payload struct {
		Quantity int `json:"quantity"`
	}

	for _, body := range []string{`{"quantity":1,"ownerId":"x"}`, `{"quantity":"two"}`, `{"quantity":`} {
		req := httptest.NewRequest(http.MethodPost, "/api/cart", strings.NewReader(body))
		var dst payload
		err := decodeJSON(httptest.NewRecorder(), req, &dst)

		var apiErr *model.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("%s: err = %v, want APIError", body, err)
		}
		if apiErr.Code != model.ErrCodeValidation {
			t.Errorf("%s: code = %s, want %s", body, apiErr.Code, model.ErrCodeValidation)
		}
		if apiErr.Message != msgMalformedBody {
			t.Errorf("%s: message = %q, want fixed message", body, apiErr.Message)
		}
	}
}
