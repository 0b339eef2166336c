package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/you/branchauth/domain"
	"github.com/you/branchauth/internal/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type handlerDeps struct {
	authSvc   *mocks.MockAuthService
	verifySvc *mocks.MockVerificationService
	resetSvc  *mocks.MockResetService
}

func newTestHandlers(t *testing.T) (*AuthHandlers, *handlerDeps) {
	t.Helper()
	deps := &handlerDeps{
		authSvc:   mocks.NewMockAuthService(),
		verifySvc: mocks.NewMockVerificationService(),
		resetSvc:  mocks.NewMockResetService(),
	}
	return NewAuthHandlers(deps.authSvc, deps.verifySvc, deps.resetSvc), deps
}

func performJSON(t *testing.T, handler gin.HandlerFunc, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	c.Request = req

	handler(c)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	return body
}

func TestAuthHandlers_Login(t *testing.T) {
	validBody := `{"address":"branch@example.com","password":"correct-password"}`

	tests := []struct {
		name           string
		body           string
		setupMocks     func(deps *handlerDeps)
		expectedStatus int
		expectedReason string
		validate       func(t *testing.T, w *httptest.ResponseRecorder, body map[string]interface{})
	}{
		{
			name: "successful login",
			body: validBody,
			setupMocks: func(deps *handlerDeps) {
				deps.authSvc.LoginFunc = func(ctx context.Context, address, password string, meta domain.RequestMeta) (*domain.LoginResult, error) {
					return &domain.LoginResult{
						Principal: &domain.Principal{ID: 1, IdentityAddress: address},
						Token:     "session_token",
						ExpiresAt: time.Now().Add(24 * time.Hour),
					}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validate: func(t *testing.T, w *httptest.ResponseRecorder, body map[string]interface{}) {
				data := body["data"].(map[string]interface{})
				if data["token"] != "session_token" {
					t.Errorf("expected session token in response, got %v", data["token"])
				}
				if data["token_type"] != "Bearer" {
					t.Errorf("expected Bearer token type, got %v", data["token_type"])
				}
			},
		},
		{
			name:           "malformed JSON",
			body:           `{"address":`,
			setupMocks:     func(deps *handlerDeps) {},
			expectedStatus: http.StatusBadRequest,
			expectedReason: "validation_failed",
		},
		{
			name:           "missing password",
			body:           `{"address":"branch@example.com"}`,
			setupMocks:     func(deps *handlerDeps) {},
			expectedStatus: http.StatusBadRequest,
			expectedReason: "validation_failed",
		},
		{
			name:           "invalid credentials",
			body:           validBody,
			setupMocks:     func(deps *handlerDeps) {},
			expectedStatus: http.StatusUnauthorized,
			expectedReason: "invalid_credentials",
		},
		{
			name: "unverified account",
			body: validBody,
			setupMocks: func(deps *handlerDeps) {
				deps.authSvc.LoginFunc = func(ctx context.Context, address, password string, meta domain.RequestMeta) (*domain.LoginResult, error) {
					return nil, domain.ErrAccountUnverified
				}
			},
			expectedStatus: http.StatusForbidden,
			expectedReason: "account_unverified",
		},
		{
			name: "locked account carries Retry-After",
			body: validBody,
			setupMocks: func(deps *handlerDeps) {
				deps.authSvc.LoginFunc = func(ctx context.Context, address, password string, meta domain.RequestMeta) (*domain.LoginResult, error) {
					return nil, &domain.AccountLockedError{RetryAfter: 10 * time.Minute}
				}
			},
			expectedStatus: http.StatusLocked,
			expectedReason: "account_locked",
			validate: func(t *testing.T, w *httptest.ResponseRecorder, body map[string]interface{}) {
				if w.Header().Get("Retry-After") != "600" {
					t.Errorf("expected Retry-After 600, got %q", w.Header().Get("Retry-After"))
				}
			},
		},
		{
			name: "rate limited carries Retry-After",
			body: validBody,
			setupMocks: func(deps *handlerDeps) {
				deps.authSvc.LoginFunc = func(ctx context.Context, address, password string, meta domain.RequestMeta) (*domain.LoginResult, error) {
					return nil, &domain.RateLimitedError{RetryAfter: 30 * time.Second}
				}
			},
			expectedStatus: http.StatusTooManyRequests,
			expectedReason: "rate_limited",
			validate: func(t *testing.T, w *httptest.ResponseRecorder, body map[string]interface{}) {
				if w.Header().Get("Retry-After") != "30" {
					t.Errorf("expected Retry-After 30, got %q", w.Header().Get("Retry-After"))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlers, deps := newTestHandlers(t)
			tt.setupMocks(deps)

			w := performJSON(t, handlers.Login, tt.body, nil)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			body := decodeBody(t, w)
			if tt.expectedReason != "" && body["reason"] != tt.expectedReason {
				t.Errorf("expected reason %q, got %v", tt.expectedReason, body["reason"])
			}
			if tt.validate != nil {
				tt.validate(t, w, body)
			}
		})
	}
}

func TestAuthHandlers_Logout(t *testing.T) {
	handlers, deps := newTestHandlers(t)

	var revoked string
	deps.authSvc.LogoutFunc = func(ctx context.Context, token string) error {
		revoked = token
		return nil
	}

	w := performJSON(t, handlers.Logout, "", map[string]string{
		"Authorization": "Bearer some-token",
	})

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if revoked != "some-token" {
		t.Errorf("expected bearer token passed through, got %q", revoked)
	}
}

func TestAuthHandlers_Logout_WithoutToken(t *testing.T) {
	handlers, _ := newTestHandlers(t)

	w := performJSON(t, handlers.Logout, "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("logout must always report success, got %d", w.Code)
	}
}

func TestAuthHandlers_EnumerationSafeMessages(t *testing.T) {
	// The response for a known address must be byte-identical to the
	// response for an unknown one; the handler relies on the service
	// returning nil for both, so this pins the shared message per route.
	body := `{"address":"branch@example.com"}`

	handlers, _ := newTestHandlers(t)

	for _, tc := range []struct {
		name     string
		handler  gin.HandlerFunc
		expected string
	}{
		{"initiate verification", handlers.InitiateVerification, msgVerificationSent},
		{"resend verification", handlers.ResendVerification, msgVerificationSent},
		{"forgot password", handlers.ForgotPassword, msgResetSent},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := performJSON(t, tc.handler, body, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}
			response := decodeBody(t, w)
			if response["message"] != tc.expected {
				t.Errorf("expected message %q, got %v", tc.expected, response["message"])
			}
		})
	}
}

func TestAuthHandlers_VerificationRequestErrors(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedReason string
	}{
		{
			name:           "rate limited",
			err:            &domain.RateLimitedError{RetryAfter: time.Minute},
			expectedStatus: http.StatusTooManyRequests,
			expectedReason: "rate_limited",
		},
		{
			name:           "notifier failure",
			err:            domain.ErrNotifierFailed,
			expectedStatus: http.StatusBadGateway,
			expectedReason: "message_not_sent",
		},
		{
			name:           "unexpected failure",
			err:            context.DeadlineExceeded,
			expectedStatus: http.StatusInternalServerError,
			expectedReason: "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlers, deps := newTestHandlers(t)
			deps.verifySvc.InitiateFunc = func(ctx context.Context, address string, meta domain.RequestMeta) error {
				return tt.err
			}

			w := performJSON(t, handlers.InitiateVerification, `{"address":"branch@example.com"}`, nil)
			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			body := decodeBody(t, w)
			if body["reason"] != tt.expectedReason {
				t.Errorf("expected reason %q, got %v", tt.expectedReason, body["reason"])
			}
		})
	}
}

func TestAuthHandlers_RedeemVerification(t *testing.T) {
	tests := []struct {
		name            string
		body            string
		setupMocks      func(deps *handlerDeps)
		expectedStatus  int
		expectedMessage string
		expectedReason  string
	}{
		{
			name: "fresh verification",
			body: `{"token":"raw_token"}`,
			setupMocks: func(deps *handlerDeps) {
				deps.verifySvc.RedeemFunc = func(ctx context.Context, token string) (*domain.VerificationResult, error) {
					return &domain.VerificationResult{Principal: &domain.Principal{ID: 1}}, nil
				}
			},
			expectedStatus:  http.StatusOK,
			expectedMessage: "Email address verified successfully",
		},
		{
			name: "already verified",
			body: `{"token":"raw_token"}`,
			setupMocks: func(deps *handlerDeps) {
				deps.verifySvc.RedeemFunc = func(ctx context.Context, token string) (*domain.VerificationResult, error) {
					return &domain.VerificationResult{Principal: &domain.Principal{ID: 1}, AlreadyVerified: true}, nil
				}
			},
			expectedStatus:  http.StatusOK,
			expectedMessage: "Email address already verified",
		},
		{
			name:           "invalid token",
			body:           `{"token":"bogus"}`,
			setupMocks:     func(deps *handlerDeps) {},
			expectedStatus: http.StatusBadRequest,
			expectedReason: "token_invalid",
		},
		{
			name: "expired token",
			body: `{"token":"raw_token"}`,
			setupMocks: func(deps *handlerDeps) {
				deps.verifySvc.RedeemFunc = func(ctx context.Context, token string) (*domain.VerificationResult, error) {
					return nil, domain.ErrTokenExpired
				}
			},
			expectedStatus: http.StatusBadRequest,
			expectedReason: "token_expired",
		},
		{
			name:           "missing token",
			body:           `{}`,
			setupMocks:     func(deps *handlerDeps) {},
			expectedStatus: http.StatusBadRequest,
			expectedReason: "validation_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlers, deps := newTestHandlers(t)
			tt.setupMocks(deps)

			w := performJSON(t, handlers.RedeemVerification, tt.body, nil)
			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			body := decodeBody(t, w)
			if tt.expectedMessage != "" && body["message"] != tt.expectedMessage {
				t.Errorf("expected message %q, got %v", tt.expectedMessage, body["message"])
			}
			if tt.expectedReason != "" && body["reason"] != tt.expectedReason {
				t.Errorf("expected reason %q, got %v", tt.expectedReason, body["reason"])
			}
		})
	}
}

func TestAuthHandlers_ResetPassword(t *testing.T) {
	validBody := `{"token":"raw_token","new_password":"new-password-123"}`

	tests := []struct {
		name            string
		body            string
		err             error
		expectedStatus  int
		expectedMessage string
		expectedReason  string
	}{
		{
			name:            "successful reset",
			body:            validBody,
			expectedStatus:  http.StatusOK,
			expectedMessage: "Password updated successfully",
		},
		{
			name:            "used token",
			body:            validBody,
			err:             domain.ErrTokenInvalidOrUsed,
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Invalid or expired token",
			expectedReason:  "token_invalid",
		},
		{
			name:            "expired token",
			body:            validBody,
			err:             domain.ErrTokenExpired,
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Invalid or expired token",
			expectedReason:  "token_expired",
		},
		{
			name:           "weak password",
			body:           validBody,
			err:            &domain.ValidationError{Field: "new_password", Reason: "must be at least 8 characters"},
			expectedStatus: http.StatusBadRequest,
			expectedReason: "validation_failed",
		},
		{
			name:           "missing fields",
			body:           `{"token":"raw_token"}`,
			expectedStatus: http.StatusBadRequest,
			expectedReason: "validation_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlers, deps := newTestHandlers(t)
			if tt.err != nil {
				deps.resetSvc.RedeemFunc = func(ctx context.Context, token, newPassword string, meta domain.RequestMeta) error {
					return tt.err
				}
			}

			w := performJSON(t, handlers.ResetPassword, tt.body, nil)
			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			body := decodeBody(t, w)
			if tt.expectedMessage != "" && body["message"] != tt.expectedMessage {
				t.Errorf("expected message %q, got %v", tt.expectedMessage, body["message"])
			}
			if tt.expectedReason != "" && body["reason"] != tt.expectedReason {
				t.Errorf("expected reason %q, got %v", tt.expectedReason, body["reason"])
			}
		})
	}
}

func TestAuthHandlers_Me(t *testing.T) {
	handlers, _ := newTestHandlers(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	c.Set("principal", &domain.Principal{
		ID:              1,
		IdentityAddress: "branch@example.com",
		EmailVerified:   true,
	})

	handlers.Me(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	data := body["data"].(map[string]interface{})
	if data["address"] != "branch@example.com" {
		t.Errorf("expected principal address, got %v", data["address"])
	}
}

func TestAuthHandlers_Me_Unauthenticated(t *testing.T) {
	handlers, _ := newTestHandlers(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/auth/me", nil)

	handlers.Me(c)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}
