package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/financeapi/internal/apperror"
	"github.com/nsvirk/financeapi/internal/models"
	"github.com/nsvirk/financeapi/internal/service"
	"github.com/nsvirk/financeapi/pkg/utils/response"
)

// SessionCookieName is the cookie that carries the login session id
const SessionCookieName = "fin_sid"

// LoginRequest is the body of the password step
type LoginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

// TwoFactorRequest is the body of the code step, the code may be sent as a string or a number
type TwoFactorRequest struct {
	TwoFactorCode models.FlexString `json:"twoFactorCode"`
}

// SignupRequest is the body of the signup endpoint
type SignupRequest struct {
	Username      string `json:"username" validate:"required,max=64"`
	Email         string `json:"email" validate:"required,email"`
	FirstName     string `json:"firstName" validate:"required"`
	LastName      string `json:"lastName" validate:"required"`
	Password      string `json:"password" validate:"required,min=8,max=72"`
	BankAccount   string `json:"bank_account" validate:"omitempty,numeric"`
	RoutingNumber string `json:"routing_number" validate:"omitempty,numeric"`
}

// AuthHandler is the handler for login, two-factor check, logout and signup
type AuthHandler struct {
	service      *service.AuthService
	cookieTTL    time.Duration
	cookieSecure bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service *service.AuthService, cookieTTL time.Duration, cookieSecure bool) *AuthHandler {
	return &AuthHandler{service: service, cookieTTL: cookieTTL, cookieSecure: cookieSecure}
}

// Login checks the password and emails a verification code
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	ctx := c.Request().Context()
	sessionID, created, err := h.service.EnsureSession(ctx, sessionCookie(c))
	if err != nil {
		return response.FromError(c, err)
	}
	if created {
		h.setSessionCookie(c, sessionID)
	}

	result, err := h.service.Login(ctx, sessionID, req.UsernameOrEmail, req.Password)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, result)
}

// TwoFactorAuthCheck verifies the emailed code and returns a bearer token
func (h *AuthHandler) TwoFactorAuthCheck(c echo.Context) error {
	var req TwoFactorRequest
	if err := bindBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	result, err := h.service.VerifyTwoFactor(c.Request().Context(), sessionCookie(c), req.TwoFactorCode.String())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, result)
}

// Logout drops the login session
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.service.Logout(c.Request().Context(), sessionCookie(c)); err != nil {
		return response.FromError(c, err)
	}
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/api/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return response.SuccessResponse(c, map[string]string{"message": "logged out"})
}

// Signup creates an account and returns a bearer token
func (h *AuthHandler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := bindBody(c, &req); err != nil {
		return response.FromError(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.FromError(c, err)
	}

	result, err := h.service.Signup(c.Request().Context(), service.SignupParams{
		Username:      req.Username,
		Email:         req.Email,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Password:      req.Password,
		BankAccount:   req.BankAccount,
		RoutingNumber: req.RoutingNumber,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.CreatedResponse(c, result)
}

func (h *AuthHandler) setSessionCookie(c echo.Context, sessionID string) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/api/auth",
		MaxAge:   int(h.cookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func sessionCookie(c echo.Context) string {
	cookie, err := c.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// bindBody decodes the request body, any decoding failure is a validation error
func bindBody(c echo.Context, v interface{}) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, v); err != nil {
		return apperror.Validation("invalid request body")
	}
	return nil
}
