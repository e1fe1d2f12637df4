// Package service contains the service layer for the Finance API
package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/nsvirk/financeapi/internal/apperror"
	"github.com/nsvirk/financeapi/internal/auth"
	"github.com/nsvirk/financeapi/internal/mailer"
	"github.com/nsvirk/financeapi/internal/models"
	"github.com/nsvirk/financeapi/internal/repository"
	"github.com/nsvirk/financeapi/pkg/utils/zaplogger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	// DefaultTwoFactorMaxAttempts is used when no positive limit is configured
	DefaultTwoFactorMaxAttempts = 5
	// DefaultSendTimeout bounds the delivery of a verification code
	DefaultSendTimeout = 30 * time.Second
)

// LoginResult confirms that a verification code was sent
type LoginResult struct {
	Message string `json:"message"`
	SentTo  string `json:"sent_to"`
}

// TokenResult carries an issued bearer token
type TokenResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      models.Identity `json:"user"`
}

// SignupParams are the fields of a new account
type SignupParams struct {
	Username      string
	Email         string
	FirstName     string
	LastName      string
	Password      string
	BankAccount   string
	RoutingNumber string
}

// AuthService runs the password + emailed code login and signup
type AuthService struct {
	users        *repository.UserRepository
	transactions *repository.TransactionRepository
	sessions     repository.SessionStore
	tokens       *auth.TokenIssuer
	mailer       mailer.Dispatcher
	maxAttempts  int
	sendTimeout  time.Duration
	generateCode func() (string, error)
}

// NewAuthService creates a new auth service
func NewAuthService(db *gorm.DB, sessions repository.SessionStore, tokens *auth.TokenIssuer, dispatcher mailer.Dispatcher, maxAttempts int) *AuthService {
	if maxAttempts <= 0 {
		maxAttempts = DefaultTwoFactorMaxAttempts
	}
	return &AuthService{
		users:        repository.NewUserRepository(db),
		transactions: repository.NewTransactionRepository(db),
		sessions:     sessions,
		tokens:       tokens,
		mailer:       dispatcher,
		maxAttempts:  maxAttempts,
		sendTimeout:  DefaultSendTimeout,
		generateCode: GenerateTwoFactorCode,
	}
}

// WithSendTimeout sets how long Login waits for the code to be delivered, non-positive keeps the default
func (s *AuthService) WithSendTimeout(timeout time.Duration) *AuthService {
	if timeout > 0 {
		s.sendTimeout = timeout
	}
	return s
}

// GenerateTwoFactorCode returns a uniformly distributed code in 100000-999999
func GenerateTwoFactorCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}

// EnsureSession returns sessionID if it names a live session, otherwise a new session id.
// created reports whether a new session was made.
func (s *AuthService) EnsureSession(ctx context.Context, sessionID string) (string, bool, error) {
	if sessionID != "" {
		_, err := s.sessions.Get(ctx, sessionID)
		if err == nil {
			return sessionID, false, nil
		}
		if !errors.Is(err, repository.ErrSessionNotFound) {
			return "", false, apperror.Server("failed to read session", err)
		}
	}

	id, err := s.sessions.Create(ctx)
	if err != nil {
		return "", false, apperror.Server("failed to create session", err)
	}
	return id, true, nil
}

// Login checks the password and emails a verification code bound to the session
func (s *AuthService) Login(ctx context.Context, sessionID, usernameOrEmail, password string) (*LoginResult, error) {
	usernameOrEmail = strings.TrimSpace(usernameOrEmail)
	if usernameOrEmail == "" || password == "" {
		return nil, apperror.Validation("usernameOrEmail and password are required")
	}

	user, err := s.users.GetUserByUsernameOrEmail(ctx, usernameOrEmail)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			authAttemptsTotal.WithLabelValues("password", "unknown_user").Inc()
			return nil, apperror.NotFound("user not found")
		}
		return nil, apperror.Server("failed to get user", err)
	}

	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return nil, apperror.Server("failed to check password", err)
	}
	if !ok {
		authAttemptsTotal.WithLabelValues("password", "rejected").Inc()
		zaplogger.Warn("login rejected", zaplogger.Fields{"user_id": user.UserID})
		return nil, apperror.Authentication("invalid credentials")
	}

	code, err := s.generateCode()
	if err != nil {
		return nil, apperror.Server("failed to generate verification code", err)
	}
	identity := models.IdentityOf(user)
	zero := 0
	err = s.sessions.Set(ctx, sessionID, models.SessionUpdate{
		PendingCode:     &code,
		PendingIdentity: &identity,
		Attempts:        &zero,
	})
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, apperror.Authentication("session expired, please log in again")
		}
		return nil, apperror.Server("failed to store verification code", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	err = s.mailer.SendTwoFactorCode(sendCtx, user.Email, user.FirstName, code)
	cancel()
	if err != nil {
		// an undelivered code must not stay usable
		if clearErr := s.sessions.Set(ctx, sessionID, models.SessionUpdate{ClearPending: true}); clearErr != nil && !errors.Is(clearErr, repository.ErrSessionNotFound) {
			zaplogger.Error("failed to clear pending code", zaplogger.Fields{"error": clearErr.Error()})
		}
		return nil, apperror.Server("failed to send verification code", err)
	}

	authAttemptsTotal.WithLabelValues("password", "accepted").Inc()
	zaplogger.Info("verification code sent", zaplogger.Fields{
		"user_id": user.UserID,
		"email":   zaplogger.Mask(user.Email),
	})
	return &LoginResult{
		Message: "verification code sent",
		SentTo:  zaplogger.Mask(user.Email),
	}, nil
}

// VerifyTwoFactor checks the submitted code against the session and issues a token.
// A wrong code keeps the pending code usable until the attempt limit is reached.
func (s *AuthService) VerifyTwoFactor(ctx context.Context, sessionID, submittedCode string) (*TokenResult, error) {
	submittedCode = strings.TrimSpace(submittedCode)
	if submittedCode == "" {
		return nil, apperror.Validation("twoFactorCode is required")
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			authAttemptsTotal.WithLabelValues("twofactor", "expired").Inc()
			return nil, apperror.Authentication("session expired, please log in again")
		}
		return nil, apperror.Server("failed to read session", err)
	}
	if !session.HasPendingCode() {
		authAttemptsTotal.WithLabelValues("twofactor", "no_code").Inc()
		return nil, apperror.Authentication("no verification code pending, please log in again")
	}

	// spend the attempt before comparing
	attempts, err := s.sessions.IncrAttempts(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, apperror.Authentication("session expired, please log in again")
		}
		if errors.Is(err, repository.ErrNoPendingCode) {
			authAttemptsTotal.WithLabelValues("twofactor", "no_code").Inc()
			return nil, apperror.Authentication("no verification code pending, please log in again")
		}
		return nil, apperror.Server("failed to update session", err)
	}
	if attempts > s.maxAttempts {
		return nil, s.lockSession(ctx, session)
	}

	if subtle.ConstantTimeCompare([]byte(submittedCode), []byte(session.PendingCode)) != 1 {
		if attempts == s.maxAttempts {
			return nil, s.lockSession(ctx, session)
		}
		authAttemptsTotal.WithLabelValues("twofactor", "rejected").Inc()
		return nil, apperror.Authentication("invalid verification code")
	}

	// consume the code before issuing so it cannot be replayed
	if err := s.sessions.Set(ctx, sessionID, models.SessionUpdate{ClearPending: true}); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, apperror.Authentication("session expired, please log in again")
		}
		return nil, apperror.Server("failed to update session", err)
	}

	result, err := s.issue(*session.PendingIdentity)
	if err != nil {
		return nil, err
	}
	authAttemptsTotal.WithLabelValues("twofactor", "accepted").Inc()
	zaplogger.Info("two-factor verified", zaplogger.Fields{"user_id": session.PendingIdentity.UserID})
	return result, nil
}

// lockSession drops the pending code once the attempt limit is spent
func (s *AuthService) lockSession(ctx context.Context, session *models.Session) error {
	if err := s.sessions.Set(ctx, session.ID, models.SessionUpdate{ClearPending: true}); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return apperror.Server("failed to update session", err)
	}
	authAttemptsTotal.WithLabelValues("twofactor", "locked").Inc()
	zaplogger.Warn("two-factor attempts exhausted", zaplogger.Fields{"user_id": session.PendingIdentity.UserID})
	return apperror.Authentication("too many invalid codes, please log in again")
}

// Logout drops the session
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return apperror.Server("failed to delete session", err)
	}
	return nil
}

// Signup creates a user and issues a token for it
func (s *AuthService) Signup(ctx context.Context, params SignupParams) (*TokenResult, error) {
	params.Username = strings.TrimSpace(params.Username)
	params.Email = strings.TrimSpace(params.Email)
	params.BankAccount = strings.TrimSpace(params.BankAccount)
	params.RoutingNumber = strings.TrimSpace(params.RoutingNumber)
	if params.Username == "" || params.Email == "" || params.FirstName == "" || params.LastName == "" || params.Password == "" {
		return nil, apperror.Validation("username, email, firstName, lastName and password are required")
	}

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, params.Username, params.Email)
	if err != nil {
		return nil, apperror.Server("failed to check user", err)
	}
	if exists {
		return nil, apperror.Conflict("username or email already exists")
	}
	if params.BankAccount != "" {
		taken, err := s.users.BankAccountExists(ctx, params.BankAccount)
		if err != nil {
			return nil, apperror.Server("failed to check bank account", err)
		}
		if taken {
			return nil, apperror.Conflict("bank account already registered")
		}
	}

	hash, err := auth.HashPassword(params.Password)
	if err != nil {
		return nil, apperror.Server("failed to hash password", err)
	}

	user := &models.User{
		Username:      params.Username,
		Email:         params.Email,
		PasswordHash:  hash,
		FirstName:     params.FirstName,
		LastName:      params.LastName,
		BankAccount:   params.BankAccount,
		RoutingNumber: params.RoutingNumber,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, apperror.Conflict("username, email or bank account already exists")
		}
		return nil, apperror.Server("failed to create user", err)
	}

	authAttemptsTotal.WithLabelValues("signup", "accepted").Inc()
	zaplogger.Info("user signed up", zaplogger.Fields{"user_id": user.UserID})
	return s.issue(models.IdentityOf(user))
}

// Dashboard returns the landing data of a user, the balance is deposits minus withdrawals
func (s *AuthService) Dashboard(ctx context.Context, userID string) (*models.Dashboard, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, apperror.Server("failed to get user", err)
	}

	balance := decimal.Zero
	if user.BankAccount != "" {
		balance, err = s.transactions.GetBalance(ctx, user.BankAccount)
		if err != nil {
			return nil, apperror.Server("failed to get balance", err)
		}
	}

	return &models.Dashboard{
		Username:  user.Username,
		FirstName: user.FirstName,
		Balance:   balance,
	}, nil
}

func (s *AuthService) issue(identity models.Identity) (*TokenResult, error) {
	token, expiresAt, err := s.tokens.Issue(identity)
	if err != nil {
		return nil, apperror.Server("failed to issue token", err)
	}
	return &TokenResult{Token: token, ExpiresAt: expiresAt, User: identity}, nil
}
