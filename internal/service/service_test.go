package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nsvirk/financeapi/internal/auth"
	"github.com/nsvirk/financeapi/internal/repository"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repository.ConnectSQLite(":memory:", "silent")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newTestTokens() *auth.TokenIssuer {
	return auth.NewTokenIssuer(testJWTSecret, "financeapi", time.Hour)
}

// sentCode is one delivered two-factor email
type sentCode struct {
	To        string
	FirstName string
	Code      string
}

// fakeMailer records two-factor emails instead of sending them
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (m *fakeMailer) SendTwoFactorCode(ctx context.Context, to, firstName, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentCode{To: to, FirstName: firstName, Code: code})
	return nil
}

func (m *fakeMailer) last() (sentCode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentCode{}, false
	}
	return m.sent[len(m.sent)-1], true
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

var errSMTPDown = errors.New("smtp down")

// blockingMailer never delivers, it returns once ctx is done
type blockingMailer struct{}

func (blockingMailer) SendTwoFactorCode(ctx context.Context, to, firstName, code string) error {
	<-ctx.Done()
	return ctx.Err()
}
