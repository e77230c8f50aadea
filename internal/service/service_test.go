package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/toolvault/toolvault/internal/domain"
	"github.com/toolvault/toolvault/internal/repository"
	"github.com/toolvault/toolvault/internal/security"
)

func newServiceDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&domain.Role{},
		&domain.User{},
		&domain.AiToolType{},
		&domain.AiTool{},
		&domain.VerificationCode{},
		&domain.Session{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// captureMailer records outbound mail instead of delivering it. Setting fail
// makes every send error, exercising the delivery-failure paths.
type captureMailer struct {
	mu   sync.Mutex
	sent []Mail
	fail bool
}

func (m *captureMailer) Send(_ context.Context, mail Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp relay refused connection")
	}
	m.sent = append(m.sent, mail)
	return nil
}

func (m *captureMailer) lastBody() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].Body
}

func (m *captureMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// codeFromMailBody digs the six-digit code out of the message template.
func codeFromMailBody(t *testing.T, body string) string {
	t.Helper()
	const marker = "Your verification code is: "
	i := strings.Index(body, marker)
	if i < 0 {
		t.Fatalf("no verification code in mail body %q", body)
	}
	code := body[i+len(marker):]
	if j := strings.IndexByte(code, '\n'); j >= 0 {
		code = code[:j]
	}
	return strings.TrimSpace(code)
}

type authFixture struct {
	db       *gorm.DB
	userRepo repository.UserRepository
	codeRepo repository.VerificationCodeRepository
	mailer   *captureMailer
	two      *TwoFactorService
	tokens   *TokenService
	auth     *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db := newServiceDBForTest(t)
	mailer := &captureMailer{}
	codeRepo := repository.NewVerificationCodeRepository(db)
	userRepo := repository.NewUserRepository(db)
	two := NewTwoFactorService(codeRepo, mailer, discardLogger(), 10*time.Minute)
	jwtMgr := security.NewJWTManager("toolvault", "toolvault-api", "abcdefghijklmnopqrstuvwxyz123456")
	tokens := NewTokenService(jwtMgr, repository.NewSessionRepository(db), "pepper-1234567890", time.Hour)
	auth := NewAuthService(userRepo, two, tokens, discardLogger(), time.Minute)
	return &authFixture{
		db:       db,
		userRepo: userRepo,
		codeRepo: codeRepo,
		mailer:   mailer,
		two:      two,
		tokens:   tokens,
		auth:     auth,
	}
}

func (fx *authFixture) seedUser(t *testing.T, email, password string, roleNames ...string) *domain.User {
	t.Helper()
	hash, err := security.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	roleIDs := make([]uint, 0, len(roleNames))
	for _, name := range roleNames {
		var role domain.Role
		if err := fx.db.Where("name = ?", name).FirstOrCreate(&role, domain.Role{Name: name}).Error; err != nil {
			t.Fatalf("seed role %q: %v", name, err)
		}
		roleIDs = append(roleIDs, role.ID)
	}
	user := &domain.User{Name: "Test User", Email: email, PasswordHash: hash, Active: true}
	if err := fx.userRepo.Create(user, roleIDs); err != nil {
		t.Fatalf("seed user %q: %v", email, err)
	}
	loaded, err := fx.userRepo.FindByEmail(email)
	if err != nil {
		t.Fatalf("reload seeded user: %v", err)
	}
	return loaded
}
