package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/toolvault/toolvault/internal/database"
	"github.com/toolvault/toolvault/internal/domain"
	"github.com/toolvault/toolvault/internal/http/handler"
	"github.com/toolvault/toolvault/internal/http/router"
	"github.com/toolvault/toolvault/internal/repository"
	"github.com/toolvault/toolvault/internal/security"
	"github.com/toolvault/toolvault/internal/service"
)

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

// codeCaptureMailer records outbound verification mail so tests can redeem
// the codes without a real relay.
type codeCaptureMailer struct {
	mu   sync.Mutex
	sent []service.Mail
}

func (m *codeCaptureMailer) Send(_ context.Context, mail service.Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, mail)
	return nil
}

func (m *codeCaptureMailer) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no verification mail captured")
	}
	body := m.sent[len(m.sent)-1].Body
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

type testEnv struct {
	baseURL  string
	client   *http.Client
	db       *gorm.DB
	mailer   *codeCaptureMailer
	store    *service.InMemoryListCacheStore
	userRepo repository.UserRepository
	users    *service.UserService
}

type testEnvOptions struct {
	resendCooldown time.Duration
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithOptions(t, testEnvOptions{resendCooldown: time.Minute})
}

func newTestEnvWithOptions(t *testing.T, opts testEnvOptions) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := database.Seed(db, "owner@example.com", "Owner#Pass1234"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mailer := &codeCaptureMailer{}
	store := service.NewInMemoryListCacheStore()
	cache := service.NewListCache(store, log)

	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	typeRepo := repository.NewTypeRepository(db)
	toolRepo := repository.NewToolRepository(db)
	codeRepo := repository.NewVerificationCodeRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	jwtMgr := security.NewJWTManager("toolvault", "toolvault-api", "abcdefghijklmnopqrstuvwxyz123456")
	tokens := service.NewTokenService(jwtMgr, sessionRepo, "pepper-1234567890", time.Hour)
	twoFactor := service.NewTwoFactorService(codeRepo, mailer, log, 10*time.Minute)
	authSvc := service.NewAuthService(userRepo, twoFactor, tokens, log, opts.resendCooldown)
	toolSvc := service.NewToolService(toolRepo, typeRepo, roleRepo, userRepo, cache, log)
	typeSvc := service.NewTypeService(typeRepo, cache, time.Minute, log)
	roleSvc := service.NewRoleService(roleRepo, log)
	userSvc := service.NewUserService(userRepo, roleRepo, log)

	r := router.NewRouter(router.Dependencies{
		AuthHandler:      handler.NewAuthHandler(authSvc),
		ToolHandler:      handler.NewToolHandler(toolSvc),
		TypeHandler:      handler.NewTypeHandler(typeSvc),
		RoleHandler:      handler.NewRoleHandler(roleSvc),
		UserHandler:      handler.NewUserHandler(userSvc),
		TokenService:     tokens,
		CORSOrigins:      []string{"http://localhost"},
		AuthRateLimitRPM: 1000,
		APIRateLimitRPM:  1000,
		EnableOTelHTTP:   false,
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testEnv{
		baseURL:  srv.URL,
		client:   srv.Client(),
		db:       db,
		mailer:   mailer,
		store:    store,
		userRepo: userRepo,
		users:    userSvc,
	}
}

func (env *testEnv) doJSON(t *testing.T, method, path string, body any, token string) (*http.Response, apiEnvelope) {
	t.Helper()
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		payload = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, env.baseURL+path, payload)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := env.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env2 apiEnvelope
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env2); err != nil {
			t.Fatalf("decode envelope from %q: %v", raw, err)
		}
	}
	return resp, env2
}

// seedMember creates an active account holding the named roles.
func (env *testEnv) seedMember(t *testing.T, email, password string, roleNames ...string) *domain.User {
	t.Helper()
	roleIDs := make([]uint, 0, len(roleNames))
	for _, name := range roleNames {
		var role domain.Role
		if err := env.db.Where("name = ?", name).First(&role).Error; err != nil {
			t.Fatalf("find role %q: %v", name, err)
		}
		roleIDs = append(roleIDs, role.ID)
	}
	user, err := env.users.Create(context.Background(), service.UserInput{
		Name:     "Member",
		Email:    email,
		Password: password,
		RoleIDs:  roleIDs,
	})
	if err != nil {
		t.Fatalf("seed member %q: %v", email, err)
	}
	return user
}

// loginAs walks the full handshake and returns the bearer token.
func (env *testEnv) loginAs(t *testing.T, email, password string) string {
	t.Helper()
	resp, envlp := env.doJSON(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	if resp.StatusCode != http.StatusOK || !envlp.Success {
		t.Fatalf("login failed: status=%d envelope=%+v", resp.StatusCode, envlp)
	}
	var pending struct {
		Requires2FA bool `json:"requires_2fa"`
		UserID      uint `json:"user_id"`
	}
	if err := json.Unmarshal(envlp.Data, &pending); err != nil {
		t.Fatalf("decode pending login: %v", err)
	}
	if !pending.Requires2FA {
		t.Fatal("expected requires_2fa=true")
	}

	resp, envlp = env.doJSON(t, http.MethodPost, "/api/v1/auth/verify-2fa", map[string]any{
		"user_id": pending.UserID,
		"code":    env.mailer.lastCode(t),
	}, "")
	if resp.StatusCode != http.StatusOK || !envlp.Success {
		t.Fatalf("verify-2fa failed: status=%d envelope=%+v", resp.StatusCode, envlp)
	}
	var result struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(envlp.Data, &result); err != nil {
		t.Fatalf("decode auth result: %v", err)
	}
	if result.Token == "" {
		t.Fatal("expected bearer token")
	}
	return result.Token
}

func roleID(t *testing.T, db *gorm.DB, name string) uint {
	t.Helper()
	var role domain.Role
	if err := db.Where("name = ?", name).First(&role).Error; err != nil {
		t.Fatalf("find role %q: %v", name, err)
	}
	return role.ID
}

func typeID(t *testing.T, db *gorm.DB, name string) uint {
	t.Helper()
	var toolType domain.AiToolType
	if err := db.Where("name = ?", name).First(&toolType).Error; err != nil {
		t.Fatalf("find type %q: %v", name, err)
	}
	return toolType.ID
}
