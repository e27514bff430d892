package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/argon2"

	"github.com/civitas-institute/civitas/internal/apperror"
)

// Argon2id parameters. OWASP-recommended baseline.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // 64 MB
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// sessionKeyPrefix namespaces session tokens in Redis.
const sessionKeyPrefix = "session:"

// Service handles authentication business logic.
type Service struct {
	repo       UserRepository
	rdb        *redis.Client
	sessionTTL time.Duration
	logger     *slog.Logger
}

// NewService creates a new auth service.
func NewService(repo UserRepository, rdb *redis.Client, sessionTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		rdb:        rdb,
		sessionTTL: sessionTTL,
		logger:     logger.With("plugin", "auth"),
	}
}

// Login authenticates a user and creates a session. It returns the session
// token to be set as a cookie. All credential failures return the same
// generic error so the response does not reveal whether the email exists.
func (s *Service) Login(ctx context.Context, input LoginInput) (string, *Session, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return "", nil, apperror.NewBadRequest("email and password are required")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if apperror.IsNotFound(err) {
			// Burn comparable time so lookups and verifies are indistinguishable.
			verifyPassword(input.Password, dummyHash)
			return "", nil, apperror.NewUnauthorized("invalid email or password")
		}
		return "", nil, fmt.Errorf("looking up user: %w", err)
	}

	ok, err := verifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return "", nil, fmt.Errorf("verifying password: %w", err)
	}
	if !ok {
		return "", nil, apperror.NewUnauthorized("invalid email or password")
	}

	if user.IsDisabled {
		return "", nil, apperror.NewForbidden("account is disabled")
	}

	token, sess, err := s.createSession(ctx, user)
	if err != nil {
		return "", nil, err
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID); err != nil {
		// Not worth failing the login over.
		s.logger.Warn("failed to stamp last login", "user_id", user.ID, "error", err)
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return token, sess, nil
}

// Logout destroys the session identified by token. Unknown tokens are a
// no-op so logout is idempotent.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.rdb.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// ValidateSession resolves a session token to its Session. It fails closed:
// any Redis error, malformed payload, or unknown token yields an
// unauthorized error, never a guessed identity.
func (s *Service) ValidateSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, apperror.NewUnauthorized("not authenticated")
	}

	raw, err := s.rdb.Get(ctx, sessionKeyPrefix+token).Result()
	if err == redis.Nil {
		return nil, apperror.NewUnauthorized("session expired or invalid")
	}
	if err != nil {
		return nil, fmt.Errorf("fetching session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		// Corrupt payload. Drop it rather than trusting it.
		s.rdb.Del(ctx, sessionKeyPrefix+token)
		return nil, apperror.NewUnauthorized("session expired or invalid")
	}

	// Sliding expiry: active sessions stay alive.
	s.rdb.Expire(ctx, sessionKeyPrefix+token, s.sessionTTL)

	return &sess, nil
}

// SessionTTL reports the configured session lifetime, used for cookie expiry.
func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}

// createSession generates an opaque token and stores the session in Redis.
func (s *Service) createSession(ctx context.Context, user *User) (string, *Session, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", nil, fmt.Errorf("generating session token: %w", err)
	}
	token := hex.EncodeToString(tokenBytes)

	sess := &Session{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.DisplayName,
		CreatedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return "", nil, fmt.Errorf("encoding session: %w", err)
	}

	if err := s.rdb.Set(ctx, sessionKeyPrefix+token, payload, s.sessionTTL).Err(); err != nil {
		return "", nil, fmt.Errorf("storing session: %w", err)
	}
	return token, sess, nil
}

// --- Password hashing (argon2id, PHC string format) ---

// dummyHash is verified against when the email is unknown, to keep login
// timing uniform. Hash of an unguessable random string.
var dummyHash = func() string {
	h, _ := HashPassword("cce1ed1c9e0f7b0c2a1d")
	return h
}()

// HashPassword hashes a password with argon2id and returns the PHC-format
// encoded string.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// verifyPassword checks a password against a PHC-format argon2id hash using
// a constant-time comparison.
func verifyPassword(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, fmt.Errorf("malformed password hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("parsing hash version: %w", err)
	}
	if version != argon2.Version {
		return false, fmt.Errorf("unsupported argon2 version %d", version)
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false, fmt.Errorf("parsing hash parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("decoding salt: %w", err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("decoding hash: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, iterations, memory, threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(key, expected) == 1, nil
}
