package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/AnshRaj112/visitor-backend/internal/apperrors"
	"github.com/AnshRaj112/visitor-backend/internal/models"
	"github.com/AnshRaj112/visitor-backend/internal/store"
	"github.com/AnshRaj112/visitor-backend/pkg/utils"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// AdminSessionDuration is 7 days
	AdminSessionDuration = 7 * 24 * time.Hour
	// AdminSessionKeyPrefix is the Redis key prefix for admin sessions
	AdminSessionKeyPrefix = "admin_session:"

	minAdminPasswordLength = 8
)

// AdminSession is what a session token resolves to.
type AdminSession struct {
	AdminID  uuid.UUID `json:"admin_id"`
	Username string    `json:"username"`
}

// AdminAuth verifies admin credentials and manages their Redis sessions.
type AdminAuth struct {
	admins store.AdminStore
	redis  *redis.Client
	clock  Clock
}

func NewAdminAuth(admins store.AdminStore, redisClient *redis.Client, clock Clock) *AdminAuth {
	if clock == nil {
		clock = RealClock{}
	}
	return &AdminAuth{admins: admins, redis: redisClient, clock: clock}
}

// Login checks the password and opens a session. Unknown users and wrong
// passwords get the same error.
func (a *AdminAuth) Login(ctx context.Context, username, password string) (string, *models.Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", nil, apperrors.Validation("username and password are required")
	}

	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	admin, err := a.admins.FindByUsername(sctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil, apperrors.Unauthorized("invalid credentials")
	}
	if err != nil {
		return "", nil, apperrors.TransientIO("failed to load admin", err)
	}

	ok, err := utils.VerifyPassword(password, admin.PasswordHash)
	if err != nil || !ok {
		return "", nil, apperrors.Unauthorized("invalid credentials")
	}
	if !admin.IsActive {
		return "", nil, apperrors.Forbidden("admin account is disabled")
	}

	token, err := a.createSession(ctx, AdminSession{AdminID: admin.ID, Username: admin.Username})
	if err != nil {
		return "", nil, apperrors.TransientIO("failed to create session", err)
	}
	return token, admin, nil
}

func (a *AdminAuth) createSession(ctx context.Context, s AdminSession) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := base64.URLEncoding.EncodeToString(tokenBytes)

	payload, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	if err := a.redis.Set(ctx, AdminSessionKeyPrefix+token, payload, AdminSessionDuration).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Validate resolves a session token and extends it by another session duration.
func (a *AdminAuth) Validate(ctx context.Context, token string) (*AdminSession, error) {
	if token == "" {
		return nil, apperrors.Unauthorized("admin session required")
	}
	key := AdminSessionKeyPrefix + token

	raw, err := a.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.Unauthorized("admin session expired or invalid")
	}
	if err != nil {
		return nil, apperrors.TransientIO("failed to read session", err)
	}

	var s AdminSession
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, apperrors.Unauthorized("admin session expired or invalid")
	}
	_ = a.redis.Expire(ctx, key, AdminSessionDuration).Err()
	return &s, nil
}

func (a *AdminAuth) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return a.redis.Del(ctx, AdminSessionKeyPrefix+token).Err()
}

// CreateAdmin stores a new active admin with an Argon2id password hash.
func (a *AdminAuth) CreateAdmin(ctx context.Context, username, password string) (*models.Admin, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 || len(username) > 50 {
		return nil, apperrors.Validation("username must be between 3 and 50 characters")
	}
	if len(password) < minAdminPasswordLength {
		return nil, apperrors.Validation("password must be at least %d characters", minAdminPasswordLength)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := a.clock.Now()
	admin := &models.Admin{
		ID:           uuid.New(),
		CreatedAt:    now,
		UpdatedAt:    now,
		Username:     username,
		IsActive:     true,
		PasswordHash: hash,
	}

	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := a.admins.Create(sctx, admin); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperrors.Conflict("admin %q already exists", username)
		}
		return nil, apperrors.TransientIO("failed to create admin", err)
	}
	return admin, nil
}
