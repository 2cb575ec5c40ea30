package api

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"resumate/internal/api/middleware"
	"resumate/internal/auth"
	"resumate/internal/database"
)

const (
	refreshTokenCookieName         = "refresh_token"
	refreshTokenBlacklistKeyPrefix = "auth:refresh:blacklist:"
	googleStateKeyPrefix           = "auth:google:state:"
	googleStateTTL                 = 10 * time.Minute
)

// AuthHandler handles registration, login, token refresh, logout and Google sign-in.
type AuthHandler struct {
	db           *gorm.DB
	authService  *auth.AuthService
	google       *auth.GoogleProvider
	redis        redis.UniversalClient
	logger       *slog.Logger
	throttle     *loginThrottle
	cookieDomain string
}

// AuthHandlerOptions groups the login throttling and cookie settings.
type AuthHandlerOptions struct {
	LoginRateLimitPerHour int
	LoginLockThreshold    int
	LoginLockTTL          time.Duration
	CookieDomain          string
}

// NewAuthHandler builds the handler. google may be nil when Google sign-in is disabled.
func NewAuthHandler(db *gorm.DB, authService *auth.AuthService, google *auth.GoogleProvider, redisClient redis.UniversalClient, logger *slog.Logger, opts AuthHandlerOptions) *AuthHandler {
	return &AuthHandler{
		db:           db,
		authService:  authService,
		google:       google,
		redis:        redisClient,
		logger:       logger,
		throttle:     newLoginThrottle(redisClient, opts),
		cookieDomain: opts.CookieDomain,
	}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Name     string `json:"name" binding:"max=255"`
}

type userResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Register creates an account and its empty profile.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}

	ctx := c.Request.Context()
	email := normalizeEmail(req.Email)
	logger := h.loggerFromContext(c).With(slog.String("email", email))

	var existing database.User
	if err := h.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		logger.Info("register conflict: user already exists")
		Conflict(c, "email already registered")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("register lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Error("hash password failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	user := database.User{
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hashed,
	}
	if err := createUserWithProfile(h.db.WithContext(ctx), &user); err != nil {
		logger.Error("create user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("user registered", slog.Uint64("user_id", uint64(user.ID)))
	c.JSON(http.StatusCreated, userResponse{ID: user.ID, Email: user.Email, Name: user.Name})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int    `json:"expiresIn"`
}

// Login checks the password and returns a token pair.
func (h *AuthHandler) Login(c *gin.Context) {
	ip := c.ClientIP()
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}

	ctx := c.Request.Context()
	email := normalizeEmail(req.Email)
	logger := h.loggerFromContext(c).With(slog.String("email", email))

	if err := h.throttle.admit(ctx, ip, email); err != nil {
		logger.Info("login throttled", slog.String("reason", err.Error()))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Info("login failed: user not found")
			auth.CheckPasswordHash(req.Password, "")
			_ = h.throttle.fail(ctx, email)
			Unauthorized(c)
			return
		}
		logger.Error("login query failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		logger.Info("login failed: password mismatch", slog.Uint64("user_id", uint64(user.ID)))
		_ = h.throttle.fail(ctx, email)
		Unauthorized(c)
		return
	}

	h.throttle.reset(ctx, email)

	tokenPair, err := h.authService.GenerateTokenPair(user.ID)
	if err != nil {
		logger.Error("generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.replyWithTokenPair(c, tokenPair)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh rotates a refresh token into a new pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken := h.extractRefreshToken(c)
	if refreshToken == "" {
		Unauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c)

	claims, ok := h.validRefreshClaims(c, logger, refreshToken)
	if !ok {
		return
	}

	key := refreshTokenBlacklistKeyPrefix + claims.ID
	if err := h.redis.Get(ctx, key).Err(); err == nil {
		logger.Info("refresh token revoked", slog.String("jti", claims.ID))
		Unauthorized(c)
		return
	} else if !errors.Is(err, redis.Nil) {
		logger.Error("refresh token blacklist lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).Select("id").First(&user, claims.UserID).Error; err != nil {
		logger.Info("refresh user not found", slog.Any("error", err))
		Unauthorized(c)
		return
	}

	tokenPair, err := h.authService.GenerateTokenPair(user.ID)
	if err != nil {
		logger.Error("refresh generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	// The old refresh token must not be usable twice.
	if err := h.revokeRefreshToken(ctx, key, claims.ExpiresAt); err != nil {
		logger.Error("refresh revoke old token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.replyWithTokenPair(c, tokenPair)
}

// Logout blacklists the refresh token and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken := h.extractRefreshToken(c)
	if refreshToken == "" {
		BadRequest(c, "refresh token missing")
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c)

	claims, ok := h.validRefreshClaims(c, logger, refreshToken)
	if !ok {
		return
	}

	key := refreshTokenBlacklistKeyPrefix + claims.ID
	if err := h.revokeRefreshToken(ctx, key, claims.ExpiresAt); err != nil {
		logger.Error("logout revoke token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     refreshTokenCookieName,
		Value:    "",
		MaxAge:   -1,
		Path:     "/",
		Secure:   h.isHTTPSRequest(c),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Domain:   h.getCookieDomain(),
	})
	c.Status(http.StatusOK)
}

// GoogleLogin redirects to Google's consent page.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	if h.google == nil {
		NotFound(c, "google sign-in is not enabled")
		return
	}

	state, err := randomState()
	if err != nil {
		h.loggerFromContext(c).Error("generate oauth state failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	if err := h.redis.Set(c.Request.Context(), googleStateKeyPrefix+state, "1", googleStateTTL).Err(); err != nil {
		h.loggerFromContext(c).Error("store oauth state failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.Redirect(http.StatusFound, h.google.AuthCodeURL(state))
}

// GoogleCallback completes the code flow and signs the user in, creating the account on
// first use.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if h.google == nil {
		NotFound(c, "google sign-in is not enabled")
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c)

	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		BadRequest(c, "state and code are required")
		return
	}
	if err := h.redis.GetDel(ctx, googleStateKeyPrefix+state).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			logger.Info("google callback with unknown state")
			Unauthorized(c)
			return
		}
		logger.Error("google state lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	identity, err := h.google.Exchange(ctx, code)
	if err != nil {
		logger.Warn("google exchange failed", slog.Any("error", err))
		Unauthorized(c)
		return
	}

	user, err := upsertGoogleUser(h.db.WithContext(ctx), identity)
	if err != nil {
		logger.Error("google user upsert failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	tokenPair, err := h.authService.GenerateTokenPair(user.ID)
	if err != nil {
		logger.Error("generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("google sign-in", slog.Uint64("user_id", uint64(user.ID)))
	h.replyWithTokenPair(c, tokenPair)
}

// upsertGoogleUser finds the user by Google subject, then by email, and creates one when
// neither matches.
func upsertGoogleUser(db *gorm.DB, identity auth.GoogleIdentity) (*database.User, error) {
	email := normalizeEmail(identity.Email)
	var user database.User
	err := db.Where("google_subject = ?", identity.Subject).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = db.Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		subject := identity.Subject
		if err := db.Model(&user).Update("google_subject", subject).Error; err != nil {
			return nil, err
		}
		user.GoogleSubject = &subject
		return &user, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	subject := identity.Subject
	user = database.User{Email: email, Name: strings.TrimSpace(identity.Name), GoogleSubject: &subject}
	if err := createUserWithProfile(db, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// createUserWithProfile inserts the user and its empty profile together.
func createUserWithProfile(db *gorm.DB, user *database.User) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		profile := database.Profile{UserID: user.ID, FullName: user.Name, Email: user.Email}
		return tx.Create(&profile).Error
	})
}

func (h *AuthHandler) validRefreshClaims(c *gin.Context, logger *slog.Logger, token string) (*auth.TokenClaims, bool) {
	claims, err := h.authService.ValidateToken(token)
	if err != nil {
		logger.Info("refresh token invalid", slog.Any("error", err))
		Unauthorized(c)
		return nil, false
	}
	if claims.TokenType != auth.TokenTypeRefresh {
		logger.Info("refresh token wrong type", slog.String("token_type", claims.TokenType))
		Unauthorized(c)
		return nil, false
	}
	if claims.ID == "" {
		logger.Info("refresh token missing jti")
		Unauthorized(c)
		return nil, false
	}
	return claims, true
}

func (h *AuthHandler) replyWithTokenPair(c *gin.Context, tokenPair auth.TokenPair) {
	h.setRefreshCookie(c, tokenPair.RefreshToken)
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken: tokenPair.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.authService.AccessTokenTTL().Seconds()),
	})
}

func (h *AuthHandler) extractRefreshToken(c *gin.Context) string {
	if token, err := c.Cookie(refreshTokenCookieName); err == nil && token != "" {
		return token
	}

	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	return ""
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, refreshToken string) {
	maxAge := int(h.authService.RefreshTokenTTL().Seconds())
	if maxAge <= 0 {
		maxAge = int(time.Hour.Seconds())
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     refreshTokenCookieName,
		Value:    refreshToken,
		MaxAge:   maxAge,
		Path:     "/",
		Secure:   h.isHTTPSRequest(c),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Domain:   h.getCookieDomain(),
		Expires:  time.Now().Add(h.authService.RefreshTokenTTL()),
	})
}

func (h *AuthHandler) revokeRefreshToken(ctx context.Context, key string, expiresAt *jwt.NumericDate) error {
	var ttl time.Duration
	if expiresAt == nil {
		ttl = h.authService.RefreshTokenTTL()
	} else {
		ttl = time.Until(expiresAt.Time)
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return h.redis.Set(ctx, key, "revoked", ttl).Err()
}

func (h *AuthHandler) loggerFromContext(c *gin.Context) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

func (h *AuthHandler) isHTTPSRequest(c *gin.Context) bool {
	if c.Request == nil {
		return false
	}
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(c.Request.Header.Get("X-Forwarded-Proto"), "https")
}

func (h *AuthHandler) getCookieDomain() string { return strings.TrimSpace(h.cookieDomain) }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func randomState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
