package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/classnest/classnest-api/internal/mailer"
	"github.com/classnest/classnest-api/internal/models"
	"github.com/classnest/classnest-api/pkg/database"
	appErrors "github.com/classnest/classnest-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	ReplaceUnverified(ctx context.Context, email, username, passwordHash, fullName string, role models.UserRole) (bool, error)
	MarkVerified(ctx context.Context, id string) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
	VerificationTTL   time.Duration
}

// AuthService provides registration, verification and token issuance.
// The time-boxed numeric verification code lives in Redis under
// verify:<email> so expiry needs no sweeper.
type AuthService struct {
	repo      authUserRepository
	codes     *redis.Client
	mail      mailer.Mailer
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, codes *redis.Client, mail mailer.Mailer, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.VerificationTTL <= 0 {
		config.VerificationTTL = 15 * time.Minute
	}
	return &AuthService{repo: repo, codes: codes, mail: mail, validator: validate, logger: logger, config: config}
}

// RegisterRequest describes the registration payload.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=TEACHER STUDENT"`
}

// VerifyRequest carries the emailed numeric code back.
type VerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// Register creates an unverified account and emails a verification code.
// Re-registering an email that never verified replaces the credentials and
// reissues the code; a verified email conflicts.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	role := models.UserRole(req.Role)

	existing, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	if existing != nil {
		if existing.Verified {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		replaced, err := s.repo.ReplaceUnverified(ctx, req.Email, req.Username, string(hash), req.FullName, role)
		if err != nil {
			if database.IsUniqueViolation(err, "users_username_key") {
				return nil, appErrors.Clone(appErrors.ErrConflict, "username already taken")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update registration")
		}
		if !replaced {
			// Verified between the read and the write; one-way gate holds.
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
	} else {
		user := &models.User{
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: string(hash),
			FullName:     req.FullName,
			Role:         role,
			Verified:     false,
		}
		if err := s.repo.Create(ctx, user); err != nil {
			if database.IsUniqueViolation(err, "users_username_key") {
				return nil, appErrors.Clone(appErrors.ErrConflict, "username already taken")
			}
			if database.IsUniqueViolation(err, "users_email_key") {
				return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create account")
		}
	}

	account, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account")
	}

	if err := s.issueVerificationCode(ctx, account); err != nil {
		s.logger.Warn("failed to send verification code", zap.String("email", account.Email), zap.Error(err))
	}
	return account, nil
}

// VerifyEmail checks the submitted code against the stored one and flips the
// account to verified.
func (s *AuthService) VerifyEmail(ctx context.Context, req VerifyRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid verification payload")
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "account not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account")
	}
	if user.Verified {
		return nil
	}

	stored, err := s.codes.Get(ctx, verificationKey(req.Email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return appErrors.Clone(appErrors.ErrValidation, "verification code expired or missing")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check verification code")
	}
	if stored != req.Code {
		return appErrors.Clone(appErrors.ErrValidation, "verification code does not match")
	}

	if err := s.repo.MarkVerified(ctx, user.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify account")
	}
	if err := s.codes.Del(ctx, verificationKey(req.Email)).Err(); err != nil {
		s.logger.Warn("failed to drop verification code", zap.Error(err))
	}
	return nil
}

// Login authenticates a verified account and returns an access token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch account")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}
	if !user.Verified {
		return nil, appErrors.Clone(appErrors.ErrUnverifiedAccount, "")
	}

	token, expiresIn, err := s.generateAccessToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	return &models.LoginResponse{AccessToken: token, ExpiresIn: expiresIn, User: user}, nil
}

// ValidateToken parses and validates an access token.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	return claims, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, int64, error) {
	expiry := s.config.AccessTokenExpiry
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	now := time.Now().UTC()
	claims := &models.JWTClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", 0, err
	}
	return signed, int64(expiry.Seconds()), nil
}

func (s *AuthService) issueVerificationCode(ctx context.Context, user *models.User) error {
	code, err := generateNumericCode(6)
	if err != nil {
		return err
	}
	if err := s.codes.Set(ctx, verificationKey(user.Email), code, s.config.VerificationTTL).Err(); err != nil {
		return fmt.Errorf("store verification code: %w", err)
	}
	body := fmt.Sprintf("Hi %s,\n\nYour verification code is %s. It expires in %d minutes.\n", user.FullName, code, int(s.config.VerificationTTL.Minutes()))
	return s.mail.Send(ctx, user.Email, user.FullName, "Verify your email", body)
}

func verificationKey(email string) string {
	return "verify:" + email
}

func generateNumericCode(digits int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
