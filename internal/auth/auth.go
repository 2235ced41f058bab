package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"

	"document-chat/internal/config"
)

var (
	// ErrInvalidCredentials covers unknown users and wrong passwords alike,
	// so a login probe cannot distinguish the two.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrUserExists is returned when registering a taken username.
	ErrUserExists = errors.New("username already taken")

	// ErrInvalidToken marks an expired, malformed or mis-signed token.
	ErrInvalidToken = errors.New("invalid token")
)

// User is a registered account. The username is the owner identity every
// document and message is keyed by.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64  `bun:"id,pk,autoincrement"`
	Username     string `bun:"username,notnull,unique"`
	Email        string `bun:"email"`
	FullName     string `bun:"full_name"`
	PasswordHash string `bun:"password_hash,notnull"`
	Disabled     bool   `bun:"disabled,notnull,default:false"`
}

// Service manages accounts and bearer tokens.
type Service struct {
	db        *bun.DB
	secretKey []byte
	tokenTTL  time.Duration
}

func NewService(db *bun.DB, cfg *config.AuthConfig) *Service {
	return &Service{
		db:        db,
		secretKey: []byte(cfg.SecretKey),
		tokenTTL:  time.Duration(cfg.TokenTTLMinutes) * time.Minute,
	}
}

// CreateSchema creates the users table.
func (s *Service) CreateSchema(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*User)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create users table: %v", err)
	}
	return nil
}

// Register creates an account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, username, password, email, fullName string) error {
	exists, err := s.db.NewSelect().Model((*User)(nil)).Where("username = ?", username).Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check username: %v", err)
	}
	if exists {
		return ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %v", err)
	}

	user := &User{
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: string(hash),
	}
	if _, err := s.db.NewInsert().Model(user).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create user: %v", err)
	}
	return nil
}

// Login verifies the credentials and issues a signed bearer token whose
// subject is the username.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	var user User
	err := s.db.NewSelect().Model(&user).Where("username = ?", username).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up user: %v", err)
	}
	if user.Disabled {
		return "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %v", err)
	}
	return signed, nil
}

// VerifyToken parses a bearer token and returns the owner identity it was
// issued for.
func (s *Service) VerifyToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
