package services

import (
	"errors"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/kestrelsec/warden/internal/metrics"
	"github.com/kestrelsec/warden/internal/models"
)

var (
	ErrDuplicateIdentity       = errors.New("an account with this email already exists")
	ErrInvalidCredentialFormat = errors.New("invalid credential format")
	ErrInvalidCredentials      = errors.New("invalid email or password")
	ErrNoActiveSession         = errors.New("no active session")
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// minPasswordLength mirrors the binding rule on the HTTP layer so the
// service enforces it even for non-HTTP callers.
const minPasswordLength = 8

// enumerationGuard is a real bcrypt hash compared against when sign-in hits
// a missing account, so the miss costs the same as a wrong password.
var enumerationGuard, _ = bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)

// Claims is the JWT payload. SessionID ties the token to a revocable
// server-side session row.
type Claims struct {
	UserID    uint   `json:"user_id"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// AuthService owns the sign-up / sign-in / sign-out lifecycle. It assumes
// the protection pipeline already passed the enclosing request; no rate or
// bot logic lives here.
type AuthService struct {
	db     *gorm.DB
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthService builds the service with the signing secret and session TTL.
func NewAuthService(db *gorm.DB, secret string, ttl time.Duration) *AuthService {
	return &AuthService{
		db:     db,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// SignUp creates a new identity and immediately issues a session for it.
func (s *AuthService) SignUp(email, password, name string) (*models.User, string, error) {
	if !emailPattern.MatchString(email) || len(password) < minPasswordLength {
		return nil, "", ErrInvalidCredentialFormat
	}

	var existing models.User
	if err := s.db.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, "", ErrDuplicateIdentity
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}

	user := models.User{
		UUID:    uuid.NewString(),
		Email:   email,
		Name:    name,
		Enabled: true,
	}
	if err := user.SetPassword(password); err != nil {
		return nil, "", err
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, "", err
	}

	token, err := s.issueSession(&user)
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

// SignIn validates credentials and issues a fresh session. A missing account
// and a wrong password return the same error after comparable work.
func (s *AuthService) SignIn(email, password string) (string, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = bcrypt.CompareHashAndPassword(enumerationGuard, []byte(password))
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if !user.CheckPassword(password) || !user.Enabled {
		return "", ErrInvalidCredentials
	}

	now := s.now()
	s.db.Model(&user).Update("last_login", &now)

	return s.issueSession(&user)
}

// SignOut revokes the session behind the token. It is idempotent: an
// invalid, expired, or already-revoked token is a successful no-op.
func (s *AuthService) SignOut(token string) error {
	claims, err := s.parseToken(token)
	if err != nil {
		return nil
	}

	var session models.Session
	if err := s.db.Where("uuid = ?", claims.SessionID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if session.RevokedAt != nil {
		return nil
	}

	now := s.now()
	if err := s.db.Model(&session).Update("revoked_at", &now).Error; err != nil {
		return err
	}
	metrics.IncSessionRevoked()
	return nil
}

// ValidateToken verifies the token signature and that its session is still
// active on the server.
func (s *AuthService) ValidateToken(token string) (*Claims, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return nil, ErrNoActiveSession
	}

	var session models.Session
	if err := s.db.Where("uuid = ?", claims.SessionID).First(&session).Error; err != nil {
		return nil, ErrNoActiveSession
	}
	if !session.Active(s.now()) {
		return nil, ErrNoActiveSession
	}

	return claims, nil
}

// GetUserByID fetches a user for the authenticated-identity endpoints.
func (s *AuthService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// PurgeExpiredSessions deletes sessions past their expiry. Run periodically;
// revocation checks don't need the rows once ExpiresAt is behind us.
func (s *AuthService) PurgeExpiredSessions() (int64, error) {
	res := s.db.Where("expires_at < ?", s.now()).Delete(&models.Session{})
	return res.RowsAffected, res.Error
}

func (s *AuthService) issueSession(user *models.User) (string, error) {
	now := s.now()
	session := models.Session{
		UUID:      uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.db.Create(&session).Error; err != nil {
		return "", err
	}

	claims := Claims{
		UserID:    user.ID,
		SessionID: session.UUID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UUID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			ID:        session.UUID,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", err
	}
	metrics.IncSessionIssued()
	return token, nil
}

func (s *AuthService) parseToken(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrNoActiveSession
	}
	return claims, nil
}
