package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/bmd/internal/common"
	"github.com/dmitrijs2005/bmd/internal/dbx"
	"github.com/dmitrijs2005/bmd/internal/logging"
	"github.com/dmitrijs2005/bmd/internal/server/auth"
	"github.com/dmitrijs2005/bmd/internal/server/config"
	"github.com/dmitrijs2005/bmd/internal/server/models"
	"github.com/dmitrijs2005/bmd/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	minPasswordLength = 6
	// bcrypt only hashes the first 72 bytes and rejects longer input.
	maxPasswordLength = 72
)

var orcidPattern = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}-\d{3}[\dX]$`)

// ValidORCID reports whether s looks like an ORCID iD (0000-0000-0000-000X).
func ValidORCID(s string) bool {
	return orcidPattern.MatchString(s)
}

// NormalizeEmail trims and lower-cases an address before it is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type AuthResult struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	ORCID    string `json:"orcid,omitempty"`
}

type ProfileUpdate struct {
	Name  string
	Email string
	ORCID string
}

type UserService struct {
	db             *sql.DB
	repomanager    repomanager.RepositoryManager
	jwtSecret      []byte
	accessTokenTTL time.Duration
	logger         logging.Logger
	now            func() time.Time
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:             db,
		repomanager:    m,
		jwtSecret:      []byte(cfg.SecretKey),
		accessTokenTTL: cfg.AccessTokenTTL,
		logger:         logger.With("module", "users"),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *UserService) issue(userID string) (*AuthResult, error) {
	token, err := auth.GenerateToken(userID, s.jwtSecret, s.accessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}
	return &AuthResult{AccessToken: token, UserID: userID}, nil
}

// Authenticate returns the user id carried by a bearer token.
func (s *UserService) Authenticate(token string) (string, error) {
	return auth.GetUserIDFromToken(token, s.jwtSecret)
}

func (s *UserService) Signup(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	name := strings.TrimSpace(req.Name)
	email := NormalizeEmail(req.Email)
	orcid := strings.TrimSpace(req.ORCID)

	if name == "" || email == "" || req.Password == "" {
		return nil, common.Invalid("Please fill in all required fields")
	}
	if err := checkPasswordLength(req.Password); err != nil {
		return nil, err
	}
	if orcid != "" && !ValidORCID(orcid) {
		return nil, common.Invalid("Invalid ORCID format. Use: 0000-0000-0000-0000")
	}

	repo := s.repomanager.Users(s.db)

	taken, err := repo.EmailExists(ctx, email, "")
	if err != nil {
		return nil, fmt.Errorf("error checking email: %w", err)
	}
	if taken {
		return nil, common.ErrEmailTaken
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	now := s.now()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if orcid != "" {
		user.ORCID = &orcid
	}

	// a concurrent signup can still win the race; the unique index reports it
	if err := repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user signed up", "user_id", user.ID)
	return s.issue(user.ID)
}

func checkPasswordLength(p string) error {
	if len(p) < minPasswordLength {
		return common.Invalid("Password must be at least %d characters", minPasswordLength)
	}
	if len(p) > maxPasswordLength {
		return common.Invalid("Password must be at most %d bytes", maxPasswordLength)
	}
	return nil
}

// Login fails with common.ErrorUnauthorized for an unknown email or a wrong password alike.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, common.Invalid("Please fill in all fields")
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, common.ErrorUnauthorized
	}

	return s.issue(user.ID)
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, userID)
}

// UpdateProfile sets name, email and ORCID. An empty ORCID clears the stored one.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, p ProfileUpdate) error {
	name := strings.TrimSpace(p.Name)
	email := NormalizeEmail(p.Email)
	orcid := strings.TrimSpace(p.ORCID)

	if name == "" || email == "" {
		return common.Invalid("Name and email are required")
	}

	repo := s.repomanager.Users(s.db)

	taken, err := repo.EmailExists(ctx, email, userID)
	if err != nil {
		return fmt.Errorf("error checking email: %w", err)
	}
	if taken {
		return common.Invalid("Email is already in use")
	}
	if orcid != "" && !ValidORCID(orcid) {
		return common.Invalid("Invalid ORCID format")
	}

	err = repo.Update(ctx, userID, models.UserUpdate{Name: &name, Email: &email, ORCID: &orcid}, s.now())
	if errors.Is(err, common.ErrEmailTaken) {
		return common.Invalid("Email is already in use")
	}
	return err
}

// LinkORCID stores an identifier obtained from the ORCID login flow.
func (s *UserService) LinkORCID(ctx context.Context, userID, orcid string) error {
	if !ValidORCID(orcid) {
		return common.Invalid("Invalid ORCID format")
	}
	return s.repomanager.Users(s.db).Update(ctx, userID, models.UserUpdate{ORCID: &orcid}, s.now())
}

func (s *UserService) ChangePassword(ctx context.Context, userID, current, newPassword, confirm string) error {
	if current == "" || newPassword == "" || confirm == "" {
		return common.Invalid("Please fill in all password fields")
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !auth.CheckPassword(user.PasswordHash, current) {
		return common.Invalid("Current password is incorrect")
	}
	if newPassword != confirm {
		return common.Invalid("New passwords do not match")
	}
	if err := checkPasswordLength(newPassword); err != nil {
		return err
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	return repo.Update(ctx, userID, models.UserUpdate{PasswordHash: &hash}, s.now())
}

// DeleteAccount removes the user and every workflow they own in one
// transaction. confirmEmail must match the stored address.
func (s *UserService) DeleteAccount(ctx context.Context, userID, confirmEmail string) error {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if NormalizeEmail(confirmEmail) != user.Email {
		return common.Invalid("Email doesn't match")
	}

	var removed int64
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		removed, err = s.repomanager.Workflows(tx).DeleteByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("error deleting workflows: %w", err)
		}
		return s.repomanager.Users(tx).Delete(ctx, userID)
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "account deleted", "user_id", userID, "workflows_removed", removed)
	return nil
}
