package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/blogfolio/internal/db"
	"github.com/blogfolio/internal/storage"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9@.+_-]+$`)
	fieldValidator  = validator.New()
)

// AccountService manages user accounts and their public profiles.
type AccountService struct {
	db    *gorm.DB
	files storage.Store
	log   zerolog.Logger
}

// RegisterInput holds the registration form.
type RegisterInput struct {
	Username       string
	Email          string
	Password       string
	FirstName      string
	LastName       string
	ProfilePicture *storage.Upload
}

// ProfilePatch describes a profile update. Nil fields are left unchanged.
type ProfilePatch struct {
	Email             *string
	Username          *string
	FirstName         *string
	LastName          *string
	Bio               *string
	ProfilePictureURL *string
	Facebook          *string
	YouTube           *string
	Instagram         *string
	Twitter           *string
	LinkedIn          *string
	ProfilePicture    *storage.Upload
}

// AuthorProfile is an account together with its most recent posts.
type AuthorProfile struct {
	User  db.User
	Posts []db.Post
}

// NewAccountService creates an AccountService.
func NewAccountService(gdb *gorm.DB, files storage.Store, log zerolog.Logger) *AccountService {
	return &AccountService{db: gdb, files: files, log: log}
}

// Register creates an account with a bcrypt-hashed password. Accounts without
// an uploaded picture get the default one.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*db.User, error) {
	user := db.User{
		Username:       strings.TrimSpace(input.Username),
		Email:          strings.TrimSpace(input.Email),
		FirstName:      strings.TrimSpace(input.FirstName),
		LastName:       strings.TrimSpace(input.LastName),
		ProfilePicture: db.DefaultProfilePicture,
	}

	verr := &ValidationError{}
	checkRequired(verr, "username", input.Username)
	checkRequired(verr, "email", input.Email)
	checkRequired(verr, "password", input.Password)
	validateAccountFields(verr, &user)
	if input.Password != "" && len([]rune(input.Password)) < minPasswordLength {
		verr.Add("password", fmt.Sprintf("Ensure this field has at least %d characters.", minPasswordLength))
	}
	if input.ProfilePicture != nil {
		checkImage(verr, "profile_picture", *input.ProfilePicture)
	}
	if verr.Empty() {
		if err := s.checkUnique(ctx, s.db, verr, 0, user.Username, user.Email); err != nil {
			return nil, err
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user.Password = string(hash)

	var saved string
	if input.ProfilePicture != nil {
		ref, err := s.files.Save(ctx, avatarDir(user.Username), *input.ProfilePicture)
		if err != nil {
			return nil, fmt.Errorf("store profile picture: %w", err)
		}
		saved = ref
		user.ProfilePicture = ref
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if saved != "" {
			_ = s.files.Remove(context.WithoutCancel(ctx), saved)
		}
		return nil, translateWriteError("create user", err)
	}

	s.log.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("account registered")
	return &user, nil
}

// Authenticate checks a username/password pair.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*db.User, error) {
	var user db.User
	if err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// UpdateProfile applies patch to the caller's own account. No profile field is
// required, so full and partial updates share this path.
func (s *AccountService) UpdateProfile(ctx context.Context, userID uint, patch ProfilePatch) (*db.User, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}

	var (
		user     db.User
		saved    string
		obsolete string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("load user: %w", err)
		}

		verr := &ValidationError{}
		if patch.Username != nil {
			checkRequired(verr, "username", *patch.Username)
		}
		if patch.Email != nil {
			checkRequired(verr, "email", *patch.Email)
		}
		patch.apply(&user)
		validateAccountFields(verr, &user)
		checkURL(verr, "profile_picture_url", &user.ProfilePictureURL, 500)
		for field, value := range user.SocialLinks() {
			checkURL(verr, field, value, 255)
		}
		if patch.ProfilePicture != nil {
			checkImage(verr, "profile_picture", *patch.ProfilePicture)
		}
		if verr.Empty() {
			if err := s.checkUnique(ctx, tx, verr, user.ID, user.Username, user.Email); err != nil {
				return err
			}
		}
		if err := verr.OrNil(); err != nil {
			return err
		}

		if patch.ProfilePicture != nil {
			ref, err := s.files.Save(ctx, avatarDir(user.Username), *patch.ProfilePicture)
			if err != nil {
				return fmt.Errorf("store profile picture: %w", err)
			}
			saved = ref
			if user.ProfilePicture != db.DefaultProfilePicture {
				obsolete = user.ProfilePicture
			}
			user.ProfilePicture = ref
		}

		if err := tx.Save(&user).Error; err != nil {
			return translateWriteError("update user", err)
		}
		return nil
	})
	if err != nil {
		if saved != "" {
			_ = s.files.Remove(context.WithoutCancel(ctx), saved)
		}
		return nil, err
	}

	if obsolete != "" {
		if err := s.files.Remove(context.WithoutCancel(ctx), obsolete); err != nil {
			s.log.Warn().Err(err).Str("ref", obsolete).Msg("failed to remove old profile picture")
		}
	}
	return &user, nil
}

// GetByID loads an account by primary key.
func (s *AccountService) GetByID(ctx context.Context, id uint) (*db.User, error) {
	return s.findOne(ctx, "get user", "id = ?", id)
}

// GetByUsername loads an account by exact username.
func (s *AccountService) GetByUsername(ctx context.Context, username string) (*db.User, error) {
	return s.findOne(ctx, "get user by username", "username = ?", username)
}

// GetByEmail loads an account by email, ignoring case.
func (s *AccountService) GetByEmail(ctx context.Context, email string) (*db.User, error) {
	return s.findOne(ctx, "get user by email", "LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)))
}

// Profile returns the account with up to AuthorPostLimit of its newest posts.
func (s *AccountService) Profile(ctx context.Context, username string) (*AuthorProfile, error) {
	user, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	posts, err := recentPostsBy(s.db.WithContext(ctx), user.ID, AuthorPostLimit)
	if err != nil {
		return nil, err
	}

	return &AuthorProfile{User: *user, Posts: posts}, nil
}

// DeleteUser removes an account. Its posts survive with no author.
func (s *AccountService) DeleteUser(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&db.Post{}).Where("author_id = ?", id).Update("author_id", nil).Error; err != nil {
			return fmt.Errorf("detach posts: %w", err)
		}
		result := tx.Delete(&db.User{}, id)
		if result.Error != nil {
			return fmt.Errorf("delete user: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info().Uint("user_id", id).Msg("account deleted")
	return nil
}

func (s *AccountService) findOne(ctx context.Context, op, query string, arg any) (*db.User, error) {
	var user db.User
	if err := s.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

// checkUnique records field errors for a username or email already held by
// another account. The unique indexes still guard against races.
func (s *AccountService) checkUnique(ctx context.Context, q *gorm.DB, verr *ValidationError, selfID uint, username, email string) error {
	var count int64
	if err := q.WithContext(ctx).Model(&db.User{}).Where("username = ? AND id <> ?", username, selfID).Count(&count).Error; err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if count > 0 {
		verr.Add("username", "A user with that username already exists.")
	}

	if err := q.WithContext(ctx).Model(&db.User{}).Where("LOWER(email) = ? AND id <> ?", strings.ToLower(email), selfID).Count(&count).Error; err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		verr.Add("email", "A user with that email already exists.")
	}
	return nil
}

func (p ProfilePatch) apply(user *db.User) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&user.Email, p.Email)
	set(&user.Username, p.Username)
	set(&user.FirstName, p.FirstName)
	set(&user.LastName, p.LastName)
	set(&user.Bio, p.Bio)
	set(&user.ProfilePictureURL, p.ProfilePictureURL)
	set(&user.Facebook, p.Facebook)
	set(&user.YouTube, p.YouTube)
	set(&user.Instagram, p.Instagram)
	set(&user.Twitter, p.Twitter)
	set(&user.LinkedIn, p.LinkedIn)
}

// avatarDir keeps dot-only usernames from resolving outside avatar/.
func avatarDir(username string) string {
	if name := strings.Trim(username, "."); name != "" {
		return "avatar/" + name
	}
	return "avatar"
}

func validateAccountFields(verr *ValidationError, user *db.User) {
	if user.Username != "" {
		checkMaxLength(verr, "username", user.Username, 150)
		if !usernamePattern.MatchString(user.Username) {
			verr.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
		}
	}
	if user.Email != "" {
		checkMaxLength(verr, "email", user.Email, 254)
		if fieldValidator.Var(user.Email, "email") != nil {
			verr.Add("email", "Enter a valid email address.")
		}
	}
	checkMaxLength(verr, "first_name", user.FirstName, 150)
	checkMaxLength(verr, "last_name", user.LastName, 150)
}
