package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/policy"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
)

const minPasswordLength = 8

// BcryptCost is lowered by tests.
var BcryptCost = bcrypt.DefaultCost

type UserService struct {
	d Deps
}

func NewUserService(d Deps) *UserService {
	return &UserService{d: d.withDefaults()}
}

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a local account with a bcrypt-hashed password.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	if utf8.RuneCountInString(in.Password) < minPasswordLength {
		return domain.User{}, &domain.ValidationError{Field: "password", Reason: "must be at least 8 characters"}
	}
	if len(in.Password) > 72 {
		return domain.User{}, &domain.ValidationError{Field: "password", Reason: "must be at most 72 bytes"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), BcryptCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("service: failed to hash password: %w", err)
	}
	u, err := domain.NewUser(s.d.NewID(), in.Username, in.Email, string(hash), s.d.Now())
	if err != nil {
		return domain.User{}, fmt.Errorf("service: invalid registration: %w", err)
	}
	return s.create(ctx, u)
}

func (s *UserService) create(ctx context.Context, u *domain.User) (domain.User, error) {
	if s.d.AdminEmail != "" && u.Email == s.d.AdminEmail {
		u.Role = domain.RoleAdmin
	}
	u.Version = 1
	if err := s.d.Users.Create(ctx, *u); err != nil {
		return domain.User{}, fmt.Errorf("service: failed to create user: %w", err)
	}
	s.d.publish(ctx, domain.Event{Type: domain.EventUserRegistered, SubjectID: u.ID, ActorID: u.ID})
	return *u, nil
}

// Login checks a username or email plus password. Unknown accounts and wrong
// passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, identifier, password string) (domain.User, error) {
	identifier = strings.TrimSpace(identifier)
	var (
		u   domain.User
		err error
	)
	if strings.Contains(identifier, "@") {
		u, err = s.d.Users.GetByEmail(ctx, strings.ToLower(identifier))
	} else {
		u, err = s.d.Users.GetByUsername(ctx, identifier)
	}
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthenticated)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("service: failed to load user: %w", err)
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return domain.User{}, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthenticated)
	}
	return s.finishLogin(ctx, u)
}

func (s *UserService) finishLogin(ctx context.Context, u domain.User) (domain.User, error) {
	if !u.IsActive {
		return domain.User{}, fmt.Errorf("%w: account is deactivated", domain.ErrForbidden)
	}
	u.RecordLogin(s.d.Now())
	saved, err := s.d.Users.Update(ctx, u)
	if err != nil {
		return domain.User{}, fmt.Errorf("service: failed to record login: %w", err)
	}
	return saved, nil
}

var usernameJunk = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// LoginExternal signs in a person vouched for by an identity provider,
// creating the account on first use. Accounts are matched by email.
func (s *UserService) LoginExternal(ctx context.Context, id ports.ExternalIdentity) (domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(id.Email))
	if email == "" || !id.EmailVerified {
		return domain.User{}, fmt.Errorf("%w: provider did not return a verified email", domain.ErrUnauthenticated)
	}
	u, err := s.d.Users.GetByEmail(ctx, email)
	if err == nil {
		return s.finishLogin(ctx, u)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, fmt.Errorf("service: failed to load user: %w", err)
	}

	base := usernameJunk.ReplaceAllString(strings.SplitN(email, "@", 2)[0], "")
	if len(base) < 3 {
		base += "user"
	}
	if len(base) > 22 {
		base = base[:22]
	}
	username := base
	for i := 0; i < 5; i++ {
		if _, err := s.d.Users.GetByUsername(ctx, username); errors.Is(err, domain.ErrNotFound) {
			break
		}
		username = base + "_" + s.d.NewID()[:6]
	}

	nu, err := domain.NewUser(s.d.NewID(), username, email, "", s.d.Now())
	if err != nil {
		return domain.User{}, fmt.Errorf("service: invalid external identity: %w", err)
	}
	nu.Provider = domain.ProviderGoogle
	if id.Name != "" {
		nu.DisplayName = id.Name
	}
	nu.AvatarPath = id.Picture
	nu.RecordLogin(s.d.Now())
	return s.create(ctx, nu)
}

func (s *UserService) Get(ctx context.Context, id string) (domain.User, error) {
	u, err := s.d.Users.GetByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("service: failed to load user: %w", err)
	}
	return u, nil
}

// Profile is the public face of a user.
type Profile struct {
	ID          string         `json:"id"`
	Username    string         `json:"username"`
	DisplayName string         `json:"displayName"`
	Bio         string         `json:"bio"`
	AvatarPath  string         `json:"avatarPath,omitempty"`
	Badges      []domain.Badge `json:"badges"`
}

func (s *UserService) PublicProfile(ctx context.Context, username string) (Profile, error) {
	u, err := s.d.Users.GetByUsername(ctx, username)
	if err != nil {
		return Profile{}, fmt.Errorf("service: failed to load user: %w", err)
	}
	if !u.IsActive {
		return Profile{}, domain.ErrNotFound
	}
	return Profile{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName, Bio: u.Bio, AvatarPath: u.AvatarPath, Badges: u.Badges}, nil
}

type ProfileUpdate struct {
	DisplayName *string `json:"displayName"`
	Bio         *string `json:"bio"`
}

func (s *UserService) UpdateProfile(ctx context.Context, a policy.Actor, in ProfileUpdate) (domain.User, error) {
	return s.mutateSelf(ctx, a, func(u *domain.User) error {
		if in.DisplayName != nil {
			name := strings.TrimSpace(*in.DisplayName)
			if n := utf8.RuneCountInString(name); n == 0 || n > 50 {
				return &domain.ValidationError{Field: "displayName", Reason: "must be between 1 and 50 characters"}
			}
			u.DisplayName = name
		}
		if in.Bio != nil {
			bio := strings.TrimSpace(*in.Bio)
			if utf8.RuneCountInString(bio) > 500 {
				return &domain.ValidationError{Field: "bio", Reason: "must be at most 500 characters"}
			}
			u.Bio = bio
		}
		return nil
	})
}

// ToggleFavorite flips a song in the caller's favorites and reports the new
// membership.
func (s *UserService) ToggleFavorite(ctx context.Context, a policy.Actor, songID string) (bool, error) {
	song, err := s.d.Songs.GetByID(ctx, songID)
	if err != nil {
		return false, fmt.Errorf("service: failed to load song: %w", err)
	}
	if !song.IsActive {
		return false, domain.ErrNotFound
	}
	var on bool
	_, err = s.mutateSelf(ctx, a, func(u *domain.User) error {
		on = u.ToggleFavorite(songID)
		return nil
	})
	return on, err
}

func (s *UserService) Favorites(ctx context.Context, a policy.Actor) ([]domain.Song, error) {
	if err := requireUser(a); err != nil {
		return nil, err
	}
	u, err := s.d.Users.GetByID(ctx, a.UserID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load user: %w", err)
	}
	songs, err := s.d.Songs.GetMany(ctx, u.FavoriteSongs)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load favorites: %w", err)
	}
	return songs, nil
}

func (s *UserService) History(ctx context.Context, a policy.Actor) (domain.History, error) {
	if err := requireUser(a); err != nil {
		return nil, err
	}
	u, err := s.d.Users.GetByID(ctx, a.UserID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load user: %w", err)
	}
	return u.History, nil
}

func (s *UserService) Subscribe(ctx context.Context, a policy.Actor, plan domain.SubscriptionType) (domain.User, error) {
	return s.mutateSelf(ctx, a, func(u *domain.User) error {
		return u.Subscribe(plan, s.d.Now())
	})
}

func (s *UserService) CancelSubscription(ctx context.Context, a policy.Actor) (domain.User, error) {
	return s.mutateSelf(ctx, a, func(u *domain.User) error {
		u.CancelSubscription()
		return nil
	})
}

func (s *UserService) mutateSelf(ctx context.Context, a policy.Actor, fn func(*domain.User) error) (domain.User, error) {
	if err := requireUser(a); err != nil {
		return domain.User{}, err
	}
	u, err := s.d.Users.GetByID(ctx, a.UserID)
	if err != nil {
		return domain.User{}, fmt.Errorf("service: failed to load user: %w", err)
	}
	if err := fn(&u); err != nil {
		return domain.User{}, err
	}
	u.UpdatedAt = s.d.Now()
	saved, err := s.d.Users.Update(ctx, u)
	if err != nil {
		return domain.User{}, fmt.Errorf("service: failed to save user: %w", err)
	}
	return saved, nil
}
