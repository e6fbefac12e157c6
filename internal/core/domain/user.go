package domain

import (
	"slices"
	"strings"
	"time"
)

// HistoryCapacity bounds the listening history kept on a user.
const HistoryCapacity = 100

// SubscriptionPeriod is the length of one paid subscription term.
const SubscriptionPeriod = 30 * 24 * time.Hour

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

type SubscriptionType string

const (
	PlanFree    SubscriptionType = "free"
	PlanPremium SubscriptionType = "premium"
	PlanPro     SubscriptionType = "pro"
)

func (t SubscriptionType) Valid() bool {
	switch t {
	case PlanFree, PlanPremium, PlanPro:
		return true
	}
	return false
}

type Subscription struct {
	Type      SubscriptionType `json:"type" bson:"type"`
	Active    bool             `json:"active" bson:"active"`
	StartDate *time.Time       `json:"startDate,omitempty" bson:"start_date,omitempty"`
	EndDate   *time.Time       `json:"endDate,omitempty" bson:"end_date,omitempty"`
}

// GrantsPremium is the one place the premium rule lives: a paid plan that is
// currently active.
func (s Subscription) GrantsPremium() bool {
	return s.Type != PlanFree && s.Type != "" && s.Active
}

type Badge struct {
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description" bson:"description"`
	Icon        string    `json:"icon" bson:"icon"`
	AwardedAt   time.Time `json:"awardedAt" bson:"awarded_at"`
}

type HistoryEntry struct {
	SongID         string    `json:"songId" bson:"song_id"`
	PlayedAt       time.Time `json:"playedAt" bson:"played_at"`
	DurationPlayed int       `json:"durationPlayed" bson:"duration_played"`
}

// History is a most-recent-first list holding at most HistoryCapacity plays.
type History []HistoryEntry

// Push prepends e and evicts whatever falls past the capacity. The receiver
// is not modified.
func (h History) Push(e HistoryEntry) History {
	keep := min(len(h), HistoryCapacity-1)
	out := make(History, 0, keep+1)
	out = append(out, e)
	return append(out, h[:keep]...)
}

type AuthProvider string

const (
	ProviderLocal  AuthProvider = "local"
	ProviderGoogle AuthProvider = "google"
)

// User is the account aggregate.
type User struct {
	ID            string       `json:"id" bson:"_id"`
	Username      string       `json:"username" bson:"username"`
	Email         string       `json:"email" bson:"email"`
	PasswordHash  string       `json:"-" bson:"password_hash"`
	Provider      AuthProvider `json:"provider" bson:"provider"`
	DisplayName   string       `json:"displayName" bson:"display_name"`
	Bio           string       `json:"bio" bson:"bio"`
	AvatarPath    string       `json:"avatarPath,omitempty" bson:"avatar_path,omitempty"`
	Role          Role         `json:"role" bson:"role"`
	Subscription  Subscription `json:"subscription" bson:"subscription"`
	Badges        []Badge      `json:"badges" bson:"badges"`
	History       History      `json:"history" bson:"history"`
	FavoriteSongs []string     `json:"favoriteSongs" bson:"favorite_songs"`
	IsActive      bool         `json:"isActive" bson:"is_active"`
	LastLoginAt   *time.Time   `json:"lastLoginAt,omitempty" bson:"last_login_at,omitempty"`
	CreatedAt     time.Time    `json:"createdAt" bson:"created_at"`
	UpdatedAt     time.Time    `json:"updatedAt" bson:"updated_at"`
	Version       int64        `json:"version" bson:"version"`
}

// NewUser builds an active free-tier account. The credential must already be
// hashed.
func NewUser(id, username, email, passwordHash string, now time.Time) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if id == "" {
		return nil, invalid("id", "is required")
	}
	if n := len(username); n < 3 || n > 30 {
		return nil, invalid("username", "must be between 3 and 30 characters")
	}
	if !validUsername(username) {
		return nil, invalid("username", "may only contain letters, digits, '_', '.' and '-'")
	}
	if !strings.Contains(email, "@") || len(email) > 254 {
		return nil, invalid("email", "is not a valid address")
	}
	return &User{
		ID:            id,
		Username:      username,
		Email:         email,
		PasswordHash:  passwordHash,
		Provider:      ProviderLocal,
		DisplayName:   username,
		Role:          RoleUser,
		Subscription:  Subscription{Type: PlanFree},
		Badges:        []Badge{},
		History:       History{},
		FavoriteSongs: []string{},
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func validUsername(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == '.' || r == '-':
		default:
			return false
		}
	}
	return true
}

// HasPremiumAccess reports whether the user's subscription grants premium
// content.
func (u *User) HasPremiumAccess() bool {
	return u.Subscription.GrantsPremium()
}

// AddBadge appends a badge unless one with the same name is already held.
// It reports whether the badge was added.
func (u *User) AddBadge(name, description, icon string, now time.Time) bool {
	for _, b := range u.Badges {
		if b.Name == name {
			return false
		}
	}
	u.Badges = append(u.Badges, Badge{Name: name, Description: description, Icon: icon, AwardedAt: now})
	return true
}

// AddToHistory records a play as the newest history entry.
func (u *User) AddToHistory(songID string, durationPlayed int, now time.Time) {
	u.History = u.History.Push(HistoryEntry{SongID: songID, PlayedAt: now, DurationPlayed: durationPlayed})
}

// ToggleFavorite flips membership of songID in the favorites set and reports
// the new state.
func (u *User) ToggleFavorite(songID string) bool {
	if i := slices.Index(u.FavoriteSongs, songID); i >= 0 {
		u.FavoriteSongs = slices.Delete(u.FavoriteSongs, i, i+1)
		return false
	}
	u.FavoriteSongs = append(u.FavoriteSongs, songID)
	return true
}

// Subscribe starts a fresh paid term on plan.
func (u *User) Subscribe(plan SubscriptionType, now time.Time) error {
	if !plan.Valid() || plan == PlanFree {
		return invalid("plan", "must be premium or pro")
	}
	end := now.Add(SubscriptionPeriod)
	start := now
	u.Subscription = Subscription{Type: plan, Active: true, StartDate: &start, EndDate: &end}
	return nil
}

// CancelSubscription drops the user back to the free tier.
func (u *User) CancelSubscription() {
	u.Subscription.Active = false
	u.Subscription.Type = PlanFree
}

// RecordLogin stamps the last successful sign-in.
func (u *User) RecordLogin(now time.Time) {
	u.LastLoginAt = &now
}

// Clone returns a copy that shares no slices with u.
func (u User) Clone() User {
	u.Badges = slices.Clone(u.Badges)
	u.History = slices.Clone(u.History)
	u.FavoriteSongs = slices.Clone(u.FavoriteSongs)
	return u
}
