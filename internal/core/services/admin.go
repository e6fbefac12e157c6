package services

import (
	"context"
	"fmt"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/policy"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
)

// AdminService backs the admin console. Every method requires the admin role.
type AdminService struct {
	d Deps
}

func NewAdminService(d Deps) *AdminService {
	return &AdminService{d: d.withDefaults()}
}

type Stats struct {
	Users           int `json:"users"`
	ActiveUsers     int `json:"activeUsers"`
	PremiumUsers    int `json:"premiumUsers"`
	Songs           int `json:"songs"`
	ActiveSongs     int `json:"activeSongs"`
	Playlists       int `json:"playlists"`
	PublicPlaylists int `json:"publicPlaylists"`
}

func (s *AdminService) Stats(ctx context.Context, a policy.Actor) (Stats, error) {
	if err := requireAdmin(a); err != nil {
		return Stats{}, err
	}
	var st Stats
	counts := []struct {
		dst *int
		fn  func() (int, error)
	}{
		{&st.Users, func() (int, error) { return s.d.Users.Count(ctx, ports.UserFilter{}) }},
		{&st.ActiveUsers, func() (int, error) { return s.d.Users.Count(ctx, ports.UserFilter{ActiveOnly: true}) }},
		{&st.Songs, func() (int, error) { return s.d.Songs.Count(ctx, ports.SongFilter{}) }},
		{&st.ActiveSongs, func() (int, error) { return s.d.Songs.Count(ctx, ports.SongFilter{ActiveOnly: true}) }},
		{&st.Playlists, func() (int, error) { return s.d.Playlists.Count(ctx, ports.PlaylistFilter{}) }},
		{&st.PublicPlaylists, func() (int, error) { return s.d.Playlists.Count(ctx, ports.PlaylistFilter{PublicOnly: true}) }},
	}
	for _, c := range counts {
		n, err := c.fn()
		if err != nil {
			return Stats{}, fmt.Errorf("service: failed to compute stats: %w", err)
		}
		*c.dst = n
	}

	// Premium status lives in a nested document, so it is tallied here.
	for offset := 0; ; offset += ports.MaxLimit {
		users, err := s.d.Users.List(ctx, ports.UserFilter{ActiveOnly: true}, ports.ListQuery{Sort: ports.SortOldest, Limit: ports.MaxLimit, Offset: offset})
		if err != nil {
			return Stats{}, fmt.Errorf("service: failed to compute stats: %w", err)
		}
		for _, u := range users {
			if u.HasPremiumAccess() {
				st.PremiumUsers++
			}
		}
		if len(users) < ports.MaxLimit {
			break
		}
	}
	return st, nil
}

func (s *AdminService) Users(ctx context.Context, a policy.Actor, f ports.UserFilter, q ports.ListQuery) ([]domain.User, int, error) {
	if err := requireAdmin(a); err != nil {
		return nil, 0, err
	}
	users, err := s.d.Users.List(ctx, f, q.Normalize())
	if err != nil {
		return nil, 0, fmt.Errorf("service: failed to list users: %w", err)
	}
	total, err := s.d.Users.Count(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("service: failed to count users: %w", err)
	}
	return users, total, nil
}

func (s *AdminService) SetRole(ctx context.Context, a policy.Actor, userID string, role domain.Role) (domain.User, error) {
	if err := requireAdmin(a); err != nil {
		return domain.User{}, err
	}
	if !role.Valid() {
		return domain.User{}, &domain.ValidationError{Field: "role", Reason: "must be user, moderator or admin"}
	}
	if userID == a.UserID && role != domain.RoleAdmin {
		return domain.User{}, &domain.ValidationError{Field: "role", Reason: "admins cannot demote themselves"}
	}
	return s.mutateUser(ctx, a, userID, func(u *domain.User) error {
		u.Role = role
		return nil
	})
}

// SetActive enables or disables an account. Disabling revokes its sessions.
func (s *AdminService) SetActive(ctx context.Context, a policy.Actor, userID string, active bool) (domain.User, error) {
	if err := requireAdmin(a); err != nil {
		return domain.User{}, err
	}
	if userID == a.UserID && !active {
		return domain.User{}, &domain.ValidationError{Field: "isActive", Reason: "admins cannot deactivate themselves"}
	}
	u, err := s.mutateUser(ctx, a, userID, func(u *domain.User) error {
		u.IsActive = active
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	if !active && s.d.Sessions != nil {
		if err := s.d.Sessions.DeleteForUser(ctx, userID); err != nil {
			s.d.Log.Warn("failed to revoke sessions", "user_id", userID, "error", err)
		}
	}
	return u, nil
}

type BadgeInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// AwardBadge is a no-op when the user already holds a badge of that name.
func (s *AdminService) AwardBadge(ctx context.Context, a policy.Actor, userID string, b BadgeInput) (domain.User, error) {
	if err := requireAdmin(a); err != nil {
		return domain.User{}, err
	}
	if b.Name == "" {
		return domain.User{}, &domain.ValidationError{Field: "name", Reason: "is required"}
	}
	added := false
	u, err := s.mutateUser(ctx, a, userID, func(u *domain.User) error {
		added = u.AddBadge(b.Name, b.Description, b.Icon, s.d.Now())
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	if added {
		s.d.publish(ctx, domain.Event{Type: domain.EventBadgeAwarded, SubjectID: userID, ActorID: a.UserID, Data: map[string]string{"badge": b.Name}})
	}
	return u, nil
}

func (s *AdminService) FeatureSong(ctx context.Context, a policy.Actor, songID string, featured bool) (domain.Song, error) {
	if err := requireAdmin(a); err != nil {
		return domain.Song{}, err
	}
	song, err := s.d.Songs.GetByID(ctx, songID)
	if err != nil {
		return domain.Song{}, fmt.Errorf("service: failed to load song: %w", err)
	}
	song.IsFeatured = featured
	song.UpdatedAt = s.d.Now()
	saved, err := s.d.Songs.Update(ctx, song)
	if err != nil {
		return domain.Song{}, fmt.Errorf("service: failed to save song: %w", err)
	}
	return saved, nil
}

func (s *AdminService) FeaturePlaylist(ctx context.Context, a policy.Actor, id string, featured bool) (domain.Playlist, error) {
	if err := requireAdmin(a); err != nil {
		return domain.Playlist{}, err
	}
	p, err := s.d.Playlists.GetByID(ctx, id)
	if err != nil {
		return domain.Playlist{}, fmt.Errorf("service: failed to load playlist: %w", err)
	}
	p.IsFeatured = featured
	p.UpdatedAt = s.d.Now()
	saved, err := s.d.Playlists.Update(ctx, p)
	if err != nil {
		return domain.Playlist{}, fmt.Errorf("service: failed to save playlist: %w", err)
	}
	return saved, nil
}

func (s *AdminService) mutateUser(ctx context.Context, a policy.Actor, userID string, fn func(*domain.User) error) (domain.User, error) {
	if err := requireAdmin(a); err != nil {
		return domain.User{}, err
	}
	u, err := s.d.Users.GetByID(ctx, userID)
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
