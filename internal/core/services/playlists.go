package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/policy"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
)

type PlaylistService struct {
	d Deps
}

func NewPlaylistService(d Deps) *PlaylistService {
	return &PlaylistService{d: d.withDefaults()}
}

// PlaylistInput carries the editable fields. Nil pointers leave a field
// unchanged on update.
type PlaylistInput struct {
	Name            *string                  `json:"name"`
	Description     *string                  `json:"description"`
	IsPublic        *bool                    `json:"isPublic"`
	IsCollaborative *bool                    `json:"isCollaborative"`
	Category        *string                  `json:"category"`
	Mood            *domain.Mood             `json:"mood"`
	Tags            []string                 `json:"tags"`
	Settings        *domain.PlaybackSettings `json:"settings"`
}

// PlaylistView is a playlist with its member songs resolved in play order.
// Songs the caller cannot see are left out.
type PlaylistView struct {
	domain.Playlist
	Tracks []domain.Song `json:"tracks"`
}

func (s *PlaylistService) Create(ctx context.Context, a policy.Actor, in PlaylistInput) (domain.Playlist, error) {
	if err := requireUser(a); err != nil {
		return domain.Playlist{}, err
	}
	name := ""
	if in.Name != nil {
		name = *in.Name
	}
	p, err := domain.NewPlaylist(s.d.NewID(), name, a.UserID, s.d.Now())
	if err != nil {
		return domain.Playlist{}, err
	}
	applyPlaylistInput(p, in)
	if err := p.Validate(); err != nil {
		return domain.Playlist{}, err
	}
	p.Version = 1
	if err := s.d.Playlists.Create(ctx, *p); err != nil {
		return domain.Playlist{}, fmt.Errorf("service: failed to create playlist: %w", err)
	}
	s.d.publish(ctx, domain.Event{Type: domain.EventPlaylistCreated, SubjectID: p.ID, ActorID: a.UserID})
	return *p, nil
}

func applyPlaylistInput(p *domain.Playlist, in PlaylistInput) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.IsPublic != nil {
		p.IsPublic = *in.IsPublic
	}
	if in.IsCollaborative != nil {
		p.IsCollaborative = *in.IsCollaborative
	}
	if in.Category != nil {
		p.Category = strings.TrimSpace(*in.Category)
	}
	if in.Mood != nil {
		p.Mood = *in.Mood
	}
	if in.Tags != nil {
		tags := make([]string, 0, len(in.Tags))
		for _, t := range in.Tags {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				tags = append(tags, t)
			}
		}
		p.Tags = tags
	}
	if in.Settings != nil {
		p.Settings = *in.Settings
	}
}

func (s *PlaylistService) load(ctx context.Context, id string) (domain.Playlist, error) {
	p, err := s.d.Playlists.GetByID(ctx, id)
	if err != nil {
		return domain.Playlist{}, fmt.Errorf("service: failed to load playlist: %w", err)
	}
	return p, nil
}

func (s *PlaylistService) loadVisible(ctx context.Context, a policy.Actor, id string) (domain.Playlist, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return domain.Playlist{}, err
	}
	if !policy.CanView(p, a.UserID) && !policy.IsAdmin(a) {
		return domain.Playlist{}, fmt.Errorf("%w: playlist is private", domain.ErrForbidden)
	}
	return p, nil
}

func (s *PlaylistService) Get(ctx context.Context, a policy.Actor, id string) (PlaylistView, error) {
	p, err := s.loadVisible(ctx, a, id)
	if err != nil {
		return PlaylistView{}, err
	}
	songs, err := s.d.Songs.GetMany(ctx, p.SongIDs())
	if err != nil {
		return PlaylistView{}, fmt.Errorf("service: failed to load playlist songs: %w", err)
	}
	byID := make(map[string]domain.Song, len(songs))
	for _, song := range songs {
		byID[song.ID] = song
	}
	tracks := make([]domain.Song, 0, len(songs))
	for _, id := range p.SongIDs() {
		song, ok := byID[id]
		if !ok || (!song.IsActive && !policy.IsAdmin(a)) {
			continue
		}
		tracks = append(tracks, song)
	}
	return PlaylistView{Playlist: p, Tracks: tracks}, nil
}

// Update edits metadata. Editors may change descriptive fields; visibility
// and collaboration flags are the owner's.
func (s *PlaylistService) Update(ctx context.Context, a policy.Actor, id string, in PlaylistInput) (domain.Playlist, error) {
	if err := requireUser(a); err != nil {
		return domain.Playlist{}, err
	}
	return s.mutate(ctx, id, func(p *domain.Playlist) error {
		if !policy.CanEdit(*p, a.UserID) {
			return fmt.Errorf("%w: cannot edit this playlist", domain.ErrForbidden)
		}
		if (in.IsPublic != nil || in.IsCollaborative != nil) && !policy.CanManage(*p, a.UserID) {
			return fmt.Errorf("%w: only the owner can change visibility", domain.ErrForbidden)
		}
		applyPlaylistInput(p, in)
		return p.Validate()
	})
}

func (s *PlaylistService) Delete(ctx context.Context, a policy.Actor, id string) error {
	if err := requireUser(a); err != nil {
		return err
	}
	p, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanManage(p, a.UserID) && !policy.IsAdmin(a) {
		return fmt.Errorf("%w: only the owner can delete this playlist", domain.ErrForbidden)
	}
	if err := s.d.Playlists.Delete(ctx, id); err != nil {
		return fmt.Errorf("service: failed to delete playlist: %w", err)
	}
	return nil
}

func (s *PlaylistService) AddSong(ctx context.Context, a policy.Actor, id, songID string) (domain.Playlist, error) {
	if err := requireUser(a); err != nil {
		return domain.Playlist{}, err
	}
	p, err := s.load(ctx, id)
	if err != nil {
		return domain.Playlist{}, err
	}
	if !policy.CanEdit(p, a.UserID) {
		return domain.Playlist{}, fmt.Errorf("%w: cannot edit this playlist", domain.ErrForbidden)
	}
	song, err := s.d.Songs.GetByID(ctx, songID)
	if err != nil {
		return domain.Playlist{}, fmt.Errorf("service: failed to load song: %w", err)
	}
	if !song.IsActive {
		return domain.Playlist{}, fmt.Errorf("service: song is not available: %w", domain.ErrNotFound)
	}
	if err := p.AddSong(songID, a.UserID, s.d.Now()); err != nil {
		return domain.Playlist{}, err
	}
	saved, err := s.saveWithDuration(ctx, p)
	if err != nil {
		return domain.Playlist{}, err
	}
	s.d.publish(ctx, domain.Event{Type: domain.EventPlaylistSongAdded, SubjectID: id, ActorID: a.UserID, Data: map[string]string{"songId": songID}})
	return saved, nil
}

func (s *PlaylistService) RemoveSong(ctx context.Context, a policy.Actor, id, songID string) (domain.Playlist, error) {
	if err := requireUser(a); err != nil {
		return domain.Playlist{}, err
	}
	p, err := s.load(ctx, id)
	if err != nil {
		return domain.Playlist{}, err
	}
	if !policy.CanEdit(p, a.UserID) {
		return domain.Playlist{}, fmt.Errorf("%w: cannot edit this playlist", domain.ErrForbidden)
	}
	if err := p.RemoveSong(songID); err != nil {
		return domain.Playlist{}, fmt.Errorf("service: song %s not in playlist: %w", songID, err)
	}
	saved, err := s.saveWithDuration(ctx, p)
	if err != nil {
		return domain.Playlist{}, err
	}
	s.d.publish(ctx, domain.Event{Type: domain.EventPlaylistSongRemove, SubjectID: id, ActorID: a.UserID, Data: map[string]string{"songId": songID}})
	return saved, nil
}

// saveWithDuration recomputes the total from the songs' current durations
// and writes the playlist.
func (s *PlaylistService) saveWithDuration(ctx context.Context, p domain.Playlist) (domain.Playlist, error) {
	songs, err := s.d.Songs.GetMany(ctx, p.SongIDs())
	if err != nil {
		return domain.Playlist{}, fmt.Errorf("service: failed to load playlist songs: %w", err)
	}
	durations := make(map[string]int, len(songs))
	for _, song := range songs {
		durations[song.ID] = song.Duration
	}
	p.RecomputeDuration(durations)
	p.UpdatedAt = s.d.Now()
	saved, err := s.d.Playlists.Update(ctx, p)
	if err != nil {
		return domain.Playlist{}, fmt.Errorf("service: failed to save playlist: %w", err)
	}
	return saved, nil
}

func (s *PlaylistService) Reorder(ctx context.Context, a policy.Actor, id string, assignments []domain.OrderAssignment) (domain.Playlist, error) {
	if err := requireUser(a); err != nil {
		return domain.Playlist{}, err
	}
	saved, err := s.mutate(ctx, id, func(p *domain.Playlist) error {
		if !policy.CanEdit(*p, a.UserID) {
			return fmt.Errorf("%w: cannot edit this playlist", domain.ErrForbidden)
		}
		return p.ReorderSongs(assignments)
	})
	if err != nil {
		return domain.Playlist{}, err
	}
	s.d.publish(ctx, domain.Event{Type: domain.EventPlaylistReordered, SubjectID: id, ActorID: a.UserID})
	return saved, nil
}

func (s *PlaylistService) AddCollaborator(ctx context.Context, a policy.Actor, id, userID string, role domain.CollaboratorRole) (domain.Playlist, error) {
	if err := requireUser(a); err != nil {
		return domain.Playlist{}, err
	}
	if _, err := s.d.Users.GetByID(ctx, userID); err != nil {
		return domain.Playlist{}, fmt.Errorf("service: failed to load collaborator: %w", err)
	}
	return s.mutate(ctx, id, func(p *domain.Playlist) error {
		if !policy.CanManage(*p, a.UserID) {
			return fmt.Errorf("%w: only the owner manages collaborators", domain.ErrForbidden)
		}
		return p.AddCollaborator(userID, role, s.d.Now())
	})
}

// RemoveCollaborator is open to the owner and to collaborators leaving.
func (s *PlaylistService) RemoveCollaborator(ctx context.Context, a policy.Actor, id, userID string) (domain.Playlist, error) {
	if err := requireUser(a); err != nil {
		return domain.Playlist{}, err
	}
	return s.mutate(ctx, id, func(p *domain.Playlist) error {
		if !policy.CanManage(*p, a.UserID) && a.UserID != userID {
			return fmt.Errorf("%w: only the owner manages collaborators", domain.ErrForbidden)
		}
		if err := p.RemoveCollaborator(userID); err != nil {
			return fmt.Errorf("service: collaborator %s: %w", userID, err)
		}
		return nil
	})
}

// Social is the caller's relation to a playlist after a toggle.
type Social struct {
	Active    bool `json:"active"`
	Likes     int  `json:"likes"`
	Followers int  `json:"followers"`
}

func (s *PlaylistService) ToggleLike(ctx context.Context, a policy.Actor, id string) (Social, error) {
	return s.toggle(ctx, a, id, (*domain.Playlist).ToggleLike, "")
}

func (s *PlaylistService) ToggleFollow(ctx context.Context, a policy.Actor, id string) (Social, error) {
	return s.toggle(ctx, a, id, (*domain.Playlist).ToggleFollow, domain.EventPlaylistFollowed)
}

func (s *PlaylistService) toggle(ctx context.Context, a policy.Actor, id string, flip func(*domain.Playlist, string) bool, ev domain.EventType) (Social, error) {
	if err := requireUser(a); err != nil {
		return Social{}, err
	}
	var on bool
	saved, err := s.mutate(ctx, id, func(p *domain.Playlist) error {
		if !policy.CanView(*p, a.UserID) {
			return fmt.Errorf("%w: playlist is private", domain.ErrForbidden)
		}
		on = flip(p, a.UserID)
		return nil
	})
	if err != nil {
		return Social{}, err
	}
	if on && ev != "" {
		s.d.publish(ctx, domain.Event{Type: ev, SubjectID: id, ActorID: a.UserID})
	}
	return Social{Active: on, Likes: len(saved.Likes), Followers: len(saved.Followers)}, nil
}

func (s *PlaylistService) Play(ctx context.Context, a policy.Actor, id string) (domain.Playlist, error) {
	saved, err := s.mutate(ctx, id, func(p *domain.Playlist) error {
		if !policy.CanView(*p, a.UserID) {
			return fmt.Errorf("%w: playlist is private", domain.ErrForbidden)
		}
		p.IncrementPlayCount(s.d.Now())
		return nil
	})
	if err != nil {
		return domain.Playlist{}, err
	}
	s.d.publish(ctx, domain.Event{Type: domain.EventPlaylistPlayed, SubjectID: id, ActorID: a.UserID})
	return saved, nil
}

// Public is the top n public playlists by play count.
func (s *PlaylistService) Public(ctx context.Context, n int) ([]domain.Playlist, error) {
	lists, err := s.d.Playlists.List(ctx, ports.PlaylistFilter{PublicOnly: true}, ports.ListQuery{Sort: ports.SortPopular, Limit: clampTop(n)})
	if err != nil {
		return nil, fmt.Errorf("service: failed to list public playlists: %w", err)
	}
	return lists, nil
}

// Featured is the newest n public featured playlists.
func (s *PlaylistService) Featured(ctx context.Context, n int) ([]domain.Playlist, error) {
	lists, err := s.d.Playlists.List(ctx, ports.PlaylistFilter{PublicOnly: true, FeaturedOnly: true}, ports.ListQuery{Sort: ports.SortNewest, Limit: clampTop(n)})
	if err != nil {
		return nil, fmt.Errorf("service: failed to list featured playlists: %w", err)
	}
	return lists, nil
}

// Mine lists playlists the caller owns or collaborates on.
func (s *PlaylistService) Mine(ctx context.Context, a policy.Actor, q ports.ListQuery) ([]domain.Playlist, int, error) {
	if err := requireUser(a); err != nil {
		return nil, 0, err
	}
	return s.list(ctx, ports.PlaylistFilter{Member: a.UserID}, q)
}

// Search matches public playlists by name and description.
func (s *PlaylistService) Search(ctx context.Context, text string, q ports.ListQuery) ([]domain.Playlist, int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, 0, &domain.ValidationError{Field: "q", Reason: "is required"}
	}
	return s.list(ctx, ports.PlaylistFilter{Text: text, PublicOnly: true}, q)
}

func (s *PlaylistService) list(ctx context.Context, f ports.PlaylistFilter, q ports.ListQuery) ([]domain.Playlist, int, error) {
	lists, err := s.d.Playlists.List(ctx, f, q.Normalize())
	if err != nil {
		return nil, 0, fmt.Errorf("service: failed to list playlists: %w", err)
	}
	total, err := s.d.Playlists.Count(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("service: failed to count playlists: %w", err)
	}
	return lists, total, nil
}

func (s *PlaylistService) mutate(ctx context.Context, id string, fn func(*domain.Playlist) error) (domain.Playlist, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return domain.Playlist{}, err
	}
	if err := fn(&p); err != nil {
		return domain.Playlist{}, err
	}
	p.UpdatedAt = s.d.Now()
	saved, err := s.d.Playlists.Update(ctx, p)
	if err != nil {
		return domain.Playlist{}, fmt.Errorf("service: failed to save playlist: %w", err)
	}
	return saved, nil
}
