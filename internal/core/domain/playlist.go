package domain

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxOrderKey is the largest order key a reorder may assign.
const MaxOrderKey = 1 << 30

// ErrDuplicateSong matches ErrAlreadyExists.
var ErrDuplicateSong = fmt.Errorf("%w: song already in playlist", ErrAlreadyExists)

type CollaboratorRole string

const (
	CollaboratorEditor CollaboratorRole = "editor"
	CollaboratorViewer CollaboratorRole = "viewer"
)

func (r CollaboratorRole) Valid() bool {
	return r == CollaboratorEditor || r == CollaboratorViewer
}

type Collaborator struct {
	UserID  string           `json:"userId" bson:"user_id"`
	Role    CollaboratorRole `json:"role" bson:"role"`
	AddedAt time.Time        `json:"addedAt" bson:"added_at"`
}

// PlaylistEntry places one song in a playlist. Entries are kept sorted by
// Order.
type PlaylistEntry struct {
	SongID  string    `json:"songId" bson:"song_id"`
	Order   int       `json:"order" bson:"order"`
	AddedBy string    `json:"addedBy" bson:"added_by"`
	AddedAt time.Time `json:"addedAt" bson:"added_at"`
}

type RepeatMode string

const (
	RepeatOff RepeatMode = "off"
	RepeatOne RepeatMode = "one"
	RepeatAll RepeatMode = "all"
)

type PlaybackSettings struct {
	Shuffle  bool       `json:"shuffle" bson:"shuffle"`
	Repeat   RepeatMode `json:"repeat" bson:"repeat"`
	Autoplay bool       `json:"autoplay" bson:"autoplay"`
}

// OrderAssignment moves one member song to a new order key.
type OrderAssignment struct {
	SongID string `json:"songId"`
	Order  int    `json:"order"`
}

// Playlist is the playlist aggregate.
type Playlist struct {
	ID              string           `json:"id" bson:"_id"`
	Name            string           `json:"name" bson:"name"`
	Description     string           `json:"description" bson:"description"`
	CoverPath       string           `json:"coverPath,omitempty" bson:"cover_path"`
	IsPublic        bool             `json:"isPublic" bson:"is_public"`
	IsCollaborative bool             `json:"isCollaborative" bson:"is_collaborative"`
	IsFeatured      bool             `json:"isFeatured" bson:"is_featured"`
	Owner           string           `json:"owner" bson:"owner"`
	Collaborators   []Collaborator   `json:"collaborators" bson:"collaborators"`
	Songs           []PlaylistEntry  `json:"songs" bson:"songs"`
	Category        string           `json:"category,omitempty" bson:"category"`
	Mood            Mood             `json:"mood,omitempty" bson:"mood"`
	Tags            []string         `json:"tags" bson:"tags"`
	Likes           []string         `json:"likes" bson:"likes"`
	Followers       []string         `json:"followers" bson:"followers"`
	TotalDuration   int              `json:"totalDuration" bson:"total_duration"`
	PlayCount       int64            `json:"playCount" bson:"play_count"`
	LastPlayedAt    *time.Time       `json:"lastPlayedAt,omitempty" bson:"last_played_at,omitempty"`
	Settings        PlaybackSettings `json:"settings" bson:"settings"`
	CreatedAt       time.Time        `json:"createdAt" bson:"created_at"`
	UpdatedAt       time.Time        `json:"updatedAt" bson:"updated_at"`
	Version         int64            `json:"version" bson:"version"`
}

// NewPlaylist builds an empty playlist owned by owner.
func NewPlaylist(id, name, owner string, now time.Time) (*Playlist, error) {
	if id == "" {
		return nil, invalid("id", "is required")
	}
	if owner == "" {
		return nil, invalid("owner", "is required")
	}
	p := &Playlist{
		ID:            id,
		Name:          name,
		Owner:         owner,
		IsPublic:      true,
		Collaborators: []Collaborator{},
		Songs:         []PlaylistEntry{},
		Tags:          []string{},
		Likes:         []string{},
		Followers:     []string{},
		Settings:      PlaybackSettings{Repeat: RepeatOff},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the user-editable metadata.
func (p *Playlist) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	if n := utf8.RuneCountInString(p.Name); n == 0 || n > 100 {
		return invalid("name", "must be between 1 and 100 characters")
	}
	if utf8.RuneCountInString(p.Description) > 500 {
		return invalid("description", "must be at most 500 characters")
	}
	if p.Mood != "" && !p.Mood.Valid() {
		return invalid("mood", "is not a known mood")
	}
	switch p.Settings.Repeat {
	case "":
		p.Settings.Repeat = RepeatOff
	case RepeatOff, RepeatOne, RepeatAll:
	default:
		return invalid("settings.repeat", "must be off, one or all")
	}
	if len(p.Tags) > 20 {
		return invalid("tags", "at most 20 tags are allowed")
	}
	return nil
}

// HasSong reports whether songID is a member.
func (p *Playlist) HasSong(songID string) bool {
	return slices.ContainsFunc(p.Songs, func(e PlaylistEntry) bool { return e.SongID == songID })
}

// SongIDs lists member song ids in play order.
func (p *Playlist) SongIDs() []string {
	ids := make([]string, len(p.Songs))
	for i, e := range p.Songs {
		ids[i] = e.SongID
	}
	return ids
}

// AddSong appends songID after the current last entry. The caller recomputes
// the duration afterwards.
func (p *Playlist) AddSong(songID, userID string, now time.Time) error {
	if songID == "" {
		return invalid("songId", "is required")
	}
	if p.HasSong(songID) {
		return ErrDuplicateSong
	}
	next := 1
	for _, e := range p.Songs {
		if e.Order == math.MaxInt {
			return invalid("songs", "order keys exhausted")
		}
		if e.Order >= next {
			next = e.Order + 1
		}
	}
	p.Songs = append(p.Songs, PlaylistEntry{SongID: songID, Order: next, AddedBy: userID, AddedAt: now})
	return nil
}

// RemoveSong drops the entry for songID.
func (p *Playlist) RemoveSong(songID string) error {
	i := slices.IndexFunc(p.Songs, func(e PlaylistEntry) bool { return e.SongID == songID })
	if i < 0 {
		return ErrNotFound
	}
	p.Songs = slices.Delete(p.Songs, i, i+1)
	return nil
}

// ReorderSongs applies the assignments and re-sorts the entries by order key.
// Untouched entries keep their key; ties fall back to the previous key.
func (p *Playlist) ReorderSongs(assignments []OrderAssignment) error {
	if len(assignments) == 0 {
		return invalid("assignments", "must not be empty")
	}
	targets := make(map[string]int, len(assignments))
	seenOrder := make(map[int]bool, len(assignments))
	for _, a := range assignments {
		if !p.HasSong(a.SongID) {
			return ErrNotFound
		}
		if _, dup := targets[a.SongID]; dup {
			return invalid("assignments", "lists a song more than once")
		}
		if a.Order < 1 || a.Order > MaxOrderKey {
			return invalid("assignments", fmt.Sprintf("order must be between 1 and %d", MaxOrderKey))
		}
		if seenOrder[a.Order] {
			return invalid("assignments", "assigns the same order more than once")
		}
		targets[a.SongID] = a.Order
		seenOrder[a.Order] = true
	}

	type keyed struct {
		entry PlaylistEntry
		prev  int
	}
	work := make([]keyed, len(p.Songs))
	for i, e := range p.Songs {
		work[i] = keyed{entry: e, prev: e.Order}
		if o, ok := targets[e.SongID]; ok {
			work[i].entry.Order = o
		}
	}
	slices.SortStableFunc(work, func(a, b keyed) int {
		if c := cmp.Compare(a.entry.Order, b.entry.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.prev, b.prev)
	})
	for i := range work {
		p.Songs[i] = work[i].entry
	}
	return nil
}

// RecomputeDuration sets TotalDuration to the sum of the given current
// durations of the member songs. Members missing from durations add nothing.
func (p *Playlist) RecomputeDuration(durations map[string]int) {
	total := 0
	for _, e := range p.Songs {
		total += durations[e.SongID]
	}
	p.TotalDuration = total
}

// Collaborator returns the collaborator entry for userID.
func (p *Playlist) Collaborator(userID string) (Collaborator, bool) {
	i := slices.IndexFunc(p.Collaborators, func(c Collaborator) bool { return c.UserID == userID })
	if i < 0 {
		return Collaborator{}, false
	}
	return p.Collaborators[i], true
}

// AddCollaborator inserts userID or updates the role of an existing entry.
func (p *Playlist) AddCollaborator(userID string, role CollaboratorRole, now time.Time) error {
	if userID == "" {
		return invalid("userId", "is required")
	}
	if !role.Valid() {
		return invalid("role", "must be editor or viewer")
	}
	if userID == p.Owner {
		return invalid("userId", "the owner cannot be a collaborator")
	}
	for i := range p.Collaborators {
		if p.Collaborators[i].UserID == userID {
			p.Collaborators[i].Role = role
			return nil
		}
	}
	p.Collaborators = append(p.Collaborators, Collaborator{UserID: userID, Role: role, AddedAt: now})
	return nil
}

// RemoveCollaborator drops userID from the collaborator list.
func (p *Playlist) RemoveCollaborator(userID string) error {
	i := slices.IndexFunc(p.Collaborators, func(c Collaborator) bool { return c.UserID == userID })
	if i < 0 {
		return ErrNotFound
	}
	p.Collaborators = slices.Delete(p.Collaborators, i, i+1)
	return nil
}

// ToggleLike flips userID in the like set and reports the new state.
func (p *Playlist) ToggleLike(userID string) bool {
	var on bool
	p.Likes, on = toggle(p.Likes, userID)
	return on
}

// ToggleFollow flips userID in the follower set and reports the new state.
func (p *Playlist) ToggleFollow(userID string) bool {
	var on bool
	p.Followers, on = toggle(p.Followers, userID)
	return on
}

// IncrementPlayCount counts one play and stamps the time.
func (p *Playlist) IncrementPlayCount(now time.Time) {
	p.PlayCount++
	p.LastPlayedAt = &now
}

func (p Playlist) Clone() Playlist {
	p.Collaborators = slices.Clone(p.Collaborators)
	p.Songs = slices.Clone(p.Songs)
	p.Tags = slices.Clone(p.Tags)
	p.Likes = slices.Clone(p.Likes)
	p.Followers = slices.Clone(p.Followers)
	return p
}
