package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/policy"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
)

type SongService struct {
	d Deps
}

func NewSongService(d Deps) *SongService {
	return &SongService{d: d.withDefaults()}
}

// SongMetadata is the uploader-controlled part of a song.
type SongMetadata struct {
	Title       string       `json:"title"`
	Artist      string       `json:"artist"`
	Album       string       `json:"album"`
	Genre       domain.Genre `json:"genre"`
	Duration    int          `json:"duration"`
	ReleaseYear int          `json:"releaseYear"`
	Language    string       `json:"language"`
	Mood        domain.Mood  `json:"mood"`
	BPM         int          `json:"bpm"`
	Key         string       `json:"key"`
	IsPremium   bool         `json:"isPremium"`
}

// MediaUpload is one file of a multipart upload.
type MediaUpload struct {
	Body        io.Reader
	Size        int64
	Filename    string
	ContentType string
}

type UploadInput struct {
	Meta  SongMetadata
	Audio MediaUpload
	Cover *MediaUpload
}

var audioExts = map[string]bool{".mp3": true, ".wav": true, ".ogg": true, ".flac": true, ".m4a": true, ".aac": true}
var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

// Upload stores the media and creates the song. Admin only.
func (s *SongService) Upload(ctx context.Context, a policy.Actor, in UploadInput) (domain.Song, error) {
	if err := requireAdmin(a); err != nil {
		return domain.Song{}, err
	}
	if s.d.Media == nil {
		return domain.Song{}, fmt.Errorf("%w: media storage not configured", domain.ErrUnavailable)
	}
	audioExt := strings.ToLower(path.Ext(in.Audio.Filename))
	if in.Audio.Body == nil || !audioExts[audioExt] {
		return domain.Song{}, &domain.ValidationError{Field: "audio", Reason: "must be an mp3, wav, ogg, flac, m4a or aac file"}
	}
	coverExt := ""
	if in.Cover != nil {
		coverExt = strings.ToLower(path.Ext(in.Cover.Filename))
		if !imageExts[coverExt] {
			return domain.Song{}, &domain.ValidationError{Field: "cover", Reason: "must be a jpg, png or webp image"}
		}
	}

	now := s.d.Now()
	song := domain.Song{ID: s.d.NewID(), IsActive: true, UploadedBy: a.UserID, CreatedAt: now, UpdatedAt: now, Version: 1}
	applyMetadata(&song, in.Meta)
	if err := song.Validate(); err != nil {
		return domain.Song{}, err
	}

	song.FilePath = "audio/" + song.ID + audioExt
	if err := s.d.Media.Put(ctx, song.FilePath, in.Audio.Body, in.Audio.Size, in.Audio.ContentType); err != nil {
		return domain.Song{}, fmt.Errorf("service: failed to store audio: %w", err)
	}
	if in.Cover != nil {
		song.CoverPath = "covers/" + song.ID + coverExt
		if err := s.d.Media.Put(ctx, song.CoverPath, in.Cover.Body, in.Cover.Size, in.Cover.ContentType); err != nil {
			s.discardMedia(ctx, song.FilePath)
			return domain.Song{}, fmt.Errorf("service: failed to store cover: %w", err)
		}
	}

	if err := s.d.Songs.Create(ctx, song); err != nil {
		s.discardMedia(ctx, song.FilePath, song.CoverPath)
		return domain.Song{}, fmt.Errorf("service: failed to create song: %w", err)
	}
	if audioExt == ".mp3" && needsProbe(song) && s.d.Analysis != nil {
		if !s.d.Analysis.Submit(song.ID, song.FilePath) {
			s.d.Log.Warn("audio probe not queued", "song_id", song.ID)
		}
	}
	s.d.publish(ctx, domain.Event{Type: domain.EventSongUploaded, SubjectID: song.ID, ActorID: a.UserID})
	return song, nil
}

func (s *SongService) discardMedia(ctx context.Context, keys ...string) {
	for _, k := range keys {
		if k == "" {
			continue
		}
		if err := s.d.Media.Delete(ctx, k); err != nil {
			s.d.Log.Warn("failed to discard media", "key", k, "error", err)
		}
	}
}

func applyMetadata(song *domain.Song, m SongMetadata) {
	song.Title = m.Title
	song.Artist = m.Artist
	song.Album = m.Album
	song.Genre = m.Genre
	song.Duration = m.Duration
	song.ReleaseYear = m.ReleaseYear
	song.Language = m.Language
	song.Mood = m.Mood
	song.BPM = m.BPM
	song.Key = m.Key
	song.IsPremium = m.IsPremium
}

// Get returns song details. Inactive songs are hidden from everyone but
// admins; premium songs require premium access.
func (s *SongService) Get(ctx context.Context, a policy.Actor, id string) (domain.Song, error) {
	song, err := s.load(ctx, a, id)
	if err != nil {
		return domain.Song{}, err
	}
	if !policy.CanAccessSong(song, a) {
		return domain.Song{}, fmt.Errorf("%w: premium subscription required", domain.ErrForbidden)
	}
	return song, nil
}

func (s *SongService) load(ctx context.Context, a policy.Actor, id string) (domain.Song, error) {
	song, err := s.d.Songs.GetByID(ctx, id)
	if err != nil {
		return domain.Song{}, fmt.Errorf("service: failed to load song: %w", err)
	}
	if !song.IsActive && !policy.IsAdmin(a) {
		return domain.Song{}, fmt.Errorf("service: failed to load song: %w", domain.ErrNotFound)
	}
	return song, nil
}

// List pages through songs. Only admins see inactive songs.
func (s *SongService) List(ctx context.Context, a policy.Actor, f ports.SongFilter, q ports.ListQuery) ([]domain.Song, int, error) {
	if !policy.IsAdmin(a) {
		f.ActiveOnly = true
	}
	if f.Genre != "" && !f.Genre.Valid() {
		return nil, 0, &domain.ValidationError{Field: "genre", Reason: "is not a known genre"}
	}
	if f.Mood != "" && !f.Mood.Valid() {
		return nil, 0, &domain.ValidationError{Field: "mood", Reason: "is not a known mood"}
	}
	songs, err := s.d.Songs.List(ctx, f, q.Normalize())
	if err != nil {
		return nil, 0, fmt.Errorf("service: failed to list songs: %w", err)
	}
	total, err := s.d.Songs.Count(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("service: failed to count songs: %w", err)
	}
	return songs, total, nil
}

func (s *SongService) Search(ctx context.Context, a policy.Actor, text string, q ports.ListQuery) ([]domain.Song, int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, 0, &domain.ValidationError{Field: "q", Reason: "is required"}
	}
	return s.List(ctx, a, ports.SongFilter{Text: text}, q)
}

// Trending is the top n active songs by play count.
func (s *SongService) Trending(ctx context.Context, n int) ([]domain.Song, error) {
	songs, err := s.d.Songs.List(ctx, ports.SongFilter{ActiveOnly: true}, ports.ListQuery{Sort: ports.SortPopular, Limit: clampTop(n)})
	if err != nil {
		return nil, fmt.Errorf("service: failed to list trending songs: %w", err)
	}
	return songs, nil
}

// Featured is the newest n active featured songs.
func (s *SongService) Featured(ctx context.Context, n int) ([]domain.Song, error) {
	songs, err := s.d.Songs.List(ctx, ports.SongFilter{ActiveOnly: true, FeaturedOnly: true}, ports.ListQuery{Sort: ports.SortNewest, Limit: clampTop(n)})
	if err != nil {
		return nil, fmt.Errorf("service: failed to list featured songs: %w", err)
	}
	return songs, nil
}

// UpdateMetadata replaces the editable metadata. Admin only.
func (s *SongService) UpdateMetadata(ctx context.Context, a policy.Actor, id string, m SongMetadata) (domain.Song, error) {
	if err := requireAdmin(a); err != nil {
		return domain.Song{}, err
	}
	return s.mutate(ctx, a, id, func(song *domain.Song) error {
		applyMetadata(song, m)
		return song.Validate()
	})
}

// SetActive hides or restores a song. Admin only.
func (s *SongService) SetActive(ctx context.Context, a policy.Actor, id string, active bool) (domain.Song, error) {
	if err := requireAdmin(a); err != nil {
		return domain.Song{}, err
	}
	return s.mutate(ctx, a, id, func(song *domain.Song) error {
		song.IsActive = active
		return nil
	})
}

// Play counts a play and, for signed-in callers, records it in their
// listening history. The count is the committed result; a history write that
// fails afterwards is logged, so a retry never counts the play twice.
func (s *SongService) Play(ctx context.Context, a policy.Actor, id string, durationPlayed int) (domain.Song, error) {
	if durationPlayed < 0 {
		return domain.Song{}, &domain.ValidationError{Field: "durationPlayed", Reason: "must not be negative"}
	}
	song, err := s.mutateAccessible(ctx, a, id, func(song *domain.Song) error {
		song.IncrementPlayCount()
		return nil
	})
	if err != nil {
		return domain.Song{}, err
	}
	if !a.Anonymous() {
		if err := s.recordHistory(ctx, a.UserID, song.ID, durationPlayed); err != nil {
			s.d.Log.Warn("listening history not recorded", "user", a.UserID, "song", song.ID, "error", err)
		}
	}
	s.d.publish(ctx, domain.Event{Type: domain.EventSongPlayed, SubjectID: song.ID, ActorID: a.UserID})
	return song, nil
}

func (s *SongService) recordHistory(ctx context.Context, userID, songID string, durationPlayed int) error {
	u, err := s.d.Users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("service: failed to load user: %w", err)
	}
	u.AddToHistory(songID, durationPlayed, s.d.Now())
	if _, err := s.d.Users.Update(ctx, u); err != nil {
		return fmt.Errorf("service: failed to record history: %w", err)
	}
	return nil
}

// Reaction is the caller's like state after a toggle.
type Reaction struct {
	Liked    bool `json:"liked"`
	Disliked bool `json:"disliked"`
	Likes    int  `json:"likes"`
	Dislikes int  `json:"dislikes"`
}

func reaction(song domain.Song, userID string) Reaction {
	return Reaction{Liked: song.LikedBy(userID), Disliked: song.DislikedBy(userID), Likes: len(song.Likes), Dislikes: len(song.Dislikes)}
}

func (s *SongService) ToggleLike(ctx context.Context, a policy.Actor, id string) (Reaction, error) {
	if err := requireUser(a); err != nil {
		return Reaction{}, err
	}
	song, err := s.mutateAccessible(ctx, a, id, func(song *domain.Song) error {
		song.ToggleLike(a.UserID)
		return nil
	})
	if err != nil {
		return Reaction{}, err
	}
	r := reaction(song, a.UserID)
	if r.Liked {
		s.d.publish(ctx, domain.Event{Type: domain.EventSongLiked, SubjectID: id, ActorID: a.UserID})
	}
	return r, nil
}

func (s *SongService) ToggleDislike(ctx context.Context, a policy.Actor, id string) (Reaction, error) {
	if err := requireUser(a); err != nil {
		return Reaction{}, err
	}
	song, err := s.mutateAccessible(ctx, a, id, func(song *domain.Song) error {
		song.ToggleDislike(a.UserID)
		return nil
	})
	if err != nil {
		return Reaction{}, err
	}
	r := reaction(song, a.UserID)
	if r.Disliked {
		s.d.publish(ctx, domain.Event{Type: domain.EventSongDisliked, SubjectID: id, ActorID: a.UserID})
	}
	return r, nil
}

func (s *SongService) AddComment(ctx context.Context, a policy.Actor, id, text string) (domain.Comment, error) {
	if err := requireUser(a); err != nil {
		return domain.Comment{}, err
	}
	var c domain.Comment
	_, err := s.mutateAccessible(ctx, a, id, func(song *domain.Song) error {
		var err error
		c, err = song.AddComment(s.d.NewID(), a.UserID, text, s.d.Now())
		return err
	})
	if err != nil {
		return domain.Comment{}, err
	}
	s.d.publish(ctx, domain.Event{Type: domain.EventSongCommented, SubjectID: id, ActorID: a.UserID, Data: map[string]string{"commentId": c.ID}})
	return c, nil
}

func (s *SongService) Comments(ctx context.Context, a policy.Actor, id string, offset, limit int) ([]domain.Comment, int, error) {
	song, err := s.Get(ctx, a, id)
	if err != nil {
		return nil, 0, err
	}
	q := ports.ListQuery{Offset: offset, Limit: limit}.Normalize()
	page, total := song.CommentsPage(q.Offset, q.Limit)
	return page, total, nil
}

// DeleteComment lets authors remove their own comments and moderators remove
// anyone's.
func (s *SongService) DeleteComment(ctx context.Context, a policy.Actor, songID, commentID string) error {
	if err := requireUser(a); err != nil {
		return err
	}
	_, err := s.mutate(ctx, a, songID, func(song *domain.Song) error {
		c, ok := song.Comment(commentID)
		if !ok {
			return fmt.Errorf("service: comment %s: %w", commentID, domain.ErrNotFound)
		}
		if c.UserID != a.UserID && !policy.CanModerate(a) {
			return fmt.Errorf("%w: only the author or a moderator may delete this comment", domain.ErrForbidden)
		}
		return song.RemoveComment(commentID)
	})
	return err
}

// Media bundles an open media stream with what is known about it.
type Media struct {
	Body io.ReadSeekCloser
	Info ports.MediaInfo
	Name string
}

// Stream opens the audio of a song the caller may access. The caller closes
// the body.
func (s *SongService) Stream(ctx context.Context, a policy.Actor, id string) (Media, error) {
	song, err := s.Get(ctx, a, id)
	if err != nil {
		return Media{}, err
	}
	return s.open(ctx, song.FilePath)
}

// Cover opens the cover image. Covers are not premium-gated.
func (s *SongService) Cover(ctx context.Context, a policy.Actor, id string) (Media, error) {
	song, err := s.load(ctx, a, id)
	if err != nil {
		return Media{}, err
	}
	if song.CoverPath == "" {
		return Media{}, fmt.Errorf("service: song has no cover: %w", domain.ErrNotFound)
	}
	return s.open(ctx, song.CoverPath)
}

func (s *SongService) open(ctx context.Context, key string) (Media, error) {
	if s.d.Media == nil {
		return Media{}, fmt.Errorf("%w: media storage not configured", domain.ErrUnavailable)
	}
	body, info, err := s.d.Media.Open(ctx, key)
	if err != nil {
		return Media{}, fmt.Errorf("service: failed to open media: %w", err)
	}
	return Media{Body: body, Info: info, Name: path.Base(key)}, nil
}

// mutate loads a song, applies fn and writes it back with the version check.
func (s *SongService) mutate(ctx context.Context, a policy.Actor, id string, fn func(*domain.Song) error) (domain.Song, error) {
	song, err := s.load(ctx, a, id)
	if err != nil {
		return domain.Song{}, err
	}
	return s.apply(ctx, song, fn)
}

func (s *SongService) mutateAccessible(ctx context.Context, a policy.Actor, id string, fn func(*domain.Song) error) (domain.Song, error) {
	song, err := s.Get(ctx, a, id)
	if err != nil {
		return domain.Song{}, err
	}
	return s.apply(ctx, song, fn)
}

func (s *SongService) apply(ctx context.Context, song domain.Song, fn func(*domain.Song) error) (domain.Song, error) {
	if err := fn(&song); err != nil {
		return domain.Song{}, err
	}
	song.UpdatedAt = s.d.Now()
	saved, err := s.d.Songs.Update(ctx, song)
	if err != nil {
		return domain.Song{}, fmt.Errorf("service: failed to save song: %w", err)
	}
	return saved, nil
}

// ProbeResult is what background inspection learned from an audio file.
// Zero values mean unknown.
type ProbeResult struct {
	Duration    int
	Album       string
	ReleaseYear int
}

// needsProbe reports whether inspecting the file could fill in anything.
func needsProbe(song domain.Song) bool {
	return song.Duration == 0 || song.Album == "" || song.ReleaseYear == 0
}

// ApplyProbe fills fields the uploader left empty. Values already set are
// never overwritten and out-of-range tag values are ignored. A concurrent
// write surfaces as domain.ErrConflict.
func (s *SongService) ApplyProbe(ctx context.Context, id string, p ProbeResult) error {
	song, err := s.d.Songs.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("service: failed to load song: %w", err)
	}
	changed := false
	if song.Duration == 0 && p.Duration > 0 {
		song.Duration = p.Duration
		changed = true
	}
	if album := strings.TrimSpace(p.Album); song.Album == "" && album != "" {
		song.Album = album
		if song.Validate() != nil {
			song.Album = ""
		} else {
			changed = true
		}
	}
	if song.ReleaseYear == 0 && p.ReleaseYear != 0 {
		song.ReleaseYear = p.ReleaseYear
		if song.Validate() != nil {
			song.ReleaseYear = 0
		} else {
			changed = true
		}
	}
	if !changed {
		return nil
	}
	song.UpdatedAt = s.d.Now()
	if _, err := s.d.Songs.Update(ctx, song); err != nil {
		return fmt.Errorf("service: failed to save probe result: %w", err)
	}
	return nil
}

// SetDuration stores a probed duration unless one is already known.
func (s *SongService) SetDuration(ctx context.Context, id string, seconds int) error {
	if seconds <= 0 {
		return &domain.ValidationError{Field: "duration", Reason: "must be positive"}
	}
	return s.ApplyProbe(ctx, id, ProbeResult{Duration: seconds})
}
