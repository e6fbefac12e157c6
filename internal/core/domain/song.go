package domain

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxCommentLength = 500
	maxTitleLength   = 200
)

type Genre string

const (
	GenrePop        Genre = "pop"
	GenreRock       Genre = "rock"
	GenreHipHop     Genre = "hiphop"
	GenreRnB        Genre = "rnb"
	GenreJazz       Genre = "jazz"
	GenreClassical  Genre = "classical"
	GenreElectronic Genre = "electronic"
	GenreCountry    Genre = "country"
	GenreMetal      Genre = "metal"
	GenreFolk       Genre = "folk"
	GenreIndie      Genre = "indie"
	GenreLatin      Genre = "latin"
	GenreOther      Genre = "other"
)

var genres = []Genre{
	GenrePop, GenreRock, GenreHipHop, GenreRnB, GenreJazz, GenreClassical, GenreElectronic,
	GenreCountry, GenreMetal, GenreFolk, GenreIndie, GenreLatin, GenreOther,
}

func (g Genre) Valid() bool { return slices.Contains(genres, g) }

type Mood string

const (
	MoodHappy     Mood = "happy"
	MoodSad       Mood = "sad"
	MoodEnergetic Mood = "energetic"
	MoodCalm      Mood = "calm"
	MoodRomantic  Mood = "romantic"
	MoodAngry     Mood = "angry"
	MoodChill     Mood = "chill"
	MoodFocus     Mood = "focus"
	MoodOther     Mood = "other"
)

var moods = []Mood{MoodHappy, MoodSad, MoodEnergetic, MoodCalm, MoodRomantic, MoodAngry, MoodChill, MoodFocus, MoodOther}

func (m Mood) Valid() bool { return slices.Contains(moods, m) }

type Comment struct {
	ID        string    `json:"id" bson:"id"`
	UserID    string    `json:"userId" bson:"user_id"`
	Text      string    `json:"text" bson:"text"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// Song is the track aggregate. Likes and Dislikes never share a user id.
type Song struct {
	ID          string    `json:"id" bson:"_id"`
	Title       string    `json:"title" bson:"title"`
	Artist      string    `json:"artist" bson:"artist"`
	Album       string    `json:"album,omitempty" bson:"album"`
	Genre       Genre     `json:"genre" bson:"genre"`
	Duration    int       `json:"duration" bson:"duration"` // seconds
	ReleaseYear int       `json:"releaseYear,omitempty" bson:"release_year"`
	Language    string    `json:"language,omitempty" bson:"language"`
	Mood        Mood      `json:"mood,omitempty" bson:"mood"`
	BPM         int       `json:"bpm,omitempty" bson:"bpm"`
	Key         string    `json:"key,omitempty" bson:"key"`
	FilePath    string    `json:"filePath" bson:"file_path"`
	CoverPath   string    `json:"coverPath,omitempty" bson:"cover_path"`
	IsActive    bool      `json:"isActive" bson:"is_active"`
	IsFeatured  bool      `json:"isFeatured" bson:"is_featured"`
	IsPremium   bool      `json:"isPremium" bson:"is_premium"`
	PlayCount   int64     `json:"playCount" bson:"play_count"`
	Likes       []string  `json:"likes" bson:"likes"`
	Dislikes    []string  `json:"dislikes" bson:"dislikes"`
	Comments    []Comment `json:"comments" bson:"comments"`
	UploadedBy  string    `json:"uploadedBy" bson:"uploaded_by"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updated_at"`
	Version     int64     `json:"version" bson:"version"`
}

// Validate checks the metadata fields an uploader or editor controls.
func (s *Song) Validate() error {
	s.Title = strings.TrimSpace(s.Title)
	s.Artist = strings.TrimSpace(s.Artist)
	s.Album = strings.TrimSpace(s.Album)
	if s.Title == "" || utf8.RuneCountInString(s.Title) > maxTitleLength {
		return invalid("title", "must be between 1 and 200 characters")
	}
	if s.Artist == "" || utf8.RuneCountInString(s.Artist) > maxTitleLength {
		return invalid("artist", "must be between 1 and 200 characters")
	}
	if utf8.RuneCountInString(s.Album) > maxTitleLength {
		return invalid("album", "is too long")
	}
	if s.Genre == "" {
		s.Genre = GenreOther
	}
	if !s.Genre.Valid() {
		return invalid("genre", "is not a known genre")
	}
	if s.Mood != "" && !s.Mood.Valid() {
		return invalid("mood", "is not a known mood")
	}
	if s.Duration < 0 {
		return invalid("duration", "must not be negative")
	}
	if s.BPM < 0 || s.BPM > 400 {
		return invalid("bpm", "must be between 0 and 400")
	}
	if s.ReleaseYear != 0 && (s.ReleaseYear < 1800 || s.ReleaseYear > 3000) {
		return invalid("releaseYear", "is out of range")
	}
	return nil
}

// IncrementPlayCount counts one play.
func (s *Song) IncrementPlayCount() {
	s.PlayCount++
}

// ToggleLike clears any dislike by userID, then flips the like. It reports
// whether the user likes the song afterwards.
func (s *Song) ToggleLike(userID string) bool {
	s.Dislikes = without(s.Dislikes, userID)
	var liked bool
	s.Likes, liked = toggle(s.Likes, userID)
	return liked
}

// ToggleDislike mirrors ToggleLike.
func (s *Song) ToggleDislike(userID string) bool {
	s.Likes = without(s.Likes, userID)
	var disliked bool
	s.Dislikes, disliked = toggle(s.Dislikes, userID)
	return disliked
}

func (s *Song) LikedBy(userID string) bool    { return slices.Contains(s.Likes, userID) }
func (s *Song) DislikedBy(userID string) bool { return slices.Contains(s.Dislikes, userID) }

// AddComment appends a comment. Text is trimmed and must hold 1 to
// MaxCommentLength characters.
func (s *Song) AddComment(id, userID, text string, now time.Time) (Comment, error) {
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n == 0 || n > MaxCommentLength {
		return Comment{}, invalid("text", "must be between 1 and 500 characters")
	}
	c := Comment{ID: id, UserID: userID, Text: text, CreatedAt: now}
	s.Comments = append(s.Comments, c)
	return c, nil
}

// Comment looks up a comment by id.
func (s *Song) Comment(id string) (Comment, bool) {
	i := slices.IndexFunc(s.Comments, func(c Comment) bool { return c.ID == id })
	if i < 0 {
		return Comment{}, false
	}
	return s.Comments[i], true
}

// RemoveComment deletes the comment with the given id.
func (s *Song) RemoveComment(id string) error {
	i := slices.IndexFunc(s.Comments, func(c Comment) bool { return c.ID == id })
	if i < 0 {
		return ErrNotFound
	}
	s.Comments = slices.Delete(s.Comments, i, i+1)
	return nil
}

// CommentsPage returns a window of comments in posting order plus the total.
func (s *Song) CommentsPage(offset, limit int) ([]Comment, int) {
	total := len(s.Comments)
	if offset < 0 {
		offset = 0
	}
	if offset >= total || limit <= 0 {
		return []Comment{}, total
	}
	end := min(offset+limit, total)
	return slices.Clone(s.Comments[offset:end]), total
}

func (s Song) Clone() Song {
	s.Likes = slices.Clone(s.Likes)
	s.Dislikes = slices.Clone(s.Dislikes)
	s.Comments = slices.Clone(s.Comments)
	return s
}

func toggle(set []string, id string) ([]string, bool) {
	if slices.Contains(set, id) {
		return without(set, id), false
	}
	return append(set, id), true
}

func without(set []string, id string) []string {
	return slices.DeleteFunc(set, func(v string) bool { return v == id })
}
