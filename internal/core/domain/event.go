package domain

import "time"

type EventType string

const (
	EventUserRegistered     EventType = "user.registered"
	EventSongUploaded       EventType = "song.uploaded"
	EventSongPlayed         EventType = "song.played"
	EventSongLiked          EventType = "song.liked"
	EventSongDisliked       EventType = "song.disliked"
	EventSongCommented      EventType = "song.commented"
	EventPlaylistCreated    EventType = "playlist.created"
	EventPlaylistSongAdded  EventType = "playlist.song_added"
	EventPlaylistSongRemove EventType = "playlist.song_removed"
	EventPlaylistReordered  EventType = "playlist.reordered"
	EventPlaylistPlayed     EventType = "playlist.played"
	EventPlaylistFollowed   EventType = "playlist.followed"
	EventBadgeAwarded       EventType = "user.badge_awarded"
)

// Event records a completed state change. Delivery is best-effort.
type Event struct {
	Type      EventType         `json:"type"`
	SubjectID string            `json:"subjectId"`
	ActorID   string            `json:"actorId,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	At        time.Time         `json:"at"`
}
