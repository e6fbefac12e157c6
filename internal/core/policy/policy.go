// Package policy answers who may see or change what. Every decision is a pure
// function of its arguments so it can be evaluated before any mutation.
package policy

import "github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"

// Actor is the request-scoped view of the caller. The zero value is an
// anonymous visitor.
type Actor struct {
	UserID       string
	Role         domain.Role
	Subscription domain.Subscription
}

// ActorFor snapshots the fields of u that decisions depend on.
func ActorFor(u domain.User) Actor {
	return Actor{UserID: u.ID, Role: u.Role, Subscription: u.Subscription}
}

func (a Actor) Anonymous() bool { return a.UserID == "" }

// CanView reports whether userID may read the playlist.
func CanView(p domain.Playlist, userID string) bool {
	if p.IsPublic {
		return true
	}
	if userID == "" {
		return false
	}
	if p.Owner == userID {
		return true
	}
	_, ok := p.Collaborator(userID)
	return ok
}

// CanEdit reports whether userID may change the playlist's songs or metadata.
// Editor collaborators only count while the playlist is collaborative.
func CanEdit(p domain.Playlist, userID string) bool {
	if userID == "" {
		return false
	}
	if p.Owner == userID {
		return true
	}
	if !p.IsCollaborative {
		return false
	}
	c, ok := p.Collaborator(userID)
	return ok && c.Role == domain.CollaboratorEditor
}

// CanManage is reserved to the owner: delete, collaborators, visibility.
func CanManage(p domain.Playlist, userID string) bool {
	return userID != "" && p.Owner == userID
}

func IsPremiumEligible(a Actor) bool {
	return !a.Anonymous() && a.Subscription.GrantsPremium()
}

func IsAdmin(a Actor) bool {
	return !a.Anonymous() && a.Role == domain.RoleAdmin
}

// CanModerate covers removing other users' comments.
func CanModerate(a Actor) bool {
	return !a.Anonymous() && (a.Role == domain.RoleAdmin || a.Role == domain.RoleModerator)
}

// CanAccessSong gates premium tracks to paying users and admins.
func CanAccessSong(s domain.Song, a Actor) bool {
	if !s.IsPremium {
		return true
	}
	return IsPremiumEligible(a) || IsAdmin(a)
}
