package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/policy"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
)

func ptr[T any](v T) *T { return &v }

func TestPlaylistService_ViewerThenEditor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewPlaylistService(f.deps)
	a := f.addUser(t, "A")
	b := f.addUser(t, "B")
	f.addSong(t, "S1", 200)

	p, err := svc.Create(ctx, a, PlaylistInput{Name: ptr("Shared"), IsPublic: ptr(false), IsCollaborative: ptr(true)})
	require.NoError(t, err)

	_, err = svc.AddCollaborator(ctx, a, p.ID, b.UserID, domain.CollaboratorViewer)
	require.NoError(t, err)

	_, err = svc.AddSong(ctx, b, p.ID, "S1")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.AddCollaborator(ctx, a, p.ID, b.UserID, domain.CollaboratorEditor)
	require.NoError(t, err)

	got, err := svc.AddSong(ctx, b, p.ID, "S1")
	require.NoError(t, err)
	require.Len(t, got.Songs, 1)
	assert.Equal(t, 1, got.Songs[0].Order)
	assert.Equal(t, "B", got.Songs[0].AddedBy)
	assert.Equal(t, 200, got.TotalDuration)
	assert.Len(t, got.Collaborators, 1, "role change must not duplicate the collaborator")
}

func TestPlaylistService_DuplicateAddKeepsMembership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewPlaylistService(f.deps)
	a := f.addUser(t, "A")
	f.addSong(t, "S1", 100)

	p, err := svc.Create(ctx, a, PlaylistInput{Name: ptr("Mix")})
	require.NoError(t, err)
	_, err = svc.AddSong(ctx, a, p.ID, "S1")
	require.NoError(t, err)

	_, err = svc.AddSong(ctx, a, p.ID, "S1")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	stored, err := f.playlists.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Songs, 1)
}

func TestPlaylistService_DurationUsesCurrentSongDurations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewPlaylistService(f.deps)
	a := f.addUser(t, "A")
	f.addSong(t, "S1", 100)
	f.addSong(t, "S2", 50)

	p, err := svc.Create(ctx, a, PlaylistInput{Name: ptr("Mix")})
	require.NoError(t, err)
	_, err = svc.AddSong(ctx, a, p.ID, "S1")
	require.NoError(t, err)

	// The song's duration changes after it joined the playlist.
	s1, err := f.songs.GetByID(ctx, "S1")
	require.NoError(t, err)
	s1.Duration = 130
	_, err = f.songs.Update(ctx, s1)
	require.NoError(t, err)

	got, err := svc.AddSong(ctx, a, p.ID, "S2")
	require.NoError(t, err)
	assert.Equal(t, 180, got.TotalDuration)

	got, err = svc.RemoveSong(ctx, a, p.ID, "S1")
	require.NoError(t, err)
	assert.Equal(t, 50, got.TotalDuration)

	_, err = svc.RemoveSong(ctx, a, p.ID, "S1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPlaylistService_Reorder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewPlaylistService(f.deps)
	a := f.addUser(t, "A")
	p, err := svc.Create(ctx, a, PlaylistInput{Name: ptr("Mix")})
	require.NoError(t, err)
	for _, id := range []string{"S1", "S2", "S3"} {
		f.addSong(t, id, 60)
		_, err := svc.AddSong(ctx, a, p.ID, id)
		require.NoError(t, err)
	}

	got, err := svc.Reorder(ctx, a, p.ID, []domain.OrderAssignment{{SongID: "S3", Order: 1}, {SongID: "S1", Order: 3}})
	require.NoError(t, err)
	assert.Equal(t, []string{"S3", "S2", "S1"}, got.SongIDs())
	assert.Contains(t, f.events.Types(), domain.EventPlaylistReordered)
}

func TestPlaylistService_PrivateVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewPlaylistService(f.deps)
	a := f.addUser(t, "A")
	c := f.addUser(t, "C")
	admin := f.addUser(t, "root", asAdmin)

	p, err := svc.Create(ctx, a, PlaylistInput{Name: ptr("Secret"), IsPublic: ptr(false)})
	require.NoError(t, err)

	tests := []struct {
		name    string
		actor   policy.Actor
		wantErr error
	}{
		{name: "owner", actor: a},
		{name: "stranger", actor: c, wantErr: domain.ErrForbidden},
		{name: "anonymous", actor: policy.Actor{}, wantErr: domain.ErrForbidden},
		{name: "admin", actor: admin},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Get(ctx, tc.actor, p.ID)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}

	_, err = svc.ToggleLike(ctx, c, p.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.Get(ctx, a, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPlaylistService_GetResolvesSongsInOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewPlaylistService(f.deps)
	a := f.addUser(t, "A")
	p, err := svc.Create(ctx, a, PlaylistInput{Name: ptr("Mix")})
	require.NoError(t, err)
	for _, id := range []string{"S1", "S2", "S3"} {
		f.addSong(t, id, 10)
		_, err := svc.AddSong(ctx, a, p.ID, id)
		require.NoError(t, err)
	}
	s2, _ := f.songs.GetByID(ctx, "S2")
	s2.IsActive = false
	_, err = f.songs.Update(ctx, s2)
	require.NoError(t, err)

	view, err := svc.Get(ctx, a, p.ID)
	require.NoError(t, err)
	ids := []string{}
	for _, s := range view.Tracks {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"S1", "S3"}, ids)
}

func TestPlaylistService_OwnerOnlyOperations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewPlaylistService(f.deps)
	a := f.addUser(t, "A")
	b := f.addUser(t, "B")
	p, err := svc.Create(ctx, a, PlaylistInput{Name: ptr("Mix"), IsCollaborative: ptr(true)})
	require.NoError(t, err)
	_, err = svc.AddCollaborator(ctx, a, p.ID, b.UserID, domain.CollaboratorEditor)
	require.NoError(t, err)

	_, err = svc.Update(ctx, b, p.ID, PlaylistInput{Description: ptr("editors may describe")})
	assert.NoError(t, err)
	_, err = svc.Update(ctx, b, p.ID, PlaylistInput{IsPublic: ptr(false)})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.AddCollaborator(ctx, b, p.ID, "A", domain.CollaboratorViewer)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.AddCollaborator(ctx, a, p.ID, a.UserID, domain.CollaboratorEditor)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.ErrorIs(t, svc.Delete(ctx, b, p.ID), domain.ErrForbidden)

	// A collaborator may leave on their own.
	_, err = svc.RemoveCollaborator(ctx, b, p.ID, b.UserID)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, a, p.ID))
}

func TestPlaylistService_ListingsAndToggles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewPlaylistService(f.deps)
	a := f.addUser(t, "A")
	b := f.addUser(t, "B")

	pub, err := svc.Create(ctx, a, PlaylistInput{Name: ptr("Summer hits")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, a, PlaylistInput{Name: ptr("Summer secrets"), IsPublic: ptr(false)})
	require.NoError(t, err)

	_, err = svc.Play(ctx, policy.Actor{}, pub.ID)
	require.NoError(t, err)

	social, err := svc.ToggleFollow(ctx, b, pub.ID)
	require.NoError(t, err)
	assert.Equal(t, Social{Active: true, Followers: 1}, social)
	social, err = svc.ToggleFollow(ctx, b, pub.ID)
	require.NoError(t, err)
	assert.False(t, social.Active)

	found, total, err := svc.Search(ctx, "summer", ports.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, pub.ID, found[0].ID)

	mine, total, err := svc.Mine(ctx, a, ports.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, mine, 2)

	top, err := svc.Public(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.EqualValues(t, 1, top[0].PlayCount)

	_, _, err = svc.Mine(ctx, policy.Actor{}, ports.ListQuery{})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestPlaylistService_EventFailureDoesNotFailRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(e domain.Event) bool {
		return e.Type == domain.EventPlaylistCreated
	})).Return(errors.New("broker down")).Once()
	f.deps.Events = pub

	svc := NewPlaylistService(f.deps)
	a := f.addUser(t, "A")
	_, err := svc.Create(ctx, a, PlaylistInput{Name: ptr("Mix")})
	require.NoError(t, err)
	pub.AssertExpectations(t)
}

func TestPlaylistService_StaleWriteConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewPlaylistService(f.deps)
	a := f.addUser(t, "A")
	p, err := svc.Create(ctx, a, PlaylistInput{Name: ptr("Mix")})
	require.NoError(t, err)

	stale, err := f.playlists.GetByID(ctx, p.ID)
	require.NoError(t, err)
	_, err = svc.ToggleLike(ctx, a, p.ID)
	require.NoError(t, err)

	stale.ToggleFollow("A")
	_, err = f.playlists.Update(ctx, stale)
	assert.ErrorIs(t, err, domain.ErrConflict)
}
