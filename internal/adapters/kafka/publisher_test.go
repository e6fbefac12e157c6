package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestPublisher_Message(t *testing.T) {
	w := &recordingWriter{}
	p := &Publisher{writer: w, topic: "events"}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ev := domain.Event{Type: domain.EventPlaylistSongAdded, SubjectID: "p1", ActorID: "u1", Data: map[string]string{"songId": "s1"}, At: at}

	require.NoError(t, p.Publish(context.Background(), ev))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "events", msg.Topic)
	assert.Equal(t, "p1", string(msg.Key))
	assert.Equal(t, at, msg.Time)
	assert.Equal(t, []kafka.Header{{Key: "type", Value: []byte("playlist.song_added")}}, msg.Headers)

	var got domain.Event
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, ev, got)
}

func TestPublisher_WriteFailure(t *testing.T) {
	p := &Publisher{writer: &recordingWriter{err: errors.New("leader not available")}, topic: "events"}
	err := p.Publish(context.Background(), domain.Event{Type: domain.EventSongPlayed})
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

// TestPublisher_Integration needs a broker listed in KAFKA_BROKERS.
func TestPublisher_Integration(t *testing.T) {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		t.Skip("KAFKA_BROKERS not set")
	}
	p := NewPublisher(strings.Split(brokers, ","), "tuneforge.test")
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, p.Publish(ctx, domain.Event{Type: domain.EventSongPlayed, SubjectID: "s1", At: time.Now().UTC()}))
}
