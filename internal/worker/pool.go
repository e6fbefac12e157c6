// Package worker runs background jobs on uploaded audio.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/services"
)

// Job asks for one uploaded audio file to be inspected.
type Job struct {
	SongID   string
	MediaKey string
}

// ProbeSink receives probe results. services.SongService satisfies it.
type ProbeSink interface {
	ApplyProbe(ctx context.Context, songID string, p services.ProbeResult) error
}

type Config struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
	// ConflictRetries bounds how often a stale write is retried.
	ConflictRetries int
}

// Pool inspects uploaded MP3s with a fixed number of goroutines.
type Pool struct {
	media ports.MediaStore
	cfg   Config
	log   *slog.Logger

	mu     sync.Mutex
	closed bool
	jobs   chan Job
	wg     sync.WaitGroup
}

var _ ports.AnalysisQueue = (*Pool)(nil)

func NewPool(media ports.MediaStore, cfg Config, log *slog.Logger) *Pool {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = time.Minute
	}
	if cfg.ConflictRetries < 1 {
		cfg.ConflictRetries = 3
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pool{media: media, cfg: cfg, log: log, jobs: make(chan Job, cfg.QueueSize)}
}

// Start launches the workers. Jobs queued before Start are kept.
func (p *Pool) Start(sink ProbeSink) {
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.processJob(sink, job)
			}
		}()
	}
}

// Stop drains the queue and waits for the workers.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// Submit queues a job without blocking. It reports false when the queue is
// full or the pool is stopped.
func (p *Pool) Submit(songID, mediaKey string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.jobs <- Job{SongID: songID, MediaKey: mediaKey}:
		return true
	default:
		p.log.Warn("worker queue full, dropping job", "song_id", songID)
		return false
	}
}

func (p *Pool) processJob(sink ProbeSink, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.JobTimeout)
	defer cancel()
	log := p.log.With("song_id", job.SongID, "key", job.MediaKey)

	body, _, err := p.media.Open(ctx, job.MediaKey)
	if err != nil {
		log.Warn("worker: failed to open audio", "error", err)
		return
	}
	res, err := ProbeAudioFunc(body)
	body.Close()
	if err != nil {
		log.Warn("worker: audio probe failed", "error", err)
		return
	}

	for attempt := 1; ; attempt++ {
		err = sink.ApplyProbe(ctx, job.SongID, res)
		if !errors.Is(err, domain.ErrConflict) || attempt >= p.cfg.ConflictRetries {
			break
		}
	}
	if err != nil {
		log.Warn("worker: failed to store probe result", "error", err)
		return
	}
	log.Info("worker: probe stored", "seconds", res.Duration, "album", res.Album, "year", res.ReleaseYear)
}
