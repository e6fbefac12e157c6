package worker

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/dhowden/tag"
	"github.com/hajimehoshi/go-mp3"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/services"
)

// go-mp3 always decodes to 16-bit stereo.
const bytesPerFrame = 4

// probeAudio reads ID3 tags and measures the decoded length. A file whose
// tags are readable but whose frames are not still yields the tags.
func probeAudio(r io.ReadSeeker) (services.ProbeResult, error) {
	var res services.ProbeResult
	if m, err := tag.ReadFrom(r); err == nil && m != nil {
		res.Album = strings.TrimSpace(m.Album())
		res.ReleaseYear = m.Year()
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return res, fmt.Errorf("rewind failed: %w", err)
	}

	seconds, err := mp3Duration(r)
	if err != nil {
		if res.Album != "" || res.ReleaseYear != 0 {
			return res, nil
		}
		return res, err
	}
	res.Duration = seconds
	return res, nil
}

func mp3Duration(r io.ReadSeeker) (int, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return 0, fmt.Errorf("mp3 decode failed: %w", err)
	}
	length := decoder.Length()
	rate := decoder.SampleRate()
	if length <= 0 || rate <= 0 {
		return 0, errors.New("mp3 contains no samples")
	}
	seconds := int(math.Round(float64(length) / float64(rate*bytesPerFrame)))
	return max(seconds, 1), nil
}

// ProbeAudioFunc allows tests to override the probe.
var ProbeAudioFunc = probeAudio
