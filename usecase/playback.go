package usecase

import (
	"sync"
	"time"

	"github.com/kurdai/kurdai-server/domain/repositories"
	"github.com/kurdai/kurdai-server/internal/audio"
)

type playingChunk struct {
	start time.Time
	end   time.Time
}

// Player schedules model audio for gapless playback. Each chunk starts at the
// later of now and the playback cursor, and the cursor advances by the chunk's
// duration so consecutive chunks play back to back. On barge-in everything
// still queued is dropped and the cursor resets to the current time, so the
// next chunk plays immediately instead of waiting out the cancelled backlog.
type Player struct {
	mu         sync.Mutex
	clock      Clock
	sink       repositories.AudioSink
	sampleRate int
	cursor     time.Time
	live       []playingChunk
}

// NewPlayer creates a player writing to sink. A nil clock falls back to the
// wall clock.
func NewPlayer(sink repositories.AudioSink, sampleRate int, clock Clock) *Player {
	if clock == nil {
		clock = systemClock{}
	}
	return &Player{
		clock:      clock,
		sink:       sink,
		sampleRate: sampleRate,
	}
}

// Enqueue schedules one chunk of 16-bit PCM. Empty chunks are ignored;
// malformed chunks are rejected with DecodeError and leave the schedule
// untouched.
func (p *Player) Enqueue(pcm []byte) error {
	samples, err := audio.DecodeChunk(pcm)
	if err != nil {
		return &DecodeError{Err: err}
	}
	duration := audio.Duration(len(samples), p.sampleRate)
	if duration == 0 {
		return nil
	}

	p.mu.Lock()
	now := p.clock.Now()
	p.prune(now)

	start := now
	if p.cursor.After(now) {
		start = p.cursor
	}
	p.cursor = start.Add(duration)
	p.live = append(p.live, playingChunk{start: start, end: p.cursor})
	p.mu.Unlock()

	return p.sink.Write(pcm)
}

// CancelAll drops every chunk that has not finished playing and resets the
// cursor to the current time
func (p *Player) CancelAll() error {
	p.mu.Lock()
	p.live = nil
	p.cursor = p.clock.Now()
	p.mu.Unlock()

	return p.sink.Reset()
}

// Pending reports how many scheduled chunks have not finished playing
func (p *Player) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prune(p.clock.Now())
	return len(p.live)
}

// Cursor returns the time the next enqueued chunk would start at the earliest
func (p *Player) Cursor() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// Close cancels pending playback and closes the sink
func (p *Player) Close() error {
	p.mu.Lock()
	p.live = nil
	p.mu.Unlock()
	return p.sink.Close()
}

// prune drops chunks that finished before now. Caller holds p.mu.
func (p *Player) prune(now time.Time) {
	kept := p.live[:0]
	for _, chunk := range p.live {
		if chunk.end.After(now) {
			kept = append(kept, chunk)
		}
	}
	p.live = kept
}
