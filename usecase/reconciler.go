package usecase

import (
	"strings"
	"sync"
	"time"

	"github.com/kurdai/kurdai-server/domain/entities"
)

// Clock abstracts time for deterministic scheduling and timestamps
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by the wall clock
func SystemClock() Clock { return systemClock{} }

// TranscriptReconciler turns the stream of partial transcriptions from a live
// session into a committed transcript. Partials for each speaker accumulate in
// a pending buffer; when the model signals the end of a turn, the pending user
// text is sealed first, then the pending model text, and both buffers reset.
// The committed log is append-only.
type TranscriptReconciler struct {
	mu           sync.Mutex
	clock        Clock
	pendingUser  strings.Builder
	pendingModel strings.Builder
	committed    []entities.TranscriptEntry
}

// NewTranscriptReconciler creates a reconciler. A nil clock falls back to the
// wall clock.
func NewTranscriptReconciler(clock Clock) *TranscriptReconciler {
	if clock == nil {
		clock = systemClock{}
	}
	return &TranscriptReconciler{clock: clock}
}

// AddUserText appends a partial transcription of the user's speech
func (r *TranscriptReconciler) AddUserText(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pendingUser.WriteString(text)
}

// AddModelText appends a partial transcription of the model's speech
func (r *TranscriptReconciler) AddModelText(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pendingModel.WriteString(text)
}

// PendingUser returns the user text accumulated in the current turn
func (r *TranscriptReconciler) PendingUser() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pendingUser.String()
}

// PendingModel returns the model text accumulated in the current turn
func (r *TranscriptReconciler) PendingModel() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pendingModel.String()
}

// SealTurn commits the current turn: the pending user entry, when non-empty,
// followed by the pending model entry, when non-empty. It returns the entries
// sealed by this call. Sealing with both buffers empty is a no-op.
func (r *TranscriptReconciler) SealTurn() []entities.TranscriptEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	var sealed []entities.TranscriptEntry
	if r.pendingUser.Len() > 0 {
		sealed = append(sealed, entities.TranscriptEntry{
			Role:      entities.RoleUser,
			Text:      r.pendingUser.String(),
			Timestamp: now,
		})
		r.pendingUser.Reset()
	}
	if r.pendingModel.Len() > 0 {
		sealed = append(sealed, entities.TranscriptEntry{
			Role:      entities.RoleModel,
			Text:      r.pendingModel.String(),
			Timestamp: now,
		})
		r.pendingModel.Reset()
	}

	r.committed = append(r.committed, sealed...)
	return sealed
}

// Committed returns a copy of the committed transcript
func (r *TranscriptReconciler) Committed() []entities.TranscriptEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.TranscriptEntry, len(r.committed))
	copy(out, r.committed)
	return out
}
