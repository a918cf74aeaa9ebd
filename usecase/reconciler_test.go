package usecase

import (
	"testing"
	"time"

	"github.com/kurdai/kurdai-server/domain/entities"
)

func TestReconcilerConcatenatesPartials(t *testing.T) {
	t.Parallel()

	rec := NewTranscriptReconciler(nil)
	rec.AddUserText("سل")
	rec.AddUserText("اوو")
	rec.AddModelText("ها")
	rec.AddModelText("ووی")

	if got := rec.PendingUser(); got != "سلاوو" {
		t.Errorf("PendingUser() = %q, want %q", got, "سلاوو")
	}
	if got := rec.PendingModel(); got != "هاووی" {
		t.Errorf("PendingModel() = %q, want %q", got, "هاووی")
	}
}

func TestReconcilerSealsUserBeforeModel(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	rec := NewTranscriptReconciler(clock)
	rec.AddModelText("هاووی")
	rec.AddUserText("سلاوو")

	sealed := rec.SealTurn()
	if len(sealed) != 2 {
		t.Fatalf("sealed %d entries, want 2", len(sealed))
	}
	if sealed[0].Role != entities.RoleUser || sealed[0].Text != "سلاوو" {
		t.Errorf("first entry = %s %q, want user entry first", sealed[0].Role, sealed[0].Text)
	}
	if sealed[1].Role != entities.RoleModel || sealed[1].Text != "هاووی" {
		t.Errorf("second entry = %s %q, want model entry second", sealed[1].Role, sealed[1].Text)
	}
	if !sealed[0].Timestamp.Equal(clock.Now()) {
		t.Errorf("timestamp = %v, want %v", sealed[0].Timestamp, clock.Now())
	}

	if got := rec.PendingUser(); got != "" {
		t.Errorf("PendingUser() after seal = %q, want empty", got)
	}
	if got := rec.PendingModel(); got != "" {
		t.Errorf("PendingModel() after seal = %q, want empty", got)
	}
}

func TestReconcilerEmptyTurnIsNoOp(t *testing.T) {
	t.Parallel()

	rec := NewTranscriptReconciler(nil)
	if sealed := rec.SealTurn(); len(sealed) != 0 {
		t.Fatalf("sealed %d entries from an empty turn", len(sealed))
	}
	if got := rec.Committed(); len(got) != 0 {
		t.Fatalf("committed %d entries from an empty turn", len(got))
	}
}

func TestReconcilerModelOnlyTurn(t *testing.T) {
	t.Parallel()

	rec := NewTranscriptReconciler(nil)
	rec.AddModelText("بەخێربێیت")

	sealed := rec.SealTurn()
	if len(sealed) != 1 || sealed[0].Role != entities.RoleModel {
		t.Fatalf("sealed = %+v, want a single model entry", sealed)
	}
}

func TestReconcilerCommittedIsAppendOnly(t *testing.T) {
	t.Parallel()

	rec := NewTranscriptReconciler(nil)
	rec.AddUserText("یەک")
	rec.SealTurn()
	rec.AddUserText("دوو")
	rec.AddModelText("سێ")
	rec.SealTurn()

	got := rec.Committed()
	wantTexts := []string{"یەک", "دوو", "سێ"}
	if len(got) != len(wantTexts) {
		t.Fatalf("committed %d entries, want %d", len(got), len(wantTexts))
	}
	for i, want := range wantTexts {
		if got[i].Text != want {
			t.Errorf("entry %d = %q, want %q", i, got[i].Text, want)
		}
	}

	// Mutating the returned slice must not touch the log
	got[0].Text = "mutated"
	if rec.Committed()[0].Text != "یەک" {
		t.Error("Committed() returned a slice aliasing the internal log")
	}
}
