package entities

import (
	"testing"
	"time"
)

func TestNewConversation(t *testing.T) {
	conv := NewConversation("models/gemini-2.5-flash-native-audio-preview-12-2025", "Zephyr")

	if conv.Status != ConversationStatusOpen {
		t.Errorf("Expected status %s, got %s", ConversationStatusOpen, conv.Status)
	}

	if len(conv.Entries) != 0 {
		t.Errorf("Expected empty entries, got %d entries", len(conv.Entries))
	}

	if conv.EndedAt != nil {
		t.Error("Expected EndedAt to be nil for an open conversation")
	}

	if conv.ID.IsZero() {
		t.Error("Expected a generated conversation ID")
	}
}

func TestAppendEntriesPreservesOrder(t *testing.T) {
	conv := NewConversation("models/test", "Zephyr")
	now := time.Now()

	conv.AppendEntry(TranscriptEntry{Role: RoleUser, Text: "سلاوو", Timestamp: now})
	conv.AppendEntries([]TranscriptEntry{
		{Role: RoleModel, Text: "هاووی", Timestamp: now},
		{Role: RoleUser, Text: "چۆنی؟", Timestamp: now},
	})

	if len(conv.Entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(conv.Entries))
	}

	wantRoles := []Role{RoleUser, RoleModel, RoleUser}
	for i, want := range wantRoles {
		if conv.Entries[i].Role != want {
			t.Errorf("Entry %d role = %s, want %s", i, conv.Entries[i].Role, want)
		}
	}
}

func TestEndIsIdempotent(t *testing.T) {
	conv := NewConversation("models/test", "Zephyr")

	conv.End()
	if conv.Status != ConversationStatusEnded {
		t.Fatalf("Expected status %s, got %s", ConversationStatusEnded, conv.Status)
	}
	if conv.EndedAt == nil {
		t.Fatal("Expected EndedAt to be set")
	}

	first := *conv.EndedAt
	conv.End()
	if !conv.EndedAt.Equal(first) {
		t.Error("Expected second End to leave EndedAt unchanged")
	}
}

func TestConversationValidate(t *testing.T) {
	conv := NewConversation("models/test", "Zephyr")
	if err := conv.Validate(); err != nil {
		t.Errorf("Expected valid conversation, got %v", err)
	}

	conv.Model = ""
	if err := conv.Validate(); err == nil {
		t.Error("Expected error for missing model")
	}

	conv.Model = "models/test"
	conv.Entries = append(conv.Entries, TranscriptEntry{Role: Role("narrator"), Text: "x"})
	if err := conv.Validate(); err == nil {
		t.Error("Expected error for invalid role")
	}
}
