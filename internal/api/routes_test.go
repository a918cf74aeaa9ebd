package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/kurdai/kurdai-server/domain/entities"
	"github.com/kurdai/kurdai-server/domain/repositories"
	"github.com/kurdai/kurdai-server/internal/auth"
)

type fakeAssistant struct {
	chatChunks []string
	guide      *repositories.CityGuide
	image      *repositories.InlineImage
	err        error

	lastChat      repositories.ChatRequest
	lastTranslate repositories.TranslateRequest
}

func (a *fakeAssistant) ChatStream(_ context.Context, req repositories.ChatRequest, onChunk func(string) error) error {
	a.lastChat = req
	if a.err != nil {
		return a.err
	}
	for _, chunk := range a.chatChunks {
		if err := onChunk(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (a *fakeAssistant) TranslateStream(_ context.Context, req repositories.TranslateRequest, onChunk func(string) error) error {
	a.lastTranslate = req
	if a.err != nil {
		return a.err
	}
	for _, chunk := range a.chatChunks {
		if err := onChunk(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (a *fakeAssistant) Landmarks(context.Context, string) (*repositories.CityGuide, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.guide, nil
}

func (a *fakeAssistant) GenerateArt(context.Context, string) (*repositories.InlineImage, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.image, nil
}

type stubConversationRepo struct {
	conversations []*entities.Conversation
}

func (r *stubConversationRepo) Create(context.Context, *entities.Conversation) error { return nil }
func (r *stubConversationRepo) AppendEntries(context.Context, string, []entities.TranscriptEntry) error {
	return nil
}
func (r *stubConversationRepo) End(context.Context, string) error { return nil }

func (r *stubConversationRepo) GetByID(_ context.Context, id string) (*entities.Conversation, error) {
	for _, c := range r.conversations {
		if c.ID.Hex() == id {
			return c, nil
		}
	}
	return nil, errors.New("not found")
}

func (r *stubConversationRepo) ListRecent(_ context.Context, limit int) ([]*entities.Conversation, error) {
	if limit > len(r.conversations) {
		limit = len(r.conversations)
	}
	return r.conversations[:limit], nil
}

func newTestServer(assistant repositories.Assistant, repo repositories.ConversationRepository) *echo.Echo {
	e := echo.New()
	InitRoutes(e, &Handlers{
		Assistant:     assistant,
		Conversations: repo,
		Auth:          auth.NewManager("test-secret"),
		Logger:        zap.NewNop(),
	})
	return e
}

func TestHealth(t *testing.T) {
	t.Parallel()

	e := newTestServer(&fakeAssistant{}, &stubConversationRepo{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "kurdai-server") {
		t.Errorf("body = %s, want service name", rec.Body.String())
	}
}

func TestIssueToken(t *testing.T) {
	t.Parallel()

	e := newTestServer(&fakeAssistant{}, &stubConversationRepo{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(`{"client_id":"abc"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp TokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token == "" || resp.ClientID != "abc" {
		t.Errorf("response = %+v, want signed token for client abc", resp)
	}
}

func TestChatStreamsChunks(t *testing.T) {
	t.Parallel()

	assistant := &fakeAssistant{chatChunks: []string{"بە", "خێر", "بێیت"}}
	e := newTestServer(assistant, &stubConversationRepo{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(
		`{"message":"سلاو","history":[{"role":"user","content":"x"},{"role":"model","content":"y"}]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "بەخێربێیت" {
		t.Errorf("body = %q, want concatenated chunks", got)
	}
	if len(assistant.lastChat.History) != 2 {
		t.Fatalf("history length = %d, want 2", len(assistant.lastChat.History))
	}
	if assistant.lastChat.History[1].Role != entities.RoleModel {
		t.Errorf("second history role = %s, want model", assistant.lastChat.History[1].Role)
	}
}

func TestChatRequiresMessage(t *testing.T) {
	t.Parallel()

	e := newTestServer(&fakeAssistant{}, &stubConversationRepo{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestTranslatePassesToneAndTarget(t *testing.T) {
	t.Parallel()

	assistant := &fakeAssistant{chatChunks: []string{"ok"}}
	e := newTestServer(assistant, &stubConversationRepo{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/translate", strings.NewReader(
		`{"text":"hello","tone":"formal","target":"Sorani Kurdish"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if assistant.lastTranslate.Tone != "formal" || assistant.lastTranslate.Target != "Sorani Kurdish" {
		t.Errorf("translate request = %+v", assistant.lastTranslate)
	}
}

func TestLandmarks(t *testing.T) {
	t.Parallel()

	assistant := &fakeAssistant{guide: &repositories.CityGuide{
		CityNarrative: "هەولێر شارێکی دێرینە",
		Landmarks: []repositories.Landmark{
			{Name: "قەڵای هەولێر", Category: "historical", Description: "...", ImageQuery: "erbil citadel"},
		},
	}}
	e := newTestServer(assistant, &stubConversationRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/landmarks/Erbil", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var guide repositories.CityGuide
	if err := json.Unmarshal(rec.Body.Bytes(), &guide); err != nil {
		t.Fatalf("decode guide: %v", err)
	}
	if len(guide.Landmarks) != 1 || guide.Landmarks[0].Name == "" {
		t.Errorf("guide = %+v, want one named landmark", guide)
	}
}

func TestLandmarksUpstreamFailure(t *testing.T) {
	t.Parallel()

	e := newTestServer(&fakeAssistant{err: errors.New("quota")}, &stubConversationRepo{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/landmarks/Erbil", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestGenerateArt(t *testing.T) {
	t.Parallel()

	assistant := &fakeAssistant{image: &repositories.InlineImage{
		MIMEType: "image/png",
		Data:     []byte{0x89, 0x50, 0x4e, 0x47},
	}}
	e := newTestServer(assistant, &stubConversationRepo{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/art", strings.NewReader(`{"prompt":"mountains"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp ArtResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.MIMEType != "image/png" || resp.DataBase64 == "" {
		t.Errorf("response = %+v", resp)
	}
}

func TestListConversations(t *testing.T) {
	t.Parallel()

	repo := &stubConversationRepo{conversations: []*entities.Conversation{
		entities.NewConversation("models/a", "Zephyr"),
		entities.NewConversation("models/b", "Zephyr"),
	}}
	e := newTestServer(&fakeAssistant{}, repo)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations?limit=1", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got []json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("listed %d conversations, want 1", len(got))
	}
}

func TestGetConversationNotFound(t *testing.T) {
	t.Parallel()

	e := newTestServer(&fakeAssistant{}, &stubConversationRepo{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/unknown", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestWebSocketRejectsMissingToken(t *testing.T) {
	t.Parallel()

	e := newTestServer(&fakeAssistant{}, &stubConversationRepo{})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestWebSocketRejectsInvalidToken(t *testing.T) {
	t.Parallel()

	e := newTestServer(&fakeAssistant{}, &stubConversationRepo{})
	req := httptest.NewRequest(http.MethodGet, "/ws?token=garbage", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
