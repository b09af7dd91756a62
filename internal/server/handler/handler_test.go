package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"primeflip/internal/auth"
	"primeflip/internal/domain"
	"primeflip/internal/server/middleware"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type fakeCatalog struct {
	items []domain.TrackedItem
	err   error
}

func (f *fakeCatalog) ListEnabled(ctx context.Context) ([]domain.TrackedItem, error) {
	return f.items, f.err
}

func (f *fakeCatalog) Get(ctx context.Context, id string) (domain.TrackedItem, error) {
	if f.err != nil {
		return domain.TrackedItem{}, f.err
	}
	for _, it := range f.items {
		if it.ID == id {
			return it, nil
		}
	}
	return domain.TrackedItem{}, domain.ErrNotFound
}

func (f *fakeCatalog) Seed(ctx context.Context, items []domain.TrackedItem) error { return nil }

type fakeOpps struct {
	opps []domain.Opportunity
}

func (f *fakeOpps) Opportunities(minProfit, minMargin float64) []domain.Opportunity {
	out := make([]domain.Opportunity, 0, len(f.opps))
	for _, o := range f.opps {
		if o.Profit >= minProfit && o.Margin >= minMargin {
			out = append(out, o)
		}
	}
	return out
}

type fakeSnapshots struct {
	domain.SnapshotStore
	sets  []domain.SetSnapshot
	parts []domain.PartSnapshot
	err   error
}

func (f *fakeSnapshots) ListSetSnapshots(ctx context.Context, itemID string, limit int) ([]domain.SetSnapshot, error) {
	return f.sets, f.err
}

func (f *fakeSnapshots) ListPartSnapshots(ctx context.Context, itemID, platform string, since time.Time) ([]domain.PartSnapshot, error) {
	return f.parts, f.err
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler(nil, testLogger())
	rec := doRequest(t, http.HandlerFunc(h.HealthCheck), http.MethodGet, "/api/health", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]any
	decodeBody(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("got status %v, want ok", body["status"])
	}
	if body["scheduler_running"] != false {
		t.Errorf("got scheduler_running %v, want false with nil scheduler", body["scheduler_running"])
	}
}

func TestGetConfig(t *testing.T) {
	h := NewConfigHandler("pc", "balanced", 5*time.Minute, 0.0, testLogger())
	rec := doRequest(t, http.HandlerFunc(h.GetConfig), http.MethodGet, "/api/config", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]any
	decodeBody(t, rec, &body)
	if body["platform"] != "pc" {
		t.Errorf("got platform %v, want pc", body["platform"])
	}
	if body["strategy"] != "balanced" {
		t.Errorf("got strategy %v, want balanced", body["strategy"])
	}
	if body["refresh_interval"] != float64(300) {
		t.Errorf("got refresh_interval %v, want 300", body["refresh_interval"])
	}
}

func newItemMux(catalog *fakeCatalog, snaps domain.SnapshotStore, opps OpportunityReader) *http.ServeMux {
	h := NewItemHandler(catalog, snaps, opps, testLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/items", h.ListItems)
	mux.HandleFunc("GET /api/items/{id}", h.GetItem)
	return mux
}

func TestListItems(t *testing.T) {
	catalog := &fakeCatalog{items: []domain.TrackedItem{
		{ID: "mesa_prime", Name: "Mesa Prime", Parts: []string{"Blueprint", "Systems"}, Kind: domain.ItemKindWarframe, Prime: true, Enabled: true},
		{ID: "volt_prime", Name: "Volt Prime", Kind: domain.ItemKindWarframe, Prime: true, Enabled: true},
	}}
	mux := newItemMux(catalog, nil, &fakeOpps{})

	rec := doRequest(t, mux, http.MethodGet, "/api/items", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}
	var items []itemInfo
	decodeBody(t, rec, &items)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].ID != "mesa_prime" || !items[0].IsPrime {
		t.Errorf("unexpected first item: %+v", items[0])
	}
}

func TestGetItemWithOpportunityAndSnapshots(t *testing.T) {
	catalog := &fakeCatalog{items: []domain.TrackedItem{
		{ID: "mesa_prime", Name: "Mesa Prime", Kind: domain.ItemKindWarframe, Enabled: true},
	}}
	now := time.Now().UTC()
	snaps := &fakeSnapshots{sets: []domain.SetSnapshot{
		{ItemID: "mesa_prime", SetPrice: 110, Strategy: "balanced", TS: now},
		{ItemID: "mesa_prime", SetPrice: 100, Strategy: "balanced", TS: now.Add(-time.Hour)},
	}}
	opps := &fakeOpps{opps: []domain.Opportunity{
		{ItemID: "mesa_prime", Profit: 40, Margin: 0.8},
	}}
	mux := newItemMux(catalog, snaps, opps)

	rec := doRequest(t, mux, http.MethodGet, "/api/items/mesa_prime", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}
	var detail itemDetail
	decodeBody(t, rec, &detail)
	if detail.Item.ID != "mesa_prime" {
		t.Errorf("got item %q, want mesa_prime", detail.Item.ID)
	}
	if detail.CurrentOpportunity == nil || detail.CurrentOpportunity.Profit != 40 {
		t.Errorf("expected current opportunity with profit 40, got %+v", detail.CurrentOpportunity)
	}
	if len(detail.Snapshots) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(detail.Snapshots))
	}
	// Store returns newest first; response must be chronological.
	if detail.Snapshots[0].SetPrice != 100 || detail.Snapshots[1].SetPrice != 110 {
		t.Errorf("snapshots not in chronological order: %+v", detail.Snapshots)
	}
}

func TestGetItemNotFound(t *testing.T) {
	mux := newItemMux(&fakeCatalog{}, nil, &fakeOpps{})
	rec := doRequest(t, mux, http.MethodGet, "/api/items/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestListOpportunitiesFiltering(t *testing.T) {
	opps := &fakeOpps{opps: []domain.Opportunity{
		{ItemID: "mesa_prime", Strategy: "balanced", Platform: "pc", Profit: 40, Margin: 0.8},
		{ItemID: "volt_prime", Strategy: "aggressive", Platform: "pc", Profit: 10, Margin: 0.2},
	}}
	h := NewOpportunityHandler(opps, testLogger())

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"no filters", "", []string{"mesa_prime", "volt_prime"}},
		{"min profit", "?min_profit=20", []string{"mesa_prime"}},
		{"min margin", "?min_margin=0.5", []string{"mesa_prime"}},
		{"strategy", "?strategy=aggressive", []string{"volt_prime"}},
		{"platform mismatch", "?platform=xbox", nil},
		{"combined", "?min_profit=5&strategy=balanced", []string{"mesa_prime"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, http.HandlerFunc(h.ListOpportunities), http.MethodGet, "/api/opportunities"+tt.query, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
			}
			var body struct {
				Opportunities []domain.Opportunity `json:"opportunities"`
				Count         int                  `json:"count"`
			}
			decodeBody(t, rec, &body)
			if body.Count != len(tt.want) {
				t.Fatalf("got count %d, want %d", body.Count, len(tt.want))
			}
			for i, id := range tt.want {
				if body.Opportunities[i].ItemID != id {
					t.Errorf("opportunity %d: got %q, want %q", i, body.Opportunities[i].ItemID, id)
				}
			}
		})
	}
}

type fakeScheduler struct {
	err       error
	triggered int
}

func (f *fakeScheduler) TriggerNow() error {
	if f.err != nil {
		return f.err
	}
	f.triggered++
	return nil
}

func (f *fakeScheduler) Running() bool { return f.err == nil }

func TestSchedulerTrigger(t *testing.T) {
	sched := &fakeScheduler{}
	h := NewSchedulerHandler(sched, testLogger())

	rec := doRequest(t, http.HandlerFunc(h.Trigger), http.MethodPost, "/api/scheduler/trigger", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusAccepted)
	}
	if sched.triggered != 1 {
		t.Errorf("got %d triggers, want 1", sched.triggered)
	}
}

func TestSchedulerTriggerWhenIdle(t *testing.T) {
	h := NewSchedulerHandler(&fakeScheduler{err: domain.ErrSchedulerBusy}, testLogger())
	rec := doRequest(t, http.HandlerFunc(h.Trigger), http.MethodPost, "/api/scheduler/trigger", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestSummarizeHistory(t *testing.T) {
	now := time.Now().UTC()
	series := func(name string, prices ...float64) []domain.PartSnapshot {
		out := make([]domain.PartSnapshot, 0, len(prices))
		for i, p := range prices {
			out = append(out, domain.PartSnapshot{
				PartName: name,
				Price:    p,
				TS:       now.Add(-time.Duration(i) * time.Hour),
			})
		}
		return out
	}

	t.Run("rising prices trend up", func(t *testing.T) {
		// Newest first: latest quarter avg 40 vs oldest quarter avg 10.
		sums := summarizeHistory(series("Systems", 40, 30, 20, 10))
		if len(sums) != 1 {
			t.Fatalf("got %d summaries, want 1", len(sums))
		}
		s := sums[0]
		if s.Trend != domain.TrendUp {
			t.Errorf("got trend %q, want up", s.Trend)
		}
		if s.CurrentPrice != 40 || s.Lowest != 10 || s.Highest != 40 || s.Average != 25 {
			t.Errorf("unexpected stats: %+v", s)
		}
		if s.Samples != 4 {
			t.Errorf("got %d samples, want 4", s.Samples)
		}
	})

	t.Run("falling prices trend down", func(t *testing.T) {
		sums := summarizeHistory(series("Systems", 10, 20, 30, 40))
		if sums[0].Trend != domain.TrendDown {
			t.Errorf("got trend %q, want down", sums[0].Trend)
		}
	})

	t.Run("small movement is stable", func(t *testing.T) {
		sums := summarizeHistory(series("Systems", 101, 100, 100, 100))
		if sums[0].Trend != domain.TrendStable {
			t.Errorf("got trend %q, want stable", sums[0].Trend)
		}
	})

	t.Run("fewer than four samples is stable", func(t *testing.T) {
		sums := summarizeHistory(series("Systems", 100, 10, 1))
		if sums[0].Trend != domain.TrendStable {
			t.Errorf("got trend %q, want stable", sums[0].Trend)
		}
	})

	t.Run("groups by part name", func(t *testing.T) {
		snaps := append(series("Systems", 10, 20), series("Chassis", 5)...)
		sums := summarizeHistory(snaps)
		if len(sums) != 2 {
			t.Fatalf("got %d summaries, want 2", len(sums))
		}
		// Sorted by part name.
		if sums[0].PartName != "Chassis" || sums[1].PartName != "Systems" {
			t.Errorf("unexpected order: %q, %q", sums[0].PartName, sums[1].PartName)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if sums := summarizeHistory(nil); len(sums) != 0 {
			t.Errorf("got %d summaries, want 0", len(sums))
		}
	})
}

func TestLowestPrices(t *testing.T) {
	snaps := &fakeSnapshots{parts: []domain.PartSnapshot{
		{PartName: "Systems", Price: 20},
		{PartName: "Systems", Price: 12},
		{PartName: "Chassis", Price: 8},
	}}
	h := NewHistoryHandler(snaps, testLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/prices/lowest/{id}", h.LowestPrices)

	rec := doRequest(t, mux, http.MethodGet, "/api/prices/lowest/mesa_prime", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]float64
	decodeBody(t, rec, &body)
	if body["Systems"] != 12 {
		t.Errorf("got Systems %v, want 12", body["Systems"])
	}
	if body["Chassis"] != 8 {
		t.Errorf("got Chassis %v, want 8", body["Chassis"])
	}
}

type fakeUserStore struct {
	users  map[string]domain.User
	nextID int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]domain.User), nextID: 1}
}

func (f *fakeUserStore) Create(ctx context.Context, username, passwordHash string) (domain.User, error) {
	if _, ok := f.users[username]; ok {
		return domain.User{}, domain.ErrAlreadyExists
	}
	u := domain.User{ID: f.nextID, Username: username, PasswordHash: passwordHash, CreatedAt: time.Now().UTC()}
	f.nextID++
	f.users[username] = u
	return u, nil
}

func (f *fakeUserStore) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	u, ok := f.users[username]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) GetByID(ctx context.Context, id int64) (domain.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func newAuthHandler(t *testing.T, users domain.UserStore) *AuthHandler {
	t.Helper()
	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("create token issuer: %v", err)
	}
	return NewAuthHandler(users, tokens, testLogger())
}

func TestRegisterAndLogin(t *testing.T) {
	users := newFakeUserStore()
	h := newAuthHandler(t, users)

	rec := doRequest(t, http.HandlerFunc(h.Register), http.MethodPost, "/api/auth/register",
		credentialsRequest{Username: "tenno", Password: "hunhow123"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: got status %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body)
	}
	var created userResponse
	decodeBody(t, rec, &created)
	if created.Username != "tenno" || created.ID == 0 {
		t.Errorf("unexpected register response: %+v", created)
	}

	rec = doRequest(t, http.HandlerFunc(h.Login), http.MethodPost, "/api/auth/login",
		credentialsRequest{Username: "tenno", Password: "hunhow123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: got status %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}
	var body struct {
		Token string       `json:"token"`
		User  userResponse `json:"user"`
	}
	decodeBody(t, rec, &body)
	if body.Token == "" {
		t.Error("expected a token in the login response")
	}
	if body.User.ID != created.ID {
		t.Errorf("got user id %d, want %d", body.User.ID, created.ID)
	}
}

func TestRegisterValidation(t *testing.T) {
	h := newAuthHandler(t, newFakeUserStore())
	tests := []struct {
		name string
		req  credentialsRequest
		want int
	}{
		{"missing username", credentialsRequest{Password: "hunhow123"}, http.StatusBadRequest},
		{"short password", credentialsRequest{Username: "tenno", Password: "short"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, http.HandlerFunc(h.Register), http.MethodPost, "/api/auth/register", tt.req)
			if rec.Code != tt.want {
				t.Fatalf("got status %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	h := newAuthHandler(t, newFakeUserStore())
	req := credentialsRequest{Username: "tenno", Password: "hunhow123"}

	if rec := doRequest(t, http.HandlerFunc(h.Register), http.MethodPost, "/api/auth/register", req); rec.Code != http.StatusCreated {
		t.Fatalf("first register: got status %d", rec.Code)
	}
	rec := doRequest(t, http.HandlerFunc(h.Register), http.MethodPost, "/api/auth/register", req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	users := newFakeUserStore()
	h := newAuthHandler(t, users)
	doRequest(t, http.HandlerFunc(h.Register), http.MethodPost, "/api/auth/register",
		credentialsRequest{Username: "tenno", Password: "hunhow123"})

	rec := doRequest(t, http.HandlerFunc(h.Login), http.MethodPost, "/api/auth/login",
		credentialsRequest{Username: "tenno", Password: "wrongwrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

type fakeTradeStore struct {
	sessions map[string]*domain.TradeSession
}

func newFakeTradeStore() *fakeTradeStore {
	return &fakeTradeStore{sessions: make(map[string]*domain.TradeSession)}
}

func (f *fakeTradeStore) owned(userID int64, sessionID string) (*domain.TradeSession, error) {
	s, ok := f.sessions[sessionID]
	if !ok || s.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func (f *fakeTradeStore) Create(ctx context.Context, s domain.TradeSession) error {
	cp := s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeTradeStore) Get(ctx context.Context, userID int64, sessionID string) (domain.TradeSession, error) {
	s, err := f.owned(userID, sessionID)
	if err != nil {
		return domain.TradeSession{}, err
	}
	return *s, nil
}

func (f *fakeTradeStore) ListByUser(ctx context.Context, userID int64, status string) ([]domain.TradeSession, error) {
	var out []domain.TradeSession
	for _, s := range f.sessions {
		if s.UserID != userID {
			continue
		}
		if status != "" && string(s.Status) != status {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeTradeStore) AddPart(ctx context.Context, userID int64, part domain.TradePart) error {
	s, err := f.owned(userID, part.SessionID)
	if err != nil {
		return err
	}
	s.Parts = append(s.Parts, part)
	s.TotalCost += part.BuyPrice
	return nil
}

func (f *fakeTradeStore) SetSellPrice(ctx context.Context, userID int64, sessionID string, price float64) error {
	s, err := f.owned(userID, sessionID)
	if err != nil {
		return err
	}
	s.SetSellPrice = &price
	return nil
}

func (f *fakeTradeStore) Complete(ctx context.Context, userID int64, sessionID string) error {
	s, err := f.owned(userID, sessionID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	s.Status = domain.TradeStatusCompleted
	s.CompletedAt = &now
	return nil
}

func (f *fakeTradeStore) Delete(ctx context.Context, userID int64, sessionID string) error {
	if _, err := f.owned(userID, sessionID); err != nil {
		return err
	}
	delete(f.sessions, sessionID)
	return nil
}

type staticVerifier struct {
	id  int64
	err error
}

func (v staticVerifier) Verify(token string) (int64, error) { return v.id, v.err }

func newTradeMux(trades domain.TradeSessionStore, catalog domain.CatalogStore, verifier middleware.TokenVerifier) *http.ServeMux {
	h := NewTradeHandler(trades, catalog, testLogger())
	authed := middleware.Auth(verifier)
	mux := http.NewServeMux()
	mux.Handle("POST /api/trades", authed(http.HandlerFunc(h.CreateSession)))
	mux.Handle("GET /api/trades", authed(http.HandlerFunc(h.ListSessions)))
	mux.Handle("GET /api/trades/{id}", authed(http.HandlerFunc(h.GetSession)))
	mux.Handle("POST /api/trades/{id}/parts", authed(http.HandlerFunc(h.AddPart)))
	mux.Handle("PATCH /api/trades/{id}", authed(http.HandlerFunc(h.UpdateSession)))
	mux.Handle("DELETE /api/trades/{id}", authed(http.HandlerFunc(h.DeleteSession)))
	return mux
}

func doAuthed(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTradeSessionLifecycle(t *testing.T) {
	catalog := &fakeCatalog{items: []domain.TrackedItem{
		{ID: "mesa_prime", Name: "Mesa Prime", Kind: domain.ItemKindWarframe, Enabled: true},
	}}
	trades := newFakeTradeStore()
	mux := newTradeMux(trades, catalog, staticVerifier{id: 7})

	// Create.
	rec := doAuthed(t, mux, http.MethodPost, "/api/trades", createSessionRequest{ItemID: "mesa_prime"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: got status %d: %s", rec.Code, rec.Body)
	}
	var created tradeSessionResponse
	decodeBody(t, rec, &created)
	if created.ItemName != "Mesa Prime" || created.Status != "in_progress" {
		t.Errorf("unexpected session: %+v", created)
	}

	// Record two part purchases.
	for _, part := range []addPartRequest{
		{PartName: "Systems", BuyPrice: 12, Seller: "frost_fan"},
		{PartName: "Chassis", BuyPrice: 8},
	} {
		rec = doAuthed(t, mux, http.MethodPost, "/api/trades/"+created.ID+"/parts", part)
		if rec.Code != http.StatusCreated {
			t.Fatalf("add part: got status %d: %s", rec.Code, rec.Body)
		}
	}

	// Sell and complete in one update.
	rec = doAuthed(t, mux, http.MethodPatch, "/api/trades/"+created.ID, map[string]any{
		"set_sell_price": 50.0,
		"status":         "completed",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: got status %d: %s", rec.Code, rec.Body)
	}
	var updated tradeSessionResponse
	decodeBody(t, rec, &updated)
	if updated.TotalCost != 20 {
		t.Errorf("got total cost %v, want 20", updated.TotalCost)
	}
	if updated.Profit == nil || *updated.Profit != 30 {
		t.Errorf("got profit %v, want 30", updated.Profit)
	}
	if updated.Status != "completed" || updated.CompletedAt == nil {
		t.Errorf("expected completed session, got %+v", updated)
	}

	// List includes the session and the summary stats.
	rec = doAuthed(t, mux, http.MethodGet, "/api/trades", nil)
	var list struct {
		Sessions    []tradeSessionResponse `json:"sessions"`
		TotalProfit float64                `json:"total_profit"`
		Completed   int                    `json:"completed_sessions"`
	}
	decodeBody(t, rec, &list)
	if len(list.Sessions) != 1 || list.Completed != 1 || list.TotalProfit != 30 {
		t.Errorf("unexpected list response: %+v", list)
	}

	// Delete.
	rec = doAuthed(t, mux, http.MethodDelete, "/api/trades/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: got status %d", rec.Code)
	}
	rec = doAuthed(t, mux, http.MethodGet, "/api/trades/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: got status %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestTradeRoutesRequireToken(t *testing.T) {
	mux := newTradeMux(newFakeTradeStore(), &fakeCatalog{}, staticVerifier{err: domain.ErrUnauthorized})

	req := httptest.NewRequest(http.MethodGet, "/api/trades", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: got status %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	rec = doAuthed(t, mux, http.MethodGet, "/api/trades", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("rejected token: got status %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestTradeSessionIsolationBetweenUsers(t *testing.T) {
	catalog := &fakeCatalog{items: []domain.TrackedItem{
		{ID: "mesa_prime", Name: "Mesa Prime", Kind: domain.ItemKindWarframe, Enabled: true},
	}}
	trades := newFakeTradeStore()

	owner := newTradeMux(trades, catalog, staticVerifier{id: 1})
	rec := doAuthed(t, owner, http.MethodPost, "/api/trades", createSessionRequest{ItemID: "mesa_prime"})
	var created tradeSessionResponse
	decodeBody(t, rec, &created)

	other := newTradeMux(trades, catalog, staticVerifier{id: 2})
	rec = doAuthed(t, other, http.MethodGet, "/api/trades/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("cross-user get: got status %d, want %d", rec.Code, http.StatusNotFound)
	}
	rec = doAuthed(t, other, http.MethodDelete, "/api/trades/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("cross-user delete: got status %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestCreateSessionUnknownItem(t *testing.T) {
	mux := newTradeMux(newFakeTradeStore(), &fakeCatalog{}, staticVerifier{id: 1})
	rec := doAuthed(t, mux, http.MethodPost, "/api/trades", createSessionRequest{ItemID: "nope"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestCreateSessionInvalidBody(t *testing.T) {
	mux := newTradeMux(newFakeTradeStore(), &fakeCatalog{}, staticVerifier{id: 1})
	req := httptest.NewRequest(http.MethodPost, "/api/trades", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
