package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestManager(t *testing.T) (*Manager, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore(time.Hour)
	t.Cleanup(func() { _ = store.Close() })

	m, err := NewManager(store, Options{SecretKey: "test-secret", MaxAge: time.Hour})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m, store
}

func TestNewManager_RequiresSecretAndStore(t *testing.T) {
	if _, err := NewManager(NewMemoryStore(time.Hour), Options{}); !errors.Is(err, ErrNoSecret) {
		t.Errorf("err = %v, want ErrNoSecret", err)
	}
	if _, err := NewManager(nil, Options{SecretKey: "x"}); err == nil {
		t.Error("expected error for nil store")
	}
}

func TestMiddleware_FlashSurvivesRedirect(t *testing.T) {
	m, store := newTestManager(t)

	var popped []string
	h := Middleware(m, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		if r.Method == http.MethodPost {
			AddFlash(s, "success", "Thanks!")
			http.Redirect(w, r, "/contact", http.StatusSeeOther)
			return
		}
		if cat, msg, ok := PopFlash(s); ok {
			popped = append(popped, cat+":"+msg)
		}
		w.WriteHeader(http.StatusOK)
	}))

	// POST sets the flash and must issue a cookie.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/contact", nil))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	c := cookies[0]
	if !c.HttpOnly || c.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie flags: HttpOnly=%v SameSite=%v", c.HttpOnly, c.SameSite)
	}
	if store.Len() != 1 {
		t.Fatalf("store holds %d sessions, want 1", store.Len())
	}

	// First GET shows it, second does not.
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/contact", nil)
		req.AddCookie(c)
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	if len(popped) != 1 || popped[0] != "success:Thanks!" {
		t.Errorf("popped = %v, want exactly one success flash", popped)
	}
}

func TestMiddleware_UntouchedSessionIsNotSaved(t *testing.T) {
	m, store := newTestManager(t)

	h := Middleware(m, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()) == nil {
			t.Error("session missing from context")
		}
		_, _ = w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := rec.Header().Get("Set-Cookie"); got != "" {
		t.Errorf("Set-Cookie = %q, want none", got)
	}
	if store.Len() != 0 {
		t.Errorf("store holds %d sessions, want 0", store.Len())
	}
}

func TestManager_TamperedCookieStartsFresh(t *testing.T) {
	m, store := newTestManager(t)

	s, _ := m.New()
	s.Set("k", "v")
	rec := httptest.NewRecorder()
	if err := m.Save(rec, httptest.NewRequest(http.MethodGet, "/", nil), s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	good := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(good)
	got, err := m.Get(req)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.IsNew() || got.ID() != s.ID() {
		t.Fatalf("expected stored session %q, got new=%v id=%q", s.ID(), got.IsNew(), got.ID())
	}
	if v, _ := got.Get("k"); v != "v" {
		t.Errorf("k = %q, want v", v)
	}

	forged := *good
	forged.Value = s.ID() + ".AAAA"
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&forged)
	got, err = m.Get(req)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.IsNew() || got.ID() == s.ID() {
		t.Error("forged cookie should not load the stored session")
	}
	if store.Len() != 1 {
		t.Errorf("store holds %d sessions, want 1", store.Len())
	}
}

func TestVerify(t *testing.T) {
	m, _ := newTestManager(t)
	other, _ := NewManager(NewMemoryStore(time.Hour), Options{SecretKey: "other"})

	signed := m.sign("abc")
	if id, err := m.verify(signed); err != nil || id != "abc" {
		t.Errorf("verify(own) = %q, %v", id, err)
	}
	for _, bad := range []string{"", "abc", ".sig", other.sign("abc"), strings.TrimSuffix(signed, signed[len(signed)-1:])} {
		if _, err := m.verify(bad); !errors.Is(err, ErrBadSignature) {
			t.Errorf("verify(%q) err = %v, want ErrBadSignature", bad, err)
		}
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	defer store.Close()
	ctx := context.Background()

	_ = store.Save(ctx, &Record{ID: "old", Data: map[string]string{}, ExpiresAt: time.Now().Add(-time.Minute)})
	_ = store.Save(ctx, &Record{ID: "live", Data: map[string]string{"a": "b"}, ExpiresAt: time.Now().Add(time.Hour)})

	if _, err := store.Load(ctx, "old"); !errors.Is(err, ErrExpired) {
		t.Errorf("Load(old) err = %v, want ErrExpired", err)
	}
	if _, err := store.Load(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(missing) err = %v, want ErrNotFound", err)
	}

	rec, err := store.Load(ctx, "live")
	if err != nil {
		t.Fatalf("Load(live): %v", err)
	}
	rec.Data["a"] = "mutated"
	again, _ := store.Load(ctx, "live")
	if again.Data["a"] != "b" {
		t.Error("Load should return a copy")
	}

	store.removeExpired(time.Now())
	if store.Len() != 1 {
		t.Errorf("Len = %d after sweep, want 1", store.Len())
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestPopFlash_Empty(t *testing.T) {
	m, _ := newTestManager(t)
	s, _ := m.New()
	if _, _, ok := PopFlash(s); ok {
		t.Error("PopFlash on empty session returned ok")
	}
	if s.Modified() {
		t.Error("PopFlash on empty session should not modify it")
	}
	if _, _, ok := PopFlash(nil); ok {
		t.Error("PopFlash(nil) returned ok")
	}
}

func TestConnectRedis_Unreachable(t *testing.T) {
	_, err := ConnectRedis(context.Background(), "127.0.0.1:1", "", 0, 500*time.Millisecond)
	if err == nil {
		t.Fatal("expected error connecting to a closed port")
	}
	if _, err := ConnectRedis(context.Background(), "", "", 0, time.Second); err == nil {
		t.Error("expected error for empty address")
	}
}
