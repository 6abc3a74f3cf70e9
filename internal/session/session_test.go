package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateAndRead(t *testing.T) {
	m := NewManager([]byte("test-secret"))

	rec := httptest.NewRecorder()
	if err := m.Create(rec, "alice@example.com"); err != nil {
		t.Fatalf("create: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != CookieName {
		t.Errorf("cookie name = %q, want %q", c.Name, CookieName)
	}
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie attributes: HttpOnly=%v Secure=%v SameSite=%v", c.HttpOnly, c.Secure, c.SameSite)
	}
	if c.MaxAge != int(TTL.Seconds()) {
		t.Errorf("max-age = %d, want %d", c.MaxAge, int(TTL.Seconds()))
	}

	req := httptest.NewRequest("GET", "/me", nil)
	req.AddCookie(c)
	if got := m.Read(req); got != "alice@example.com" {
		t.Errorf("read = %q, want alice@example.com", got)
	}
}

func TestReadNoCookie(t *testing.T) {
	m := NewManager([]byte("test-secret"))
	req := httptest.NewRequest("GET", "/me", nil)
	if got := m.Read(req); got != "" {
		t.Errorf("read = %q, want empty", got)
	}
}

func TestReadGarbageCookie(t *testing.T) {
	m := NewManager([]byte("test-secret"))
	req := httptest.NewRequest("GET", "/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "not.a.token"})
	if got := m.Read(req); got != "" {
		t.Errorf("read = %q, want empty", got)
	}
}

func TestReadWrongSecret(t *testing.T) {
	signer := NewManager([]byte("secret-a"))
	reader := NewManager([]byte("secret-b"))

	rec := httptest.NewRecorder()
	if err := signer.Create(rec, "alice@example.com"); err != nil {
		t.Fatalf("create: %v", err)
	}

	req := httptest.NewRequest("GET", "/me", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	if got := reader.Read(req); got != "" {
		t.Errorf("read = %q, want empty for wrong secret", got)
	}
}

func TestClear(t *testing.T) {
	m := NewManager([]byte("test-secret"))

	rec := httptest.NewRecorder()
	m.Clear(rec)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	if cookies[0].Value != "" || cookies[0].MaxAge != -1 {
		t.Errorf("clear cookie = %+v", cookies[0])
	}
}
