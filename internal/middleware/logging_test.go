package middleware

import "testing"

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/api/items/42/votes", "/api/items/:itemId/votes"},
		{"/api/items/42/votes/me", "/api/items/:itemId/votes/me"},
		{"/api/purchases/7", "/api/purchases/:itemId"},
		{"/api/purchases/verify", "/api/purchases/verify"},
		{"/api/purchases", "/api/purchases"},
		{"/health/live", "/health/live"},
	}
	for _, tt := range tests {
		if got := sanitizePath(tt.in); got != tt.want {
			t.Errorf("sanitizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHashIPForLog(t *testing.T) {
	got := hashIPForLog("203.0.113.9")
	if len(got) != 12 {
		t.Fatalf("len = %d, want 12", len(got))
	}
	if got == hashIPForLog("203.0.113.10") {
		t.Error("different IPs should hash differently")
	}
}
