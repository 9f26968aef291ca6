package metrics

import "testing"

func TestSanitizeEndpoint(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/items/42/votes", "/api/items/:itemId/votes"},
		{"/api/items/42/votes/me", "/api/items/:itemId/votes/me"},
		{"/api/purchases/7", "/api/purchases/:itemId"},
		{"/api/purchases/verify", "/api/purchases/verify"},
		{"/health/live", "/health/live"},
	}
	for _, tt := range tests {
		if got := SanitizeEndpoint(tt.path); got != tt.want {
			t.Errorf("SanitizeEndpoint(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
