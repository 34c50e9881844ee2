package safeurl

import "testing"

func TestIsFetchableIcon(t *testing.T) {
	tests := []struct {
		url   string
		allow bool
	}{
		{"http://example.com/poster.jpg", true},
		{"https://example.com/path/img.png", true},
		{"HTTP://example.com/a.jpg", true},
		{"file:///etc/passwd", false},
		{"ftp://example.com/a.jpg", false},
		{"http://", false},
		{"/relative/poster.jpg", false},
		{"", false},
		{"not-a-url", false},
		{"javascript:alert(1)", false},
	}
	for _, tt := range tests {
		got := IsFetchableIcon(tt.url)
		if got != tt.allow {
			t.Errorf("IsFetchableIcon(%q) = %v, want %v", tt.url, got, tt.allow)
		}
	}
}
