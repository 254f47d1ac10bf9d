package utils

import "testing"

func TestHostname(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.Amazon.eg/dp/B0C123?th=1", "www.amazon.eg"},
		{"http://shop.example.com:8443/item", "shop.example.com"},
		{"  https://noon.com/egypt-en/p/  ", "noon.com"},
		{"not a url", UnknownHost},
		{"://broken", UnknownHost},
		{"", UnknownHost},
	}
	for _, tt := range tests {
		if got := Hostname(tt.in); got != tt.want {
			t.Errorf("Hostname(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHostContainsAny(t *testing.T) {
	fragments := []string{"amazon.", "noon.com", ""}
	if !HostContainsAny("www.amazon.eg", fragments) {
		t.Error("expected amazon host to match")
	}
	if !HostContainsAny("NOON.COM", fragments) {
		t.Error("expected match to ignore case")
	}
	if HostContainsAny("www.jumia.com.eg", fragments) {
		t.Error("unexpected match for jumia")
	}
}

func TestHashURLIsStable(t *testing.T) {
	a := HashURL("https://example.com/a")
	if a != HashURL("https://example.com/a") {
		t.Error("hash is not deterministic")
	}
	if a == HashURL("https://example.com/b") {
		t.Error("different URLs produced the same hash")
	}
	if len(a) != 64 {
		t.Errorf("len = %d, want 64", len(a))
	}
}
