package service

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"La danza della luce a Firenze", "la-danza-della-luce-a-firenze"},
		{"  Cucina & Design!  ", "cucina-design"},
		{"---", ""},
		{"Già   visto??", "gi-visto"},
		{"UPPER lower 123", "upper-lower-123"},
	}

	for _, tc := range cases {
		if got := Slugify(tc.title); got != tc.want {
			t.Fatalf("Slugify(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		name     string
		fallback string
		want     string
	}{
		{"Foto Di Casa.PNG", "image-1", "foto-di-casa.png"},
		{"../../evil.png", "image-1", "evil.png"},
		{"???", "image-1", "image-1"},
		{"c:\\upload\\scatto.jpg", "image-1", "scatto.jpg"},
	}

	for _, tc := range cases {
		if got := SanitizeFileName(tc.name, tc.fallback); got != tc.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestEnsureUniqueName(t *testing.T) {
	used := map[string]bool{"text.md": true}

	if got := EnsureUniqueName("foto.png", used); got != "foto.png" {
		t.Fatalf("first use should keep the name, got %q", got)
	}
	if got := EnsureUniqueName("foto.png", used); got != "foto-1.png" {
		t.Fatalf("expected foto-1.png, got %q", got)
	}
	if got := EnsureUniqueName("foto.png", used); got != "foto-2.png" {
		t.Fatalf("expected foto-2.png, got %q", got)
	}
	if got := EnsureUniqueName("senza-estensione", used); got != "senza-estensione" {
		t.Fatalf("unexpected name %q", got)
	}
	if got := EnsureUniqueName("senza-estensione", used); got != "senza-estensione-1" {
		t.Fatalf("expected senza-estensione-1, got %q", got)
	}
}
