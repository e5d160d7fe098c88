package i18n

import "testing"

func TestPhraseFormatting(t *testing.T) {
	c := NewCatalog("en")
	got := c.Phrase("conversation.joined", "Ali", "alice@example.org")
	want := "Ali (alice@example.org) has joined the room"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	got = c.Phrase("conversation.left.anonymous", "alice@example.org")
	if got != "alice@example.org has left the room" {
		t.Fatalf("got %q", got)
	}
}

func TestPhraseUnknownKeyFallsBackToKey(t *testing.T) {
	c := NewCatalog("en")
	if got := c.Phrase("conversation.exploded"); got != "conversation.exploded" {
		t.Fatalf("got %q", got)
	}
}

func TestUnknownLocaleFallsBackToEnglish(t *testing.T) {
	c := NewCatalog("xx")
	if c.Locale() != "en" {
		t.Fatalf("expected en fallback, got %q", c.Locale())
	}
	if got := c.Phrase("conversation.joined.anonymous", "bob@example.org"); got != "bob@example.org has joined the room" {
		t.Fatalf("got %q", got)
	}
}

func TestSpanishCatalog(t *testing.T) {
	c := NewCatalog("es")
	if got := c.Phrase("conversation.left", "Bobby", "bob@example.org"); got != "Bobby (bob@example.org) ha salido de la sala" {
		t.Fatalf("got %q", got)
	}
}
