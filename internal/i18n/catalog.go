package i18n

import "fmt"

// Catalog renders localized phrases for narrative transcript lines. Unknown
// keys fall back to the key itself so a missing translation never blanks a
// transcript entry.
type Catalog struct {
	locale  string
	phrases map[string]string
}

var catalogs = map[string]map[string]string{
	"en": {
		"conversation.joined":           "%s (%s) has joined the room",
		"conversation.joined.anonymous": "%s has joined the room",
		"conversation.left":             "%s (%s) has left the room",
		"conversation.left.anonymous":   "%s has left the room",
	},
	"es": {
		"conversation.joined":           "%s (%s) ha entrado en la sala",
		"conversation.joined.anonymous": "%s ha entrado en la sala",
		"conversation.left":             "%s (%s) ha salido de la sala",
		"conversation.left.anonymous":   "%s ha salido de la sala",
	},
}

// NewCatalog returns the catalog for the given locale, falling back to
// English when the locale is unknown.
func NewCatalog(locale string) *Catalog {
	phrases, ok := catalogs[locale]
	if !ok {
		locale = "en"
		phrases = catalogs["en"]
	}
	return &Catalog{locale: locale, phrases: phrases}
}

// Locale returns the catalog's resolved locale.
func (c *Catalog) Locale() string { return c.locale }

// Phrase formats the phrase registered under key with args.
func (c *Catalog) Phrase(key string, args ...any) string {
	format, ok := c.phrases[key]
	if !ok {
		return key
	}
	return fmt.Sprintf(format, args...)
}
