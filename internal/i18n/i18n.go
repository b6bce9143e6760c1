// Package i18n resolves user-facing secret-question messages (challenge errors,
// enrollment prompts) for a requested locale.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Message IDs used by the authentication and enrollment steps.
const (
	MsgInvalidAnswer   = "invalidAnswer"
	MsgAnswerRequired  = "answerRequired"
	MsgDefaultQuestion = "defaultQuestion"
	MsgDisplayName     = "displayName"
	MsgHelpText        = "helpText"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// Catalog holds every embedded translation. It is immutable after New and safe
// for concurrent use; a Localizer is created per lookup.
type Catalog struct {
	bundle   *i18n.Bundle
	fallback string
}

// New parses the embedded locale files. fallback is used when a request carries
// no locale or one without translations.
func New(fallback string) (*Catalog, error) {
	if fallback == "" {
		fallback = language.English.String()
	}
	if _, err := language.Parse(fallback); err != nil {
		return nil, fmt.Errorf("invalid fallback locale %q: %w", fallback, err)
	}

	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	files, err := fs.ReadDir(localeFS, "locales")
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + f.Name())
		if err != nil {
			return nil, err
		}
		if _, err := bundle.ParseMessageFileBytes(data, f.Name()); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", f.Name(), err)
		}
	}

	return &Catalog{bundle: bundle, fallback: fallback}, nil
}

// T translates messageID for locale (an Accept-Language style string). Unknown
// IDs come back unchanged.
func (c *Catalog) T(locale, messageID string) string {
	if c == nil || c.bundle == nil {
		return messageID
	}
	localizer := i18n.NewLocalizer(c.bundle, locale, c.fallback)
	msg, err := localizer.Localize(&i18n.LocalizeConfig{MessageID: messageID})
	if err != nil {
		return messageID
	}
	return msg
}

// Languages lists the locales with embedded translations.
func (c *Catalog) Languages() []string {
	if c == nil || c.bundle == nil {
		return nil
	}
	tags := c.bundle.LanguageTags()
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, tag.String())
	}
	return out
}
