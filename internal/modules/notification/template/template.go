// Package template maps an event kind and board category to the message
// template and notification type stored for it.
package template

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"anoa.com/boardpush/internal/entity"
	"anoa.com/boardpush/internal/event"
	"github.com/microcosm-cc/bluemonday"
)

var ErrUnsupportedCategory = errors.New("unsupported board category")

const (
	DefaultLocale = "ko"

	excerptLength = 20
)

// Template is a format string taking Args positional substitutions: the
// actor's display name, then an excerpt of the content.
type Template struct {
	Format string
	Args   int
}

// Render fills the template. Substitutions beyond Args are ignored.
func (t Template) Render(actor, excerpt string) string {
	switch t.Args {
	case 0:
		return t.Format
	case 1:
		return fmt.Sprintf(t.Format, actor)
	default:
		return strings.TrimSpace(fmt.Sprintf(t.Format, actor, excerpt))
	}
}

type Resolver struct {
	catalogs      map[string]catalog
	defaultLocale string
	sanitizer     *bluemonday.Policy
}

// NewResolver builds a resolver whose fallback catalog is defaultLocale.
// Unknown defaults fall back to Korean.
func NewResolver(defaultLocale string) *Resolver {
	r := &Resolver{
		catalogs: map[string]catalog{
			"ko": korean,
			"en": english,
		},
		defaultLocale: DefaultLocale,
		sanitizer:     bluemonday.StrictPolicy(),
	}
	if _, ok := r.catalogs[normalizeLocale(defaultLocale)]; ok {
		r.defaultLocale = normalizeLocale(defaultLocale)
	}
	return r
}

// Resolve returns the template and type for kind. category only matters for
// reply events, which reject anything outside the known categories.
func (r *Resolver) Resolve(kind event.Kind, category entity.BoardCategory, locale string) (Template, entity.NotificationType, error) {
	notificationType, err := typeOf(kind, category)
	if err != nil {
		return Template{}, "", err
	}
	return r.catalog(locale)[notificationType], notificationType, nil
}

// Excerpt strips markup from content and shortens it for inline display.
func (r *Resolver) Excerpt(content string) string {
	content = strings.NewReplacer("</p>", " ", "<br>", " ", "<br/>", " ", "</div>", " ").Replace(content)
	text := html.UnescapeString(r.sanitizer.Sanitize(content))
	text = strings.Join(strings.Fields(text), " ")

	if utf8.RuneCountInString(text) <= excerptLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:excerptLength]) + "..."
}

func (r *Resolver) catalog(locale string) catalog {
	if c, ok := r.catalogs[normalizeLocale(locale)]; ok {
		return c
	}
	return r.catalogs[r.defaultLocale]
}

// normalizeLocale reduces tags like "en-US" or "ko_KR" to the language.
func normalizeLocale(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		locale = locale[:i]
	}
	return locale
}

func typeOf(kind event.Kind, category entity.BoardCategory) (entity.NotificationType, error) {
	switch kind {
	case event.KindBoardBanned:
		return entity.TypeBoardBanned, nil
	case event.KindBoardLiked:
		return entity.TypeBoardLike, nil
	case event.KindGuestBoardUploaded:
		return entity.TypeGuestBoardUpload, nil
	case event.KindReplyLiked:
		switch category {
		case entity.CategoryQuestion:
			return entity.TypeReplyLikeAnswer, nil
		case entity.CategoryInspiration:
			return entity.TypeReplyLikeInspiration, nil
		case entity.CategoryCoworking:
			return entity.TypeReplyLikeCoworking, nil
		}
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCategory, category)
	case event.KindReplyUploaded:
		switch category {
		case entity.CategoryQuestion:
			return entity.TypeReplyUploadAnswer, nil
		case entity.CategoryInspiration:
			return entity.TypeReplyUploadInspiration, nil
		case entity.CategoryCoworking:
			return entity.TypeReplyUploadCoworking, nil
		}
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCategory, category)
	}
	return "", fmt.Errorf("no template for event kind %q", kind)
}
