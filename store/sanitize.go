package store

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/Rhejna/missing-person-app/apperr"
	"github.com/Rhejna/missing-person-app/models"
)

// MaxCommentLength is the longest accepted comment, in characters
const MaxCommentLength = 2000

const maxAuthorLength = 100

const maxSanitizePasses = 4

var strict = bluemonday.StrictPolicy()

// Sanitize strips every html element from s, including elements hidden
// behind entity encoding, and returns trimmed plain text. The result is a
// fixed point: sanitizing it again changes nothing.
func Sanitize(s string) string {
	for i := 0; i < maxSanitizePasses; i++ {
		escaped := strict.Sanitize(s)
		plain := html.UnescapeString(escaped)
		if plain == s {
			return strings.TrimSpace(plain)
		}
		s = plain
	}
	// still unwrapping encoded markup; keep the escaped form
	return strings.TrimSpace(strict.Sanitize(s))
}

func commentContent(raw string) (string, error) {
	content := Sanitize(raw)
	if content == "" {
		return "", apperr.Validation("comment content is required")
	}
	if utf8.RuneCountInString(content) > MaxCommentLength {
		return "", apperr.Validation("comment must be at most %d characters", MaxCommentLength)
	}
	return content, nil
}

func commentAuthor(raw string) string {
	author := Sanitize(raw)
	if author == "" {
		return models.AnonymousAuthor
	}
	if utf8.RuneCountInString(author) > maxAuthorLength {
		author = string([]rune(author)[:maxAuthorLength])
	}
	return author
}
