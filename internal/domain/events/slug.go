package events

import "strings"

// MissingTitleSlug is used when an event is created without a title.
const MissingTitleSlug = "missing-title"

// Slugify derives the URL slug from an event title: lower-cased,
// spaces replaced with hyphens.
func Slugify(title string) string {
	if title == "" {
		return MissingTitleSlug
	}
	return strings.ReplaceAll(strings.ToLower(title), " ", "-")
}
