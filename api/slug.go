package api

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// slugify lowercases s and joins its alphanumeric runs with dashes.
func slugify(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// uniqueSlug returns base, or base with a short random suffix when taken
// reports that base is already in use.
func uniqueSlug(ctx context.Context, base string, taken func(context.Context, string) (bool, error)) (string, error) {
	if base == "" {
		base = "listing"
	}
	used, err := taken(ctx, base)
	if err != nil {
		return "", err
	}
	if !used {
		return base, nil
	}
	return base + "-" + strings.SplitN(uuid.NewString(), "-", 2)[0], nil
}
