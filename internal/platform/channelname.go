package platform

import (
	"regexp"
	"strings"

	"github.com/vpgclub/clubbot/internal/model"
)

var (
	invalidNameChars = regexp.MustCompile(`[^\w-]`)
	dashRuns         = regexp.MustCompile(`[-_]+`)
)

// SanitizeChannelName lowercases a display name and strips everything the
// platform rejects in channel names, capping the length.
func SanitizeChannelName(name string) string {
	name = strings.ToLower(name)
	name = invalidNameChars.ReplaceAllString(name, "")
	name = dashRuns.ReplaceAllString(name, "-")
	if len(name) > 90 {
		name = name[:90]
	}
	return name
}

// WorkflowChannelName builds "<prefix>-<name>-<id suffix>" the way support
// and evaluation channels are named.
func WorkflowChannelName(prefix, displayName string, user model.UserID) string {
	suffix := string(user)
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return prefix + "-" + SanitizeChannelName(displayName) + "-" + suffix
}
