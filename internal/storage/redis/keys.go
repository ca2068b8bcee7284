package redis

import "github.com/vpgclub/clubbot/internal/model"

// Key prefixes for all stored values
const (
	keyPrefix       = "clubbot:"
	rulesMessageKey = keyPrefix + "rules-message"
)

func profileKey(user model.UserID) string {
	return keyPrefix + "profile:" + string(user)
}
