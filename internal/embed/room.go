package embed

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/coursemeet/backend/pkg/sanitize"
)

var roomStripper = strings.NewReplacer(" ", "", ":", "", `"`, "")

// SanitizeRoom turns a session name into the room identifier used in the
// token and the widget options.
func SanitizeRoom(name string) string {
	return url.QueryEscape(roomStripper.Replace(name))
}

// PrivateRoom returns the room name of a user's private session.
func PrivateRoom(siteName string, userID fmt.Stringer) string {
	return sanitize.Slug(siteName) + "-priv-" + userID.String()
}
