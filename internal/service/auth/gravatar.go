package auth

import (
	"crypto/md5"
	"fmt"
	"strings"
)

// GravatarURL builds the default avatar for an email address.
// Gravatar keys images by the md5 of the lowercased address; md5 here is an
// addressing scheme, not a credential protection
func GravatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?d=identicon", sum)
}
