package identity

import (
	"crypto/md5" // #nosec G501 -- Gravatar addresses images by MD5 of the email; not used for security.
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// User is one registered account.
// PasswordHash holds the encoded credential and must never leave the server.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	AboutMe      string
	LastSeen     *time.Time
	CreatedAt    time.Time
}

// Avatar returns the Gravatar identicon URL for the user's email at size pixels.
func (u User) Avatar(size int) string {
	if size <= 0 {
		size = 80
	}
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(u.Email)))) // #nosec G401
	return fmt.Sprintf("https://www.gravatar.com/avatar/%s?d=identicon&s=%d", hex.EncodeToString(sum[:]), size)
}
