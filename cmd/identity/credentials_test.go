package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xORB/blog-website/cmd/internal/validation"
	"github.com/0xORB/blog-website/cmd/security/password"
)

func TestCredentials_SetAndCheck(t *testing.T) {
	c, err := NewCredentials(password.LightConfig())
	require.NoError(t, err)

	var u User
	require.NoError(t, c.SetPassword(&u, "pw1"))
	require.NotEmpty(t, u.PasswordHash)

	assert.True(t, c.CheckPassword(u, "pw1"))
	assert.False(t, c.CheckPassword(u, "pw2"))
	assert.False(t, c.CheckPassword(u, ""))
	assert.False(t, c.CheckPassword(u, u.PasswordHash), "the stored hash is not the password")

	first := u.PasswordHash
	require.NoError(t, c.SetPassword(&u, "pw2"))
	assert.NotEqual(t, first, u.PasswordHash)
	assert.False(t, c.CheckPassword(u, "pw1"), "only the most recent password matches")
	assert.True(t, c.CheckPassword(u, "pw2"))
}

func TestCredentials_CheckNeverPanicsOnBadState(t *testing.T) {
	c, err := NewCredentials(password.LightConfig())
	require.NoError(t, err)

	assert.False(t, c.CheckPassword(User{}, "pw"))
	assert.False(t, c.CheckPassword(User{PasswordHash: "garbage"}, "pw"))
}

func TestCredentials_SetPasswordPolicy(t *testing.T) {
	cfg := password.LightConfig()
	cfg.Policy.MaxLength = 8
	c, err := NewCredentials(cfg)
	require.NoError(t, err)

	var u User
	err = c.SetPassword(&u, "much too long")
	require.Error(t, err)
	assert.True(t, validation.IsInvalid(err))
	assert.Empty(t, u.PasswordHash)

	err = c.SetPassword(nil, "pw")
	assert.True(t, IsInvalidInput(err))
}

func TestNewCredentials_AnyAcceptedPolicy(t *testing.T) {
	t.Setenv("BLOG_PASSWORD_MIN_LEN", "30")
	t.Setenv("BLOG_PASSWORD_MAX_LEN", "40")
	t.Setenv("BLOG_ARGON2_MEMORY_KIB", "8192")
	t.Setenv("BLOG_ARGON2_ITERATIONS", "1")

	cfg, err := password.FromEnv()
	require.NoError(t, err)
	c, err := NewCredentials(cfg)
	require.NoError(t, err)

	assert.False(t, c.CheckPassword(User{}, strings.Repeat("a", 30)))

	cfg = password.LightConfig()
	cfg.Policy.MaxLength = 3
	_, err = NewCredentials(cfg)
	require.NoError(t, err)
}

func TestCredentials_MultibyteAtPolicyMaximum(t *testing.T) {
	cfg := password.LightConfig()
	cfg.Policy.MaxLength = 1500
	c, err := NewCredentials(cfg)
	require.NoError(t, err)

	pw := strings.Repeat("€", 1500) // 4500 bytes
	var u User
	require.NoError(t, c.SetPassword(&u, pw))
	assert.True(t, c.CheckPassword(u, pw))
	assert.False(t, c.CheckPassword(u, pw+"€"))
}

func TestUser_Avatar(t *testing.T) {
	u := User{Email: " John@Example.com "}
	assert.Equal(t,
		"https://www.gravatar.com/avatar/d4c74594d841139328695756648b6bd6?d=identicon&s=128",
		u.Avatar(128),
	)
	assert.Contains(t, u.Avatar(0), "&s=80")
}
