package validation

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAboutMe_Boundary(t *testing.T) {
	assert.True(t, AboutMe("").OK())
	assert.True(t, AboutMe(strings.Repeat("a", 140)).OK())

	r := AboutMe(strings.Repeat("a", 141))
	require.False(t, r.OK())
	assert.Equal(t, RuleMaxLength, r.Err.Rule)
	assert.Equal(t, "about_me", r.Err.Field)
}

func TestAboutMe_CountsCharactersNotBytes(t *testing.T) {
	// 140 two-byte runes is 280 bytes but still within the limit.
	assert.True(t, AboutMe(strings.Repeat("é", 140)).OK())
	assert.False(t, AboutMe(strings.Repeat("é", 141)).OK())
}

func TestUsernameUnique(t *testing.T) {
	cases := []struct {
		name      string
		candidate string
		original  string
		taken     bool
		ok        bool
	}{
		{name: "free on registration", candidate: "alice", taken: false, ok: true},
		{name: "taken on registration", candidate: "alice", taken: true, ok: false},
		{name: "own name on edit", candidate: "alice", original: "alice", taken: true, ok: true},
		{name: "rename to free name", candidate: "alicia", original: "alice", taken: false, ok: true},
		{name: "rename onto another user", candidate: "bob", original: "alice", taken: true, ok: false},
		{name: "case differs is a different name", candidate: "Alice", original: "alice", taken: true, ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := UsernameUnique(tc.candidate, tc.original, tc.taken)
			assert.Equal(t, tc.ok, r.OK())
			if !tc.ok {
				assert.Equal(t, RuleUsernameTaken, r.Err.Rule)
			}
		})
	}
}

func TestPasswordConfirmed_Verbatim(t *testing.T) {
	assert.True(t, PasswordConfirmed("pw1", "pw1").OK())
	assert.False(t, PasswordConfirmed("pw1", "pw1 ").OK())
	assert.False(t, PasswordConfirmed("pw1", "PW1").OK())
}

func TestEmailFormat(t *testing.T) {
	for _, ok := range []string{"a@x.com", "first.last@example.org"} {
		assert.True(t, EmailFormat(ok).OK(), ok)
	}
	for _, bad := range []string{"", "ax.com", "Alice <a@x.com>", "a@x.com, b@x.com", " a@x.com"} {
		assert.False(t, EmailFormat(bad).OK(), bad)
	}
}

func TestRequired_Whitespace(t *testing.T) {
	for _, v := range []string{"", " ", "\t\n"} {
		r := Required("username", v)
		require.False(t, r.OK(), "%q", v)
		assert.Equal(t, RuleRequired, r.Err.Rule)
	}
	assert.True(t, Required("username", " a ").OK())
}

func TestMaxLen_Messages(t *testing.T) {
	assert.True(t, MaxLen("username", strings.Repeat("ü", 64), MaxUsernameLen).OK())

	r := MaxLen("email", strings.Repeat("a", MaxEmailLen+1), MaxEmailLen)
	require.False(t, r.OK())
	assert.Equal(t, "Field cannot be longer than 120 characters.", r.Err.Msg)
}

func TestRegistration_CollectsOnePerField(t *testing.T) {
	errs := Registration(RegistrationFields{
		Username:        "",
		Email:           "",
		Password:        "pw1",
		PasswordConfirm: "pw2",
	})

	want := map[string]string{
		"username":           "This field is required.",
		"email":              "This field is required.",
		"password_confirmed": "Field must be equal to password.",
	}
	if diff := cmp.Diff(want, errs.Fields()); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, errs.Has(RulePasswordMismatch))
	assert.False(t, errs.Has(RuleEmailFormat))
}

func TestRegistration_Accepts(t *testing.T) {
	errs := Registration(RegistrationFields{
		Username:        "alice",
		Email:           "a@x.com",
		Password:        "pw1",
		PasswordConfirm: "pw1",
	})
	assert.Empty(t, errs)
	assert.NoError(t, errs.Err())
}

func TestProfileEdit(t *testing.T) {
	assert.Empty(t, ProfileEdit(ProfileFields{Username: "alice", AboutMe: strings.Repeat("x", 140)}))

	errs := ProfileEdit(ProfileFields{Username: "alice", AboutMe: strings.Repeat("x", 141)})
	require.Len(t, errs, 1)
	assert.Equal(t, "about_me", errs[0].Field)
}

func TestErrors_ClassifyThroughWrapping(t *testing.T) {
	errs := Login("", "")
	require.Len(t, errs, 2)

	wrapped := fmt.Errorf("identity.Register: %w", errs.Err())
	assert.True(t, IsInvalid(wrapped))
	assert.True(t, errors.Is(wrapped, ErrInvalid))

	got, ok := AsErrors(wrapped)
	require.True(t, ok)
	assert.Len(t, got, 2)

	single := fmt.Errorf("wrap: %w", AboutMe(strings.Repeat("x", 141)).Err)
	got, ok = AsErrors(single)
	require.True(t, ok)
	assert.Equal(t, "about_me", got[0].Field)

	assert.False(t, IsInvalid(errors.New("other")))
	assert.NoError(t, Errors(nil).Err())
}
