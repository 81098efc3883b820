// Package validation holds the field rules checked before a user record is
// created or changed. Every function is pure: callers pass the values and any
// facts looked up from storage (for example whether a username is taken), and
// get back a Result naming the rule that failed, if any.
package validation

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Field limits, in characters.
const (
	MaxUsernameLen = 64
	MaxEmailLen    = 120
	MaxAboutMeLen  = 140
)

// Rule identifies which check rejected a value.
type Rule string

const (
	RuleRequired         Rule = "required"
	RuleEmailFormat      Rule = "email_format"
	RuleMaxLength        Rule = "max_length"
	RuleUsernameTaken    Rule = "username_taken"
	RuleEmailTaken       Rule = "email_taken"
	RulePasswordMismatch Rule = "password_mismatch"
	RulePasswordRejected Rule = "password_rejected"
)

// Result is the outcome of one rule: nil Err means accepted.
type Result struct {
	Err *Error
}

// OK reports whether the rule accepted the value.
func (r Result) OK() bool { return r.Err == nil }

// validate is safe for concurrent use and caches parsed tags.
var validate = validator.New()

func accept() Result { return Result{} }

func reject(field string, rule Rule, msg string) Result {
	return Result{Err: &Error{Field: field, Rule: rule, Msg: msg}}
}

// Required rejects empty or whitespace-only values.
func Required(field, value string) Result {
	if validate.Var(strings.TrimSpace(value), "required") != nil {
		return reject(field, RuleRequired, "This field is required.")
	}
	return accept()
}

// MaxLen rejects values longer than n characters.
func MaxLen(field, value string, n int) Result {
	if validate.Var(value, "max="+strconv.Itoa(n)) != nil {
		return reject(field, RuleMaxLength, "Field cannot be longer than "+strconv.Itoa(n)+" characters.")
	}
	return accept()
}

// EmailFormat accepts a single bare address such as "a@x.com".
func EmailFormat(email string) Result {
	if validate.Var(email, "required,email") != nil {
		return reject("email", RuleEmailFormat, "Invalid email address.")
	}
	return accept()
}

// UsernameUnique accepts candidate when it is the user's own current name
// (original, empty on registration) or when no other user holds it.
func UsernameUnique(candidate, original string, taken bool) Result {
	if original != "" && candidate == original {
		return accept()
	}
	if taken {
		return reject("username", RuleUsernameTaken, "Username already exists.")
	}
	return accept()
}

// EmailUnique is only consulted on registration.
func EmailUnique(taken bool) Result {
	if taken {
		return reject("email", RuleEmailTaken, "Email is already in use.")
	}
	return accept()
}

// PasswordConfirmed requires confirm to equal password byte for byte.
func PasswordConfirmed(password, confirm string) Result {
	if password != confirm {
		return reject("password_confirmed", RulePasswordMismatch, "Field must be equal to password.")
	}
	return accept()
}

// AboutMe bounds the free-text profile blurb.
func AboutMe(text string) Result {
	return MaxLen("about_me", text, MaxAboutMeLen)
}
