package validation

// RegistrationFields is the raw registration input.
type RegistrationFields struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
}

// Registration checks every field rule that needs no storage lookup.
func Registration(f RegistrationFields) Errors {
	return Collect(
		Required("username", f.Username),
		MaxLen("username", f.Username, MaxUsernameLen),
		Required("email", f.Email),
		MaxLen("email", f.Email, MaxEmailLen),
		EmailFormat(f.Email),
		Required("password", f.Password),
		Required("password_confirmed", f.PasswordConfirm),
		PasswordConfirmed(f.Password, f.PasswordConfirm),
	)
}

// ProfileFields is the raw edit-profile input.
type ProfileFields struct {
	Username string
	AboutMe  string
}

// ProfileEdit checks the edit-profile rules that need no storage lookup.
func ProfileEdit(f ProfileFields) Errors {
	return Collect(
		Required("username", f.Username),
		MaxLen("username", f.Username, MaxUsernameLen),
		AboutMe(f.AboutMe),
	)
}

// Login only requires both fields to be present.
func Login(username, password string) Errors {
	return Collect(
		Required("username", username),
		Required("password", password),
	)
}
