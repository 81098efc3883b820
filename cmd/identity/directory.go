package identity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/0xORB/blog-website/cmd/internal/validation"
)

// Directory is the user-facing API over a Store: registration, lookups,
// profile edits and password checks. The acting user is always passed in.
type Directory struct {
	store Store
	creds *Credentials
	log   *slog.Logger
}

// NewDirectory wires a Directory. log may be nil.
func NewDirectory(store Store, creds *Credentials, log *slog.Logger) (*Directory, error) {
	if store == nil {
		return nil, fmt.Errorf("identity: nil store")
	}
	if creds == nil {
		return nil, fmt.Errorf("identity: nil credentials")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Directory{store: store, creds: creds, log: log}, nil
}

// Credentials exposes the password hasher used by the directory.
func (d *Directory) Credentials() *Credentials { return d.creds }

// FindByID returns the user with id, or found=false.
func (d *Directory) FindByID(ctx context.Context, id int64) (User, bool, error) {
	return found(d.store.GetUserByID(ctx, id))
}

// FindByUsername returns the user whose username equals name exactly.
func (d *Directory) FindByUsername(ctx context.Context, name string) (User, bool, error) {
	if name == "" {
		return User{}, false, nil
	}
	return found(d.store.GetUserByUsername(ctx, name))
}

// FindByEmail returns the user whose email equals email exactly.
func (d *Directory) FindByEmail(ctx context.Context, email string) (User, bool, error) {
	if email == "" {
		return User{}, false, nil
	}
	return found(d.store.GetUserByEmail(ctx, email))
}

func found(u User, err error) (User, bool, error) {
	if err != nil {
		if IsNotFound(err) {
			return User{}, false, nil
		}
		return User{}, false, err
	}
	return u, true, nil
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
	Now             time.Time
}

// Register creates a user.
//
// Field rules fail with validation.Errors; a username or email that is
// already held fails with ConflictError, whether caught by the pre-check or
// by the store's unique constraint under a concurrent registration.
func (d *Directory) Register(ctx context.Context, in RegisterInput) (User, error) {
	const op = "identity.Register"

	if err := validation.Registration(validation.RegistrationFields{
		Username:        in.Username,
		Email:           in.Email,
		Password:        in.Password,
		PasswordConfirm: in.PasswordConfirm,
	}).Err(); err != nil {
		return User{}, fmt.Errorf("%s: %w", op, err)
	}

	_, usernameTaken, err := d.FindByUsername(ctx, in.Username)
	if err != nil {
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	if !validation.UsernameUnique(in.Username, "", usernameTaken).OK() {
		return User{}, ConflictError{Op: op, Field: "username"}
	}

	_, emailTaken, err := d.FindByEmail(ctx, in.Email)
	if err != nil {
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	if !validation.EmailUnique(emailTaken).OK() {
		return User{}, ConflictError{Op: op, Field: "email"}
	}

	var u User
	if err := d.creds.SetPassword(&u, in.Password); err != nil {
		return User{}, fmt.Errorf("%s: %w", op, err)
	}

	created, err := d.store.CreateUser(ctx, CreateUserInput{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: u.PasswordHash,
		Now:          in.Now,
	})
	if err != nil {
		return User{}, err
	}
	return created, nil
}

// UpdateProfile replaces user's username and about-me text.
//
// An about-me longer than 140 characters fails with validation.Errors.
// Keeping the current username never conflicts; changing it to one held by
// another user fails with ConflictError.
func (d *Directory) UpdateProfile(ctx context.Context, user User, newUsername, newAboutMe string) (User, error) {
	const op = "identity.UpdateProfile"

	if err := validation.ProfileEdit(validation.ProfileFields{
		Username: newUsername,
		AboutMe:  newAboutMe,
	}).Err(); err != nil {
		return User{}, fmt.Errorf("%s: %w", op, err)
	}

	if newUsername != user.Username {
		holder, taken, err := d.FindByUsername(ctx, newUsername)
		if err != nil {
			return User{}, fmt.Errorf("%s: %w", op, err)
		}
		taken = taken && holder.ID != user.ID
		if !validation.UsernameUnique(newUsername, user.Username, taken).OK() {
			return User{}, ConflictError{Op: op, Field: "username"}
		}
	}

	return d.store.UpdateProfile(ctx, UpdateProfileInput{
		UserID:   user.ID,
		Username: newUsername,
		AboutMe:  newAboutMe,
	})
}

// SetPassword replaces user's credential and persists it.
func (d *Directory) SetPassword(ctx context.Context, user User, plaintext string) (User, error) {
	if err := d.creds.SetPassword(&user, plaintext); err != nil {
		return User{}, err
	}
	if err := d.store.UpdatePasswordHash(ctx, user.ID, user.PasswordHash); err != nil {
		return User{}, err
	}
	return user, nil
}

// CheckPassword reports whether plaintext matches user's credential.
func (d *Directory) CheckPassword(user User, plaintext string) bool {
	return d.creds.CheckPassword(user, plaintext)
}

// Authenticate resolves username and checks password. An unknown username
// and a wrong password both yield ok=false with no error, after the same
// amount of hashing work. Outdated hashes are upgraded after a match.
func (d *Directory) Authenticate(ctx context.Context, username, plaintext string) (User, bool, error) {
	u, exists, err := d.FindByUsername(ctx, username)
	if err != nil {
		return User{}, false, err
	}
	if !exists {
		d.creds.burn(plaintext)
		return User{}, false, nil
	}
	if !d.creds.CheckPassword(u, plaintext) {
		return User{}, false, nil
	}

	if d.creds.NeedsRehash(u) {
		if upgraded, err := d.SetPassword(ctx, u, plaintext); err != nil {
			d.log.Warn("identity.rehash.fail", "user_id", u.ID, "err", err)
		} else {
			u = upgraded
		}
	}
	return u, true, nil
}

// TouchLastSeen records now (UTC) as the user's last activity.
func (d *Directory) TouchLastSeen(ctx context.Context, userID int64, now time.Time) error {
	if now.IsZero() {
		now = time.Now()
	}
	return d.store.TouchLastSeen(ctx, userID, now.UTC())
}
