package socialapi

import (
	"time"

	"github.com/0xORB/blog-website/cmd/identity"
	"github.com/0xORB/blog-website/cmd/internal/social"
)

// profileUser is the public view of a user; it never carries the email.
type profileUser struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	AboutMe   string     `json:"about_me"`
	Avatar    string     `json:"avatar"`
	LastSeen  *time.Time `json:"last_seen"`
	CreatedAt time.Time  `json:"created_at"`
}

type postAuthor struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

type post struct {
	Author postAuthor `json:"author"`
	Body   string     `json:"body"`
}

type indexResponse struct {
	Title string      `json:"title"`
	User  profileUser `json:"user"`
	Posts []post      `json:"posts"`
}

type profileResponse struct {
	User  profileUser         `json:"user"`
	Posts []post              `json:"posts"`
	Stats social.ProfileStats `json:"stats"`
	Self  bool                `json:"self"`
}

type listResponse struct {
	User      string   `json:"user"`
	Usernames []string `json:"usernames"`
}

type editProfileRequest struct {
	Username string `json:"username"`
	AboutMe  string `json:"about_me"`
}

type editProfileResponse struct {
	Message string      `json:"message,omitempty"`
	User    profileUser `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func toProfileUser(u identity.User) profileUser {
	return profileUser{
		ID:        u.ID,
		Username:  u.Username,
		AboutMe:   u.AboutMe,
		Avatar:    u.Avatar(128),
		LastSeen:  u.LastSeen,
		CreatedAt: u.CreatedAt,
	}
}

// Posts are placeholders until the blog gains a post store.
func homePosts() []post {
	return []post{
		{Author: postAuthor{Username: "John"}, Body: "Beautiful day in San Fransico, California!"},
		{Author: postAuthor{Username: "Susan"}, Body: "The Avengers movie was so cool!"},
	}
}

func userPosts(u identity.User) []post {
	author := postAuthor{Username: u.Username, Avatar: u.Avatar(36)}
	return []post{
		{Author: author, Body: "Test post #1"},
		{Author: author, Body: "Test post #2"},
	}
}
