// Package socialapi serves the profile, feed and follow endpoints.
package socialapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/0xORB/blog-website/cmd/identity"
	"github.com/0xORB/blog-website/cmd/internal/auth/session"
	"github.com/0xORB/blog-website/cmd/internal/httpx"
	"github.com/0xORB/blog-website/cmd/internal/social"
	"github.com/0xORB/blog-website/cmd/internal/validation"
)

// Handler wires the profile and follow endpoints.
type Handler struct {
	log          *slog.Logger
	dir          *identity.Directory
	graph        *social.Graph
	maxBodyBytes int64
}

// NewHandler constructs a Handler. maxBodyBytes <= 0 selects the default.
func NewHandler(log *slog.Logger, dir *identity.Directory, graph *social.Graph, maxBodyBytes int64) (*Handler, error) {
	if dir == nil {
		return nil, errors.New("socialapi: nil directory")
	}
	if graph == nil {
		return nil, errors.New("socialapi: nil graph")
	}
	if log == nil {
		log = slog.Default()
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = httpx.DefaultMaxBodyBytes
	}
	return &Handler{log: log, dir: dir, graph: graph, maxBodyBytes: maxBodyBytes}, nil
}

// Routes mounts the endpoints. Every route needs a logged-in user, so r
// must already run the identity middleware and RequireUser.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Get("/index", h.handleIndex)

	r.Get("/profile", h.handleGetProfile)
	r.Put("/profile", h.handleEditProfile)

	r.Route("/users/{username}", func(r chi.Router) {
		r.Get("/", h.handleUser)
		r.Get("/followers", h.handleFollowers)
		r.Get("/following", h.handleFollowing)
		r.Post("/follow", h.handleFollow)
		r.Post("/unfollow", h.handleUnfollow)
	})
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	me := session.FromContext(r.Context()).User
	httpx.WriteJSON(w, http.StatusOK, indexResponse{
		Title: "Home",
		User:  toProfileUser(me),
		Posts: homePosts(),
	})
}

func (h *Handler) handleUser(w http.ResponseWriter, r *http.Request) {
	me := session.FromContext(r.Context()).User
	target, ok := h.lookupTarget(w, r)
	if !ok {
		return
	}

	stats, err := h.graph.Stats(r.Context(), me.ID, target.ID)
	if err != nil {
		h.internal(w, "social.stats.fail", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, profileResponse{
		User:  toProfileUser(target),
		Posts: userPosts(target),
		Stats: stats,
		Self:  me.ID == target.ID,
	})
}

func (h *Handler) handleFollowers(w http.ResponseWriter, r *http.Request) {
	h.handleList(w, r, h.graph.Followers)
}

func (h *Handler) handleFollowing(w http.ResponseWriter, r *http.Request) {
	h.handleList(w, r, h.graph.Following)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request, list func(ctx context.Context, userID int64, limit int) ([]string, error)) {
	target, ok := h.lookupTarget(w, r)
	if !ok {
		return
	}

	limit := social.MaxList
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = n
	}

	names, err := list(r.Context(), target.ID, limit)
	if err != nil {
		h.internal(w, "social.list.fail", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, listResponse{User: target.Username, Usernames: names})
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	me := session.FromContext(r.Context()).User
	httpx.WriteJSON(w, http.StatusOK, editProfileResponse{User: toProfileUser(me)})
}

func (h *Handler) handleEditProfile(w http.ResponseWriter, r *http.Request) {
	me := session.FromContext(r.Context()).User

	var req editProfileRequest
	if err := httpx.DecodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	updated, err := h.dir.UpdateProfile(r.Context(), me, req.Username, req.AboutMe)
	if err != nil {
		if errs, ok := validation.AsErrors(err); ok {
			httpx.WriteFieldErrors(w, http.StatusUnprocessableEntity, "validation_failed", "invalid input", errs.Fields())
			return
		}
		if field, ok := identity.ConflictField(err); ok {
			httpx.WriteFieldErrors(w, http.StatusConflict, "conflict", "already in use", map[string]string{
				field: "Username already exists!",
			})
			return
		}
		h.internal(w, "social.profile.update.fail", err)
		return
	}

	h.log.Info("social.profile.update.ok", "user_id", updated.ID)
	httpx.WriteJSON(w, http.StatusOK, editProfileResponse{
		Message: "Your changes have been saved.",
		User:    toProfileUser(updated),
	})
}

func (h *Handler) handleFollow(w http.ResponseWriter, r *http.Request) {
	me := session.FromContext(r.Context()).User
	target, ok := h.lookupTarget(w, r)
	if !ok {
		return
	}

	if err := h.graph.Follow(r.Context(), me, target.ID); err != nil {
		h.writeGraphError(w, "follow", target.Username, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("You are following %s!", target.Username)})
}

func (h *Handler) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	me := session.FromContext(r.Context()).User
	target, ok := h.lookupTarget(w, r)
	if !ok {
		return
	}

	if err := h.graph.Unfollow(r.Context(), me, target.ID); err != nil {
		h.writeGraphError(w, "unfollow", target.Username, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("You are not following %s.", target.Username)})
}

// lookupTarget resolves {username} or answers 404.
func (h *Handler) lookupTarget(w http.ResponseWriter, r *http.Request) (identity.User, bool) {
	name := chi.URLParam(r, "username")
	u, found, err := h.dir.FindByUsername(r.Context(), name)
	if err != nil {
		h.internal(w, "social.lookup.fail", err)
		return identity.User{}, false
	}
	if !found {
		writeUserNotFound(w, name)
		return identity.User{}, false
	}
	return u, true
}

func (h *Handler) writeGraphError(w http.ResponseWriter, action, username string, err error) {
	switch {
	case social.IsSelfFollow(err):
		httpx.WriteError(w, http.StatusBadRequest, "self_follow", fmt.Sprintf("You cannot %s yourself!", action))
	case identity.IsNotFound(err):
		writeUserNotFound(w, username)
	default:
		h.internal(w, "social.graph.fail", err)
	}
}

func (h *Handler) internal(w http.ResponseWriter, event string, err error) {
	h.log.Error(event, "err", err)
	httpx.WriteInternal(w)
}

func writeUserNotFound(w http.ResponseWriter, username string) {
	httpx.WriteError(w, http.StatusNotFound, "not_found", fmt.Sprintf("User %s not found.", username))
}
