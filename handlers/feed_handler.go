package handlers

import (
	"campus_market/internal/feed"

	"github.com/gofiber/fiber/v2"
)

type FeedHandler struct {
	Feed *feed.Service
}

func NewFeedHandler(svc *feed.Service) *FeedHandler {
	return &FeedHandler{Feed: svc}
}

type PostRequest struct {
	Content  string `json:"content"`
	ImageURL string `json:"image_url"`
}

type CommentRequest struct {
	Content string `json:"content"`
}

// GetFeed - GET /api/feed
func (h *FeedHandler) GetFeed(c *fiber.Ctx) error {
	page, limit := pageQuery(c)
	posts, total, err := h.Feed.List(c.UserContext(), page, limit)
	if err != nil {
		return err
	}
	return paged(c, "Feed", posts, page, limit, total)
}

// CreatePost - POST /api/posts
func (h *FeedHandler) CreatePost(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req PostRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	post, err := h.Feed.CreatePost(c.UserContext(), userID, req.Content, req.ImageURL)
	if err != nil {
		return mapError(err)
	}
	return created(c, "Post created", post)
}

// DeletePost - DELETE /api/posts/:id
func (h *FeedHandler) DeletePost(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Feed.DeletePost(c.UserContext(), userID, id); err != nil {
		return mapError(err)
	}
	return ok(c, "Post deleted", nil)
}

// GetComments - GET /api/posts/:id/comments
func (h *FeedHandler) GetComments(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	comments, err := h.Feed.Comments(c.UserContext(), id)
	if err != nil {
		return mapError(err)
	}
	return ok(c, "Comments", comments)
}

// AddComment - POST /api/posts/:id/comments
func (h *FeedHandler) AddComment(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req CommentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	comment, err := h.Feed.AddComment(c.UserContext(), userID, id, req.Content)
	if err != nil {
		return mapError(err)
	}
	return created(c, "Comment added", comment)
}

// DeleteComment - DELETE /api/comments/:id
func (h *FeedHandler) DeleteComment(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Feed.DeleteComment(c.UserContext(), userID, id); err != nil {
		return mapError(err)
	}
	return ok(c, "Comment deleted", nil)
}

// LikePost - PUT /api/posts/:id/like
func (h *FeedHandler) LikePost(c *fiber.Ctx) error {
	return h.setLike(c, true)
}

// UnlikePost - DELETE /api/posts/:id/like
func (h *FeedHandler) UnlikePost(c *fiber.Ctx) error {
	return h.setLike(c, false)
}

func (h *FeedHandler) setLike(c *fiber.Ctx, like bool) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var state *feed.LikeState
	if like {
		state, err = h.Feed.Like(c.UserContext(), userID, id)
	} else {
		state, err = h.Feed.Unlike(c.UserContext(), userID, id)
	}
	if err != nil {
		return mapError(err)
	}
	return ok(c, "Like updated", state)
}
