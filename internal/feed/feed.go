// Package feed implements the social feed: posts, comments and likes.
package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"campus_market/models"

	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("post not found")
	ErrForbidden    = errors.New("only the author can delete this")
	ErrEmptyContent = errors.New("content is required")
	ErrTooLong      = errors.New("content is too long")
)

// maxContentLength is counted in characters, not bytes.
const maxContentLength = 2000

func checkLength(content string) error {
	if n := utf8.RuneCountInString(content); n > maxContentLength {
		return fmt.Errorf("%w: %d characters, limit %d", ErrTooLong, n, maxContentLength)
	}
	return nil
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// LikeState is the authoritative like status a client reconciles against.
type LikeState struct {
	PostID    uint `json:"post_id"`
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

func authorColumns(db *gorm.DB) *gorm.DB {
	return db.Select("id, username, full_name, image_url, is_verified_seller")
}

func (s *Service) List(ctx context.Context, page, limit int) ([]models.Post, int64, error) {
	var total int64
	q := s.db.WithContext(ctx).Model(&models.Post{}).Where("is_deleted = ?", false)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var posts []models.Post
	err := q.Preload("Author", authorColumns).
		Order("created_at desc, id desc").
		Limit(limit).Offset((page - 1) * limit).
		Find(&posts).Error
	return posts, total, err
}

func (s *Service) CreatePost(ctx context.Context, authorID uint, content, imageURL string) (*models.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" && imageURL == "" {
		return nil, ErrEmptyContent
	}
	if err := checkLength(content); err != nil {
		return nil, err
	}
	post := &models.Post{AuthorID: authorID, Content: content, ImageURL: imageURL}
	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// DeletePost soft-deletes a post by its author.
func (s *Service) DeletePost(ctx context.Context, userID, postID uint) error {
	post, err := s.livePost(s.db.WithContext(ctx), postID)
	if err != nil {
		return err
	}
	if post.AuthorID != userID {
		return ErrForbidden
	}
	return s.db.WithContext(ctx).Model(post).Update("is_deleted", true).Error
}

func (s *Service) Comments(ctx context.Context, postID uint) ([]models.Comment, error) {
	if _, err := s.livePost(s.db.WithContext(ctx), postID); err != nil {
		return nil, err
	}
	var comments []models.Comment
	err := s.db.WithContext(ctx).Preload("Author", authorColumns).
		Where("post_id = ? AND is_deleted = ?", postID, false).
		Order("created_at asc, id asc").
		Find(&comments).Error
	return comments, err
}

func (s *Service) AddComment(ctx context.Context, authorID, postID uint, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if err := checkLength(content); err != nil {
		return nil, err
	}
	comment := &models.Comment{PostID: postID, AuthorID: authorID, Content: content}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.livePost(tx, postID); err != nil {
			return err
		}
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteComment soft-deletes a comment by its author.
func (s *Service) DeleteComment(ctx context.Context, userID, commentID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		err := tx.Where("id = ? AND is_deleted = ?", commentID, false).First(&comment).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if comment.AuthorID != userID {
			return ErrForbidden
		}
		if err := tx.Model(&comment).Update("is_deleted", true).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ? AND comment_count > 0", comment.PostID).
			UpdateColumn("comment_count", gorm.Expr("comment_count - 1")).Error
	})
}

// Like is idempotent: liking an already liked post changes nothing.
func (s *Service) Like(ctx context.Context, userID, postID uint) (*LikeState, error) {
	return s.setLike(ctx, userID, postID, true)
}

// Unlike is idempotent: unliking a post that is not liked changes nothing.
func (s *Service) Unlike(ctx context.Context, userID, postID uint) (*LikeState, error) {
	return s.setLike(ctx, userID, postID, false)
}

func (s *Service) setLike(ctx context.Context, userID, postID uint, liked bool) (*LikeState, error) {
	state := &LikeState{PostID: postID, Liked: liked}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.livePost(tx, postID); err != nil {
			return err
		}

		var exists int64
		if err := tx.Model(&models.PostLike{}).
			Where("post_id = ? AND user_id = ?", postID, userID).
			Count(&exists).Error; err != nil {
			return err
		}

		switch {
		case liked && exists == 0:
			if err := tx.Create(&models.PostLike{PostID: postID, UserID: userID}).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Post{}).Where("id = ?", postID).
				UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error; err != nil {
				return err
			}
		case !liked && exists > 0:
			if err := tx.Where("post_id = ? AND user_id = ?", postID, userID).
				Delete(&models.PostLike{}).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Post{}).Where("id = ? AND like_count > 0", postID).
				UpdateColumn("like_count", gorm.Expr("like_count - 1")).Error; err != nil {
				return err
			}
		}

		var post models.Post
		if err := tx.Select("like_count").First(&post, postID).Error; err != nil {
			return err
		}
		state.LikeCount = post.LikeCount
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (s *Service) livePost(db *gorm.DB, postID uint) (*models.Post, error) {
	var post models.Post
	err := db.Where("id = ? AND is_deleted = ?", postID, false).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}
