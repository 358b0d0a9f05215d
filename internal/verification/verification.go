// Package verification handles seller verification requests.
package verification

import (
	"context"
	"errors"
	"strings"
	"time"

	"campus_market/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNotFound        = errors.New("verification request not found")
	ErrAlreadyPending  = errors.New("a verification request is already awaiting review")
	ErrAlreadyVerified = errors.New("user is already a verified seller")
	ErrNotPending      = errors.New("verification request was already reviewed")
	ErrIncomplete      = errors.New("business name and student id are required")
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, log: log}
}

type Submission struct {
	BusinessName string `json:"business_name"`
	StudentID    string `json:"student_id"`
	Description  string `json:"description"`
	DocumentURL  string `json:"document_url"`
}

// Submit files a new request. A user has at most one pending request.
func (s *Service) Submit(ctx context.Context, userID uint, in Submission) (*models.SellerVerification, error) {
	in.BusinessName = strings.TrimSpace(in.BusinessName)
	in.StudentID = strings.TrimSpace(in.StudentID)
	if in.BusinessName == "" || in.StudentID == "" {
		return nil, ErrIncomplete
	}

	req := &models.SellerVerification{
		UserID:       userID,
		BusinessName: in.BusinessName,
		StudentID:    in.StudentID,
		Description:  in.Description,
		DocumentURL:  in.DocumentURL,
		Status:       models.VerificationPending,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Select("id, is_verified_seller").First(&user, userID).Error; err != nil {
			return err
		}
		if user.IsVerifiedSeller {
			return ErrAlreadyVerified
		}
		var pending int64
		if err := tx.Model(&models.SellerVerification{}).
			Where("user_id = ? AND status = ?", userID, models.VerificationPending).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return ErrAlreadyPending
		}
		return tx.Omit("User").Create(req).Error
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Mine returns the user's requests, newest first.
func (s *Service) Mine(ctx context.Context, userID uint) ([]models.SellerVerification, error) {
	var reqs []models.SellerVerification
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at desc, id desc").Find(&reqs).Error
	return reqs, err
}

// List returns requests in a given state for review, oldest first. An
// empty status lists all.
func (s *Service) List(ctx context.Context, status models.VerificationStatus) ([]models.SellerVerification, error) {
	q := s.db.WithContext(ctx).Preload("User", func(db *gorm.DB) *gorm.DB {
		return db.Select("id, username, email, full_name, campus")
	})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var reqs []models.SellerVerification
	err := q.Order("created_at asc, id asc").Find(&reqs).Error
	return reqs, err
}

// Approve marks the request approved and the user a verified seller in
// one transaction.
func (s *Service) Approve(ctx context.Context, reviewerID, requestID uint, note string) (*models.SellerVerification, error) {
	return s.review(ctx, reviewerID, requestID, models.VerificationApproved, note)
}

// Reject refuses the request. The user stays unverified and may resubmit.
func (s *Service) Reject(ctx context.Context, reviewerID, requestID uint, note string) (*models.SellerVerification, error) {
	return s.review(ctx, reviewerID, requestID, models.VerificationRejected, note)
}

func (s *Service) review(ctx context.Context, reviewerID, requestID uint, status models.VerificationStatus, note string) (*models.SellerVerification, error) {
	var req models.SellerVerification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&req, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		now := time.Now().UTC()
		res := tx.Model(&models.SellerVerification{}).
			Where("id = ? AND status = ?", requestID, models.VerificationPending).
			Updates(map[string]any{
				"status":      status,
				"review_note": strings.TrimSpace(note),
				"reviewed_by": reviewerID,
				"reviewed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrNotPending
		}
		if status != models.VerificationApproved {
			return nil
		}
		return tx.Model(&models.User{}).Where("id = ?", req.UserID).
			Update("is_verified_seller", true).Error
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("verification reviewed",
		zap.Uint("request_id", requestID),
		zap.Uint("user_id", req.UserID),
		zap.String("status", string(status)))

	if err := s.db.WithContext(ctx).First(&req, requestID).Error; err != nil {
		return nil, err
	}
	return &req, nil
}
