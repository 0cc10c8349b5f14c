package service

import (
	"bitwise74/szoniska-api/internal/model"
	"bitwise74/szoniska-api/pkg/validators"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxPinnedPosts is how many posts may be pinned at the same time
const MaxPinnedPosts = 4

// MediaRemover deletes uploaded objects by their public URL
type MediaRemover interface {
	Remove(ctx context.Context, urls []string) error
}

// Posts implements the post lifecycle: PENDING posts are approved or
// rejected once by an admin, approved posts can be edited by their owner,
// and any post can be pinned as long as the pin cap isn't reached.
type Posts struct {
	DB     *gorm.DB
	CDNURL string
	Media  MediaRemover
}

func NewPosts(db *gorm.DB, cdnURL string, media MediaRemover) *Posts {
	return &Posts{
		DB:     db,
		CDNURL: cdnURL,
		Media:  media,
	}
}

func (p *Posts) Create(ctx context.Context, u *model.User, in validators.PostContent) (*model.Post, error) {
	if err := CheckContentAccess(u); err != nil {
		return nil, err
	}

	if err := validators.PostValidator(&in, p.CDNURL); err != nil {
		return nil, invalid(err)
	}

	post := &model.Post{
		UserID:       u.ID,
		Title:        in.Title,
		Description:  in.Description,
		Images:       model.StringSlice(in.Images),
		Videos:       model.StringSlice(in.Videos),
		FacebookURL:  in.FacebookURL,
		InstagramURL: in.InstagramURL,
		TiktokURL:    in.TiktokURL,
		WebsiteURL:   in.WebsiteURL,
		Status:       model.PostPending,
	}

	if err := p.DB.WithContext(ctx).Create(post).Error; err != nil {
		return nil, fmt.Errorf("failed to create post, %w", err)
	}

	return post, nil
}

// Edit replaces the content of an approved post owned by u
func (p *Posts) Edit(ctx context.Context, u *model.User, postID uint, in validators.PostContent) (*model.Post, error) {
	if err := CheckContentAccess(u); err != nil {
		return nil, err
	}

	post, err := p.Get(ctx, postID)
	if err != nil {
		return nil, err
	}

	if post.UserID != u.ID {
		return nil, ErrNotOwner
	}

	if post.Status != model.PostApproved {
		return nil, ErrNotEditable
	}

	if err := validators.PostValidator(&in, p.CDNURL); err != nil {
		return nil, invalid(err)
	}

	removed := removedMedia(post, in)
	now := time.Now()

	err = p.DB.WithContext(ctx).
		Model(post).
		Updates(map[string]any{
			"title":         in.Title,
			"description":   in.Description,
			"images":        model.StringSlice(in.Images),
			"videos":        model.StringSlice(in.Videos),
			"facebook_url":  in.FacebookURL,
			"instagram_url": in.InstagramURL,
			"tiktok_url":    in.TiktokURL,
			"website_url":   in.WebsiteURL,
			"edited_at":     now,
		}).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to update post, %w", err)
	}

	p.removeMedia(ctx, removed)

	return p.Get(ctx, postID)
}

// Moderate moves a PENDING post to APPROVED or REJECTED. A non-empty
// warning creates a PostWarning in the same transaction.
func (p *Posts) Moderate(ctx context.Context, postID uint, decision model.PostStatus, warning string) (*model.Post, error) {
	if decision != model.PostApproved && decision != model.PostRejected {
		return nil, invalid(ErrInvalidDecision)
	}

	warning = strings.TrimSpace(warning)

	err := p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Post{}).
			Where("id = ? AND status = ?", postID, model.PostPending).
			Update("status", decision)
		if res.Error != nil {
			return fmt.Errorf("failed to update post status, %w", res.Error)
		}

		if res.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&model.Post{}).Where("id = ?", postID).Count(&exists).Error; err != nil {
				return err
			}

			if exists == 0 {
				return ErrPostNotFound
			}

			return ErrAlreadyModerated
		}

		if warning == "" {
			return nil
		}

		return tx.Create(&model.PostWarning{
			PostID:  postID,
			Message: warning,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Post moderated", zap.Uint("postID", postID), zap.String("decision", string(decision)))

	return p.Get(ctx, postID)
}

// Pin pins a post unless MaxPinnedPosts are pinned already. The count and
// the write share a transaction.
func (p *Posts) Pin(ctx context.Context, postID uint) (*model.Post, error) {
	db := p.DB.WithContext(ctx)

	err := db.Transaction(func(tx *gorm.DB) error {
		var post model.Post
		if err := forUpdate(tx).Select("id", "is_pinned").First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}

			return err
		}

		if post.IsPinned {
			return ErrAlreadyPinned
		}

		var pinned int64
		if err := tx.Model(&model.Post{}).Where("is_pinned = ?", true).Count(&pinned).Error; err != nil {
			return fmt.Errorf("failed to count pinned posts, %w", err)
		}

		if pinned >= MaxPinnedPosts {
			return ErrPinLimit
		}

		return tx.Model(&model.Post{}).
			Where("id = ?", postID).
			Updates(map[string]any{
				"is_pinned": true,
				"pinned_at": time.Now(),
			}).
			Error
	}, serializable(db)...)
	if err != nil {
		return nil, err
	}

	return p.Get(ctx, postID)
}

func (p *Posts) Unpin(ctx context.Context, postID uint) (*model.Post, error) {
	res := p.DB.WithContext(ctx).
		Model(&model.Post{}).
		Where("id = ? AND is_pinned = ?", postID, true).
		Updates(map[string]any{
			"is_pinned": false,
			"pinned_at": nil,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to unpin post, %w", res.Error)
	}

	if res.RowsAffected == 0 {
		if _, err := p.Get(ctx, postID); err != nil {
			return nil, err
		}

		return nil, ErrNotPinned
	}

	return p.Get(ctx, postID)
}

// Delete removes a post together with its comments and warnings. Only the
// owner or an admin may do that.
func (p *Posts) Delete(ctx context.Context, actor *model.User, postID uint) error {
	post, err := p.Get(ctx, postID)
	if err != nil {
		return err
	}

	if post.UserID != actor.ID && !actor.IsAdmin {
		return ErrNotOwner
	}

	err = p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", postID).Delete(&model.Comment{}).Error; err != nil {
			return err
		}

		if err := tx.Where("post_id = ?", postID).Delete(&model.PostWarning{}).Error; err != nil {
			return err
		}

		return tx.Delete(&model.Post{}, postID).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete post, %w", err)
	}

	p.removeMedia(ctx, append(append([]string{}, post.Images...), post.Videos...))
	return nil
}

func (p *Posts) Get(ctx context.Context, postID uint) (*model.Post, error) {
	var post model.Post

	err := p.DB.WithContext(ctx).
		Preload("User").
		Preload("Warnings", func(db *gorm.DB) *gorm.DB { return db.Order("created_at desc") }).
		First(&post, postID).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}

		return nil, err
	}

	return &post, nil
}

// Visible returns the post if viewer may see it. Approved posts are public,
// everything else is only visible to the owner and admins.
func (p *Posts) Visible(ctx context.Context, viewer *model.User, postID uint) (*model.Post, error) {
	if err := CheckBrowseAccess(viewer); err != nil {
		return nil, err
	}

	post, err := p.Get(ctx, postID)
	if err != nil {
		return nil, err
	}

	if post.Status == model.PostApproved {
		if viewer == nil || (viewer.ID != post.UserID && !viewer.IsAdmin) {
			post.Warnings = nil
		}

		return post, nil
	}

	if viewer != nil && (viewer.ID == post.UserID || viewer.IsAdmin) {
		return post, nil
	}

	return nil, ErrPostNotFound
}

type ListOpts struct {
	Page   int
	Limit  int
	Status model.PostStatus
	UserID string
	Query  string
}

// Feed lists approved posts with pinned ones first
func (p *Posts) Feed(ctx context.Context, opts ListOpts) ([]model.Post, int64, error) {
	opts.Status = model.PostApproved
	return p.list(ctx, opts, "is_pinned desc, pinned_at desc, created_at desc", false)
}

// List is used by owners and admins and includes the post warnings
func (p *Posts) List(ctx context.Context, opts ListOpts) ([]model.Post, int64, error) {
	return p.list(ctx, opts, "created_at desc", true)
}

func (p *Posts) list(ctx context.Context, opts ListOpts, order string, withWarnings bool) ([]model.Post, int64, error) {
	q := p.DB.WithContext(ctx).Model(&model.Post{})

	if opts.Status != "" {
		q = q.Where("status = ?", opts.Status)
	}

	if opts.UserID != "" {
		q = q.Where("user_id = ?", opts.UserID)
	}

	if opts.Query != "" {
		like := "%" + strings.ToLower(opts.Query) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count posts, %w", err)
	}

	q = q.Preload("User")
	if withWarnings {
		q = q.Preload("Warnings", func(db *gorm.DB) *gorm.DB { return db.Order("created_at desc") })
	}

	var posts []model.Post
	err := q.
		Order(order).
		Offset(opts.Page * opts.Limit).
		Limit(opts.Limit).
		Find(&posts).
		Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list posts, %w", err)
	}

	return posts, total, nil
}

func (p *Posts) AddWarning(ctx context.Context, postID uint, message string) (*model.PostWarning, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, invalid(validators.ErrWarningMessageEmpty)
	}

	if _, err := p.Get(ctx, postID); err != nil {
		return nil, err
	}

	w := &model.PostWarning{
		PostID:  postID,
		Message: message,
	}

	if err := p.DB.WithContext(ctx).Create(w).Error; err != nil {
		return nil, fmt.Errorf("failed to create post warning, %w", err)
	}

	return w, nil
}

func (p *Posts) DeleteWarning(ctx context.Context, postID, warningID uint) error {
	res := p.DB.WithContext(ctx).
		Where("id = ? AND post_id = ?", warningID, postID).
		Delete(&model.PostWarning{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete post warning, %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrWarningNotFound
	}

	return nil
}

func (p *Posts) removeMedia(ctx context.Context, urls []string) {
	if p.Media == nil || len(urls) == 0 {
		return
	}

	if err := p.Media.Remove(ctx, urls); err != nil {
		zap.L().Warn("Failed to remove post media", zap.Strings("urls", urls), zap.Error(err))
	}
}

func removedMedia(post *model.Post, in validators.PostContent) []string {
	keep := make(map[string]struct{}, len(in.Images)+len(in.Videos))
	for _, u := range in.Images {
		keep[u] = struct{}{}
	}
	for _, u := range in.Videos {
		keep[u] = struct{}{}
	}

	var out []string
	for _, u := range append(append([]string{}, post.Images...), post.Videos...) {
		if _, ok := keep[u]; !ok {
			out = append(out, u)
		}
	}

	return out
}
