package service

import (
	"bitwise74/szoniska-api/internal/model"
	"bitwise74/szoniska-api/pkg/validators"
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type Comments struct {
	DB *gorm.DB
}

func NewComments(db *gorm.DB) *Comments {
	return &Comments{DB: db}
}

// Create adds a comment to an approved post
func (c *Comments) Create(ctx context.Context, u *model.User, postID uint, content string) (*model.Comment, error) {
	if err := CheckContentAccess(u); err != nil {
		return nil, err
	}

	content, err := validators.CommentValidator(content)
	if err != nil {
		return nil, invalid(err)
	}

	var post model.Post
	if err := c.DB.WithContext(ctx).Select("id", "status").First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}

		return nil, err
	}

	if post.Status != model.PostApproved {
		return nil, ErrPostNotApproved
	}

	comment := &model.Comment{
		PostID:  postID,
		UserID:  u.ID,
		Content: content,
	}

	if err := c.DB.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, fmt.Errorf("failed to create comment, %w", err)
	}

	a := u.Public()
	comment.Author = &a

	return comment, nil
}

// List returns the comments of a post, newest first
func (c *Comments) List(ctx context.Context, postID uint, page, limit int) ([]model.Comment, int64, error) {
	q := c.DB.WithContext(ctx).Model(&model.Comment{}).Where("post_id = ?", postID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count comments, %w", err)
	}

	var out []model.Comment
	err := q.
		Preload("User").
		Order("created_at desc, id desc").
		Offset(page * limit).
		Limit(limit).
		Find(&out).
		Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list comments, %w", err)
	}

	return out, total, nil
}

// Delete removes a comment. The comment author, the post author and admins
// may do that.
func (c *Comments) Delete(ctx context.Context, actor *model.User, commentID uint) error {
	var comment model.Comment
	if err := c.DB.WithContext(ctx).Preload("Post").First(&comment, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}

		return err
	}

	allowed := actor.IsAdmin ||
		comment.UserID == actor.ID ||
		(comment.Post != nil && comment.Post.UserID == actor.ID)
	if !allowed {
		return ErrNotOwner
	}

	if err := c.DB.WithContext(ctx).Delete(&model.Comment{}, comment.ID).Error; err != nil {
		return fmt.Errorf("failed to delete comment, %w", err)
	}

	return nil
}
