package services

import (
	"context"

	"flashfeed/internal/apperr"
	"flashfeed/internal/models"
	"flashfeed/internal/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CreatePostInput struct {
	UserID     uint
	TxtContent string
	ImgURL     string
	IsPrivate  bool
}

// UpdatePostInput 部分更新，nil 字段保持不变
type UpdatePostInput struct {
	TxtContent *string
	ImgURL     *string
	IsPrivate  *bool
}

type Posts struct {
	db     *gorm.DB
	lookup *Lookup
	feed   *Feed
	events Publisher
}

func NewPosts(db *gorm.DB, lookup *Lookup, feed *Feed, events Publisher) *Posts {
	if events == nil {
		events = nopPublisher{}
	}
	return &Posts{db: db, lookup: lookup, feed: feed, events: events}
}

// Create stores a post and returns it decorated for its author.
func (s *Posts) Create(ctx context.Context, in CreatePostInput) (*models.PostView, error) {
	if err := s.lookup.RequireUser(ctx, in.UserID); err != nil {
		return nil, err
	}
	text := utils.SanitizeText(in.TxtContent)
	if text == "" {
		return nil, apperr.BadRequest("txtContent is required")
	}

	post := models.Post{
		UserID:     in.UserID,
		TxtContent: text,
		ImgURL:     in.ImgURL,
		IsPrivate:  in.IsPrivate,
	}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		if isForeignKeyViolation(err) {
			return nil, apperr.NotFound("No user: %d", in.UserID)
		}
		return nil, storeErr(err, "create post")
	}
	s.events.Publish(ActivityEvent{Type: EventPost, ActorID: post.UserID, TargetID: post.ID, Active: true})
	return s.feed.GetPost(ctx, post.UserID, post.ID)
}

// Owner returns the author of a post.
func (s *Posts) Owner(ctx context.Context, postID uint) (uint, error) {
	post, err := s.lookup.RequirePost(ctx, postID)
	if err != nil {
		return 0, err
	}
	return post.UserID, nil
}

func (s *Posts) Update(ctx context.Context, postID uint, in UpdatePostInput) (*models.Post, error) {
	updates := map[string]any{}
	if in.TxtContent != nil {
		text := utils.SanitizeText(*in.TxtContent)
		if text == "" {
			return nil, apperr.BadRequest("txtContent cannot be empty")
		}
		updates["txt_content"] = text
	}
	if in.ImgURL != nil {
		updates["img_url"] = *in.ImgURL
	}
	if in.IsPrivate != nil {
		updates["is_private"] = *in.IsPrivate
	}
	if len(updates) == 0 {
		return nil, apperr.BadRequest("No data")
	}

	var post models.Post
	res := s.db.WithContext(ctx).
		Model(&post).
		Clauses(clause.Returning{}).
		Where("post_id = ?", postID).
		Updates(updates)
	if res.Error != nil {
		return nil, storeErr(res.Error, "update post")
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("Post not found with id %d", postID)
	}
	return &post, nil
}

// Delete removes a post and returns the deleted row. Comments and edges go
// with it through the foreign key cascade.
func (s *Posts) Delete(ctx context.Context, postID uint) (*models.Post, error) {
	var post models.Post
	res := s.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Where("post_id = ?", postID).
		Delete(&post)
	if res.Error != nil {
		return nil, storeErr(res.Error, "delete post")
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("Post not found with id %d", postID)
	}
	return &post, nil
}

// TogglePrivacy flips is_private in a single statement and returns the new
// value. Only the author's own post matches.
func (s *Posts) TogglePrivacy(ctx context.Context, postID, userID uint) (bool, error) {
	var rows []struct{ IsPrivate bool }
	err := s.db.WithContext(ctx).
		Raw("UPDATE post SET is_private = NOT is_private WHERE post_id = ? AND user_id = ? RETURNING is_private", postID, userID).
		Scan(&rows).Error
	if err != nil {
		return false, storeErr(err, "toggle privacy")
	}
	if len(rows) == 0 {
		return false, apperr.NotFound("Post not found with id %d", postID)
	}
	return rows[0].IsPrivate, nil
}
