package services

import (
	"context"
	"errors"
	"time"

	"flashfeed/internal/apperr"
	"flashfeed/internal/models"
	"flashfeed/internal/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Comments struct {
	db     *gorm.DB
	lookup *Lookup
	events Publisher
}

func NewComments(db *gorm.DB, lookup *Lookup, events Publisher) *Comments {
	if events == nil {
		events = nopPublisher{}
	}
	return &Comments{db: db, lookup: lookup, events: events}
}

type commentRow struct {
	CommentID     uint      `gorm:"column:comment_id"`
	PostID        uint      `gorm:"column:post_id"`
	UserID        uint      `gorm:"column:user_id"`
	TxtContent    string    `gorm:"column:txt_content"`
	Username      string    `gorm:"column:username"`
	ProfileImgURL string    `gorm:"column:profile_img_url"`
	DatePosted    time.Time `gorm:"column:date_posted"`
}

func (r commentRow) view() models.CommentView {
	return models.CommentView(r)
}

func (s *Comments) views(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("comment").
		Select("comment.comment_id, comment.post_id, comment.user_id, comment.txt_content, comment.date_posted, users.username, users.image_url AS profile_img_url").
		Joins("JOIN users ON users.user_id = comment.user_id")
}

func (s *Comments) Create(ctx context.Context, postID, userID uint, txtContent string) (*models.CommentView, error) {
	if err := s.lookup.RequireUser(ctx, userID); err != nil {
		return nil, err
	}
	if _, err := s.lookup.RequireVisiblePost(ctx, postID, userID); err != nil {
		return nil, err
	}
	text := utils.SanitizeText(txtContent)
	if text == "" {
		return nil, apperr.BadRequest("txtContent is required")
	}

	comment := models.Comment{UserID: userID, PostID: postID, TxtContent: text}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		if isForeignKeyViolation(err) {
			return nil, apperr.NotFound("Post not found with id %d", postID)
		}
		return nil, storeErr(err, "create comment")
	}
	s.events.Publish(ActivityEvent{Type: EventComment, ActorID: userID, TargetID: postID, Active: true})

	var row commentRow
	if err := s.views(ctx).Where("comment.comment_id = ?", comment.ID).Take(&row).Error; err != nil {
		return nil, storeErr(err, "load comment")
	}
	v := row.view()
	return &v, nil
}

// Owner returns the author of a comment.
func (s *Comments) Owner(ctx context.Context, commentID uint) (uint, error) {
	var c models.Comment
	if err := s.db.WithContext(ctx).Select("comment_id", "user_id").Where("comment_id = ?", commentID).Take(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperr.NotFound("Comment not found with id %d", commentID)
		}
		return 0, storeErr(err, "load comment")
	}
	return c.UserID, nil
}

func (s *Comments) Delete(ctx context.Context, commentID uint) (*models.Comment, error) {
	var c models.Comment
	res := s.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Where("comment_id = ?", commentID).
		Delete(&c)
	if res.Error != nil {
		return nil, storeErr(res.Error, "delete comment")
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("Comment not found with id %d", commentID)
	}
	return &c, nil
}

// ListForPost returns the comments on a post visible to viewer, oldest first.
func (s *Comments) ListForPost(ctx context.Context, viewerID, postID uint) ([]models.CommentView, error) {
	if _, err := s.lookup.RequireVisiblePost(ctx, postID, viewerID); err != nil {
		return nil, err
	}

	var rows []commentRow
	err := s.views(ctx).
		Where("comment.post_id = ?", postID).
		Order("comment.date_posted, comment.comment_id").
		Scan(&rows).Error
	if err != nil {
		return nil, storeErr(err, "list comments")
	}
	out := make([]models.CommentView, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.view())
	}
	return out, nil
}
