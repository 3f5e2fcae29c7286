package services

import (
	"context"
	"time"

	"flashfeed/internal/apperr"
	"flashfeed/internal/models"
	"flashfeed/internal/utils"

	"gorm.io/gorm"
)

// postRow is the scan target for decorated post queries.
type postRow struct {
	PostID        uint      `gorm:"column:post_id"`
	UserID        uint      `gorm:"column:user_id"`
	TxtContent    string    `gorm:"column:txt_content"`
	ImgURL        string    `gorm:"column:img_url"`
	IsPrivate     bool      `gorm:"column:is_private"`
	Username      string    `gorm:"column:username"`
	ProfileImgURL string    `gorm:"column:profile_img_url"`
	DatePosted    time.Time `gorm:"column:date_posted"`
	IsLiked       bool      `gorm:"column:is_liked"`
	NumLikes      int64     `gorm:"column:num_likes"`
	NumComments   int64     `gorm:"column:num_comments"`
	IsBookmarked  bool      `gorm:"column:is_bookmarked"`
}

func (r postRow) view() models.PostView {
	return models.PostView{
		PostID:        r.PostID,
		UserID:        r.UserID,
		Text:          r.TxtContent,
		ImgURL:        r.ImgURL,
		IsPrivate:     r.IsPrivate,
		Username:      r.Username,
		ProfileImgURL: r.ProfileImgURL,
		Timestamp:     r.DatePosted,
		IsLiked:       r.IsLiked,
		NumLikes:      r.NumLikes,
		NumComments:   r.NumComments,
		IsBookmarked:  r.IsBookmarked,
	}
}

const postViewColumns = `post.post_id, post.user_id, post.txt_content, post.img_url, post.is_private, post.date_posted,
	users.username, users.image_url AS profile_img_url,
	EXISTS (SELECT 1 FROM likes WHERE likes.post_id = post.post_id AND likes.user_id = ?) AS is_liked,
	(SELECT COUNT(*) FROM likes WHERE likes.post_id = post.post_id) AS num_likes,
	(SELECT COUNT(*) FROM comment WHERE comment.post_id = post.post_id) AS num_comments,
	EXISTS (SELECT 1 FROM bookmarks WHERE bookmarks.post_id = post.post_id AND bookmarks.user_id = ?) AS is_bookmarked`

// Feed 帖子列表查询，每条结果都带有查看者相关的点赞/收藏状态和计数
type Feed struct {
	db       *gorm.DB
	lookup   *Lookup
	pageSize int
}

func NewFeed(db *gorm.DB, lookup *Lookup, pageSize int) *Feed {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Feed{db: db, lookup: lookup, pageSize: pageSize}
}

func (f *Feed) PageSize() int { return f.pageSize }

// base selects decorated posts visible to viewer: public posts plus the
// viewer's own private ones.
func (f *Feed) base(ctx context.Context, viewerID uint) *gorm.DB {
	return f.db.WithContext(ctx).
		Table("post").
		Select(postViewColumns, viewerID, viewerID).
		Joins("JOIN users ON users.user_id = post.user_id").
		Where("(post.is_private = ? OR post.user_id = ?)", false, viewerID)
}

func (f *Feed) page(q *gorm.DB, page, pageSize int) *gorm.DB {
	if pageSize <= 0 {
		pageSize = f.pageSize
	}
	return q.Limit(pageSize).Offset(utils.PageOffset(page, pageSize))
}

func scanViews(q *gorm.DB, op string) ([]models.PostView, error) {
	var rows []postRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, storeErr(err, op)
	}
	views := make([]models.PostView, 0, len(rows))
	for _, r := range rows {
		views = append(views, r.view())
	}
	return views, nil
}

// ListPosts returns one page of all visible posts, newest first.
func (f *Feed) ListPosts(ctx context.Context, viewerID uint, page, pageSize int) ([]models.PostView, error) {
	q := f.base(ctx, viewerID).Order("post.date_posted DESC, post.post_id DESC")
	return scanViews(f.page(q, page, pageSize), "list posts")
}

// ListFollowing returns one page of posts by users the viewer follows.
func (f *Feed) ListFollowing(ctx context.Context, viewerID uint, page, pageSize int) ([]models.PostView, error) {
	q := f.base(ctx, viewerID).
		Joins("JOIN follow ON follow.followed_id = post.user_id AND follow.follower_id = ?", viewerID).
		Order("post.date_posted DESC, post.post_id DESC")
	return scanViews(f.page(q, page, pageSize), "list following posts")
}

// ListPostsByAuthor returns every visible post by the referenced user.
func (f *Feed) ListPostsByAuthor(ctx context.Context, viewerID uint, authorRef string) ([]models.PostView, error) {
	authorID, err := f.lookup.ResolveUserID(ctx, authorRef)
	if err != nil {
		return nil, err
	}
	q := f.base(ctx, viewerID).
		Where("post.user_id = ?", authorID).
		Order("post.date_posted DESC, post.post_id DESC")
	return scanViews(q, "list posts by author")
}

// ListLiked returns the visible posts the referenced user has liked, most
// recently liked first.
func (f *Feed) ListLiked(ctx context.Context, viewerID uint, userRef string) ([]models.PostView, error) {
	userID, err := f.lookup.ResolveUserID(ctx, userRef)
	if err != nil {
		return nil, err
	}
	q := f.base(ctx, viewerID).
		Joins("JOIN likes AS liked ON liked.post_id = post.post_id AND liked.user_id = ?", userID).
		Order("liked.created_at DESC, post.post_id DESC")
	return scanViews(q, "list liked posts")
}

// ListBookmarked is ListLiked for bookmarks.
func (f *Feed) ListBookmarked(ctx context.Context, viewerID uint, userRef string) ([]models.PostView, error) {
	userID, err := f.lookup.ResolveUserID(ctx, userRef)
	if err != nil {
		return nil, err
	}
	q := f.base(ctx, viewerID).
		Joins("JOIN bookmarks AS saved ON saved.post_id = post.post_id AND saved.user_id = ?", userID).
		Order("saved.created_at DESC, post.post_id DESC")
	return scanViews(q, "list bookmarked posts")
}

// GetPost returns one decorated post. A private post of another user is
// reported as missing.
func (f *Feed) GetPost(ctx context.Context, viewerID, postID uint) (*models.PostView, error) {
	views, err := scanViews(f.base(ctx, viewerID).Where("post.post_id = ?", postID).Limit(1), "get post")
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, apperr.NotFound("Post not found with id %d", postID)
	}
	return &views[0], nil
}
