package services

import (
	"context"
	"errors"

	"flashfeed/internal/apperr"
	"flashfeed/internal/models"
	"flashfeed/internal/utils"

	"gorm.io/gorm"
)

// EntityKind identifies which table a reference points into.
type EntityKind int

const (
	KindUser EntityKind = iota
	KindPost
)

func (k EntityKind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindPost:
		return "post"
	}
	return "unknown"
}

// Lookup resolves user and post references to canonical ids.
// User references are either a numeric id or a username.
type Lookup struct {
	db    *gorm.DB
	users *utils.Cache[string, uint] // ref -> user_id, nil disables caching
}

func NewLookup(db *gorm.DB, users *utils.Cache[string, uint]) *Lookup {
	return &Lookup{db: db, users: users}
}

// ResolveUser loads the full user row for a reference.
func (l *Lookup) ResolveUser(ctx context.Context, ref string) (*models.User, error) {
	var user models.User
	q := l.db.WithContext(ctx)
	if id, ok := utils.ParseID(ref); ok {
		q = q.Where("user_id = ?", id)
	} else {
		q = q.Where("username = ?", ref)
	}
	if err := q.Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("No user: %s", ref)
		}
		return nil, storeErr(err, "resolve user")
	}
	if l.users != nil {
		l.users.Set(ref, user.ID)
	}
	return &user, nil
}

// ResolveUserID only confirms existence. Users are never deleted and usernames
// cannot change through the API, so positive answers are cached.
func (l *Lookup) ResolveUserID(ctx context.Context, ref string) (uint, error) {
	if l.users != nil {
		if id, ok := l.users.Get(ref); ok {
			return id, nil
		}
	}

	var user models.User
	q := l.db.WithContext(ctx).Select("user_id")
	if id, ok := utils.ParseID(ref); ok {
		q = q.Where("user_id = ?", id)
	} else {
		q = q.Where("username = ?", ref)
	}
	if err := q.Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperr.NotFound("No user: %s", ref)
		}
		return 0, storeErr(err, "resolve user")
	}
	if l.users != nil {
		l.users.Set(ref, user.ID)
	}
	return user.ID, nil
}

// RequireUser fails with NotFound unless the user id exists.
func (l *Lookup) RequireUser(ctx context.Context, id uint) error {
	_, err := l.ResolveUserID(ctx, ref(id))
	return err
}

// ResolvePost confirms that a post row exists. Posts can be deleted, so
// nothing is cached here.
func (l *Lookup) ResolvePost(ctx context.Context, ref string) (uint, error) {
	id, ok := utils.ParseID(ref)
	if !ok {
		return 0, apperr.NotFound("Post not found with id %s", ref)
	}
	post, err := l.RequirePost(ctx, id)
	if err != nil {
		return 0, err
	}
	return post.ID, nil
}

// RequirePost loads the post row, failing with NotFound if it is gone.
func (l *Lookup) RequirePost(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := l.db.WithContext(ctx).Where("post_id = ?", id).Take(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Post not found with id %d", id)
		}
		return nil, storeErr(err, "resolve post")
	}
	return &post, nil
}

// ResolveVisiblePost is ResolvePost for a viewer: another user's private post
// is reported as NotFound, the same as a missing one.
func (l *Lookup) ResolveVisiblePost(ctx context.Context, ref string, viewerID uint) (uint, error) {
	id, ok := utils.ParseID(ref)
	if !ok {
		return 0, apperr.NotFound("Post not found with id %s", ref)
	}
	post, err := l.RequireVisiblePost(ctx, id, viewerID)
	if err != nil {
		return 0, err
	}
	return post.ID, nil
}

func (l *Lookup) RequireVisiblePost(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	post, err := l.RequirePost(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.IsPrivate && post.UserID != viewerID {
		return nil, apperr.NotFound("Post not found with id %d", id)
	}
	return post, nil
}

func (l *Lookup) Resolve(ctx context.Context, kind EntityKind, ref string) (uint, error) {
	switch kind {
	case KindUser:
		return l.ResolveUserID(ctx, ref)
	case KindPost:
		return l.ResolvePost(ctx, ref)
	}
	return 0, apperr.BadRequest("unknown entity kind %d", kind)
}
