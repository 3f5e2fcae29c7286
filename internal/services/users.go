package services

import (
	"context"
	"errors"
	"strings"

	"flashfeed/internal/apperr"
	"flashfeed/internal/models"
	"flashfeed/internal/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RegisterInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Email     string
	ImageURL  string
}

// UpdateUserInput 只更新非 nil 字段
type UpdateUserInput struct {
	Password  *string
	FirstName *string
	LastName  *string
	Email     *string
	ImageURL  *string
}

func (in UpdateUserInput) empty() bool {
	return in.Password == nil && in.FirstName == nil && in.LastName == nil && in.Email == nil && in.ImageURL == nil
}

type Users struct {
	db         *gorm.DB
	lookup     *Lookup
	bcryptCost int
}

func NewUsers(db *gorm.DB, lookup *Lookup, bcryptCost int) *Users {
	return &Users{db: db, lookup: lookup, bcryptCost: bcryptCost}
}

// Register creates a user with a hashed password.
func (s *Users) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if !utils.ValidUsername(in.Username) {
		return nil, apperr.BadRequest("Invalid username: %s", in.Username)
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", in.Username).Count(&count).Error; err != nil {
		return nil, storeErr(err, "check username")
	}
	if count > 0 {
		return nil, apperr.BadRequest("Duplicate username: %s", in.Username)
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperr.Internal(err, "hash password")
	}

	user := models.User{
		Username:  in.Username,
		Password:  hash,
		FirstName: utils.SanitizeText(in.FirstName),
		LastName:  utils.SanitizeText(in.LastName),
		Email:     in.Email,
		ImageURL:  in.ImageURL,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.BadRequest("Duplicate username: %s", in.Username)
		}
		return nil, storeErr(err, "create user")
	}
	return &user, nil
}

// Authenticate checks a username/password pair. Both failure modes share one
// message so the response does not reveal which usernames exist.
func (s *Users) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthorized("Invalid username/password")
	}
	if err != nil {
		return nil, storeErr(err, "authenticate")
	}
	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, apperr.Unauthorized("Invalid username/password")
	}
	return &user, nil
}

// Get returns the profile with post, follower and following counts.
func (s *Users) Get(ctx context.Context, userRef string) (*models.UserProfile, error) {
	user, err := s.lookup.ResolveUser(ctx, userRef)
	if err != nil {
		return nil, err
	}

	var counts struct {
		PostCount      int64
		FollowersCount int64
		FollowingCount int64
	}
	err = s.db.WithContext(ctx).Raw(`SELECT
		(SELECT COUNT(*) FROM post WHERE user_id = @id) AS post_count,
		(SELECT COUNT(*) FROM follow WHERE followed_id = @id) AS followers_count,
		(SELECT COUNT(*) FROM follow WHERE follower_id = @id) AS following_count`,
		map[string]any{"id": user.ID}).Scan(&counts).Error
	if err != nil {
		return nil, storeErr(err, "count user stats")
	}

	return &models.UserProfile{
		UserID:         user.ID,
		Username:       user.Username,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		Email:          user.Email,
		ProfileImage:   user.ImageURL,
		DateJoined:     user.DateJoined,
		PostCount:      counts.PostCount,
		FollowersCount: counts.FollowersCount,
		FollowingCount: counts.FollowingCount,
	}, nil
}

// Update applies a partial update. The username itself cannot change.
func (s *Users) Update(ctx context.Context, userRef string, in UpdateUserInput) (*models.User, error) {
	if in.empty() {
		return nil, apperr.BadRequest("No data")
	}
	user, err := s.lookup.ResolveUser(ctx, userRef)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if in.Password != nil {
		hash, err := utils.HashPassword(*in.Password, s.bcryptCost)
		if err != nil {
			return nil, apperr.Internal(err, "hash password")
		}
		updates["password"] = hash
	}
	if in.FirstName != nil {
		updates["first_name"] = utils.SanitizeText(*in.FirstName)
	}
	if in.LastName != nil {
		updates["last_name"] = utils.SanitizeText(*in.LastName)
	}
	if in.Email != nil {
		updates["email"] = *in.Email
	}
	if in.ImageURL != nil {
		updates["image_url"] = *in.ImageURL
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, storeErr(err, "update user")
	}
	if err := s.db.WithContext(ctx).Where("user_id = ?", user.ID).Take(user).Error; err != nil {
		return nil, storeErr(err, "reload user")
	}
	return user, nil
}

// Search matches usernames and names case-insensitively, exact username
// matches first.
func (s *Users) Search(ctx context.Context, query string) ([]models.UserSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.UserSummary{}, nil
	}
	pattern := "%" + escapeLike(query) + "%"

	var users []models.User
	err := s.db.WithContext(ctx).
		Where("username ILIKE @p OR first_name ILIKE @p OR last_name ILIKE @p", map[string]any{"p": pattern}).
		Clauses(clause.OrderBy{Expression: clause.Expr{
			SQL:                "LOWER(username) = LOWER(?) DESC, username",
			Vars:               []any{query},
			WithoutParentheses: true,
		}}).
		Limit(50).
		Find(&users).Error
	if err != nil {
		return nil, storeErr(err, "search users")
	}
	return summaries(users), nil
}

func (s *Users) ListAll(ctx context.Context) ([]models.UserSummary, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("username").Find(&users).Error; err != nil {
		return nil, storeErr(err, "list users")
	}
	return summaries(users), nil
}

// Followed lists the users the referenced user follows.
func (s *Users) Followed(ctx context.Context, userRef string) ([]models.UserSummary, error) {
	id, err := s.lookup.ResolveUserID(ctx, userRef)
	if err != nil {
		return nil, err
	}
	var users []models.User
	err = s.db.WithContext(ctx).
		Joins("JOIN follow ON follow.followed_id = users.user_id").
		Where("follow.follower_id = ?", id).
		Order("follow.created_at DESC").
		Find(&users).Error
	if err != nil {
		return nil, storeErr(err, "list followed")
	}
	return summaries(users), nil
}

// Followers lists the users following the referenced user.
func (s *Users) Followers(ctx context.Context, userRef string) ([]models.UserSummary, error) {
	id, err := s.lookup.ResolveUserID(ctx, userRef)
	if err != nil {
		return nil, err
	}
	var users []models.User
	err = s.db.WithContext(ctx).
		Joins("JOIN follow ON follow.follower_id = users.user_id").
		Where("follow.followed_id = ?", id).
		Order("follow.created_at DESC").
		Find(&users).Error
	if err != nil {
		return nil, storeErr(err, "list followers")
	}
	return summaries(users), nil
}

func summaries(users []models.User) []models.UserSummary {
	out := make([]models.UserSummary, 0, len(users))
	for i := range users {
		out = append(out, users[i].Summary())
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
