package models

import (
	"time"
)

type User struct {
	ID         uint      `gorm:"column:user_id;primaryKey" json:"userId"`
	Username   string    `gorm:"size:25;uniqueIndex;not null" json:"username"`
	Password   string    `gorm:"not null" json:"-"` // bcrypt hash
	FirstName  string    `gorm:"size:30;not null" json:"firstName"`
	LastName   string    `gorm:"size:30;not null" json:"lastName"`
	Email      string    `gorm:"not null" json:"email"`
	ImageURL   string    `gorm:"column:image_url" json:"imageUrl"`
	DateJoined time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"dateJoined"`
	// No DeletedAt: users are never removed
}

func (User) TableName() string { return "users" }

// UserProfile 用户主页信息，计数均为查询时统计
type UserProfile struct {
	UserID         uint      `json:"userId"`
	Username       string    `json:"username"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          string    `json:"email"`
	ProfileImage   string    `json:"profileImage"`
	DateJoined     time.Time `json:"dateJoined"`
	PostCount      int64     `json:"postCount"`
	FollowersCount int64     `json:"followersCount"`
	FollowingCount int64     `json:"followingCount"`
}

// UserSummary is the short form used in follower lists and search results.
type UserSummary struct {
	UserID       uint   `json:"userId"`
	Username     string `json:"username"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	ProfileImage string `json:"profileImage"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		UserID:       u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		ProfileImage: u.ImageURL,
	}
}
