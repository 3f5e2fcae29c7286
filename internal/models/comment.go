package models

import (
	"time"
)

type Comment struct {
	ID         uint      `gorm:"column:comment_id;primaryKey" json:"commentId"`
	UserID     uint      `gorm:"not null;index" json:"userId"`
	User       User      `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	PostID     uint      `gorm:"not null;index" json:"postId"`
	Post       Post      `gorm:"foreignKey:PostID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	TxtContent string    `gorm:"column:txt_content;type:text;not null" json:"txtContent"`
	DatePosted time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"datePosted"`
}

func (Comment) TableName() string { return "comment" }

type CommentView struct {
	CommentID     uint      `json:"commentId"`
	PostID        uint      `json:"postId"`
	UserID        uint      `json:"userId"`
	TxtContent    string    `json:"txtContent"`
	Username      string    `json:"username"`
	ProfileImgURL string    `json:"profileImgUrl"`
	DatePosted    time.Time `json:"datePosted"`
}
