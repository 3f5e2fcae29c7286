package models

import (
	"time"
)

type Post struct {
	ID         uint      `gorm:"column:post_id;primaryKey" json:"postId"`
	UserID     uint      `gorm:"not null;index" json:"userId"`
	User       User      `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	TxtContent string    `gorm:"column:txt_content;type:text;not null" json:"txtContent"`
	ImgURL     string    `gorm:"column:img_url" json:"imgUrl"` // Optional
	IsPrivate  bool      `gorm:"not null;default:false" json:"isPrivate"`
	DatePosted time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"datePosted"`
}

func (Post) TableName() string { return "post" }

// PostView 带有查看者相关字段和聚合计数的帖子，非数据库实体
type PostView struct {
	PostID        uint      `json:"postId"`
	UserID        uint      `json:"userId"`
	Text          string    `json:"text"`
	ImgURL        string    `json:"imgUrl"`
	IsPrivate     bool      `json:"isPrivate"`
	Username      string    `json:"username"`
	ProfileImgURL string    `json:"profileImgUrl"`
	Timestamp     time.Time `json:"timestamp"`
	IsLiked       bool      `json:"isLiked"`
	NumLikes      int64     `json:"numLikes"`
	NumComments   int64     `json:"numComments"`
	IsBookmarked  bool      `json:"isBookmarked"`
}
