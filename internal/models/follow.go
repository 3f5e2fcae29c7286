package models

import (
	"time"
)

// Follow is a directed edge: FollowerID follows FollowedID.
type Follow struct {
	FollowerID uint      `gorm:"primaryKey;autoIncrement:false" json:"followerId"`
	FollowedID uint      `gorm:"primaryKey;autoIncrement:false;index" json:"followedId"`
	Follower   User      `gorm:"foreignKey:FollowerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Followed   User      `gorm:"foreignKey:FollowedID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (Follow) TableName() string { return "follow" }
