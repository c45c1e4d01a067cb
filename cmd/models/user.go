package models

import (
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Username       string `gorm:"column:username;size:80;not null;uniqueIndex" json:"username"`
	Email          string `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
	PasswordHash   string `gorm:"column:password_hash;size:255;not null" json:"-"`
	Address        string `gorm:"column:address;size:255" json:"address,omitempty"`
	Phone          string `gorm:"column:phone;size:20" json:"phone,omitempty"`
	ProfilePicture string `gorm:"column:profile_picture;size:255" json:"profile_picture,omitempty"`

	Posts    []Post    `gorm:"foreignKey:UserID" json:"posts,omitempty"`
	Comments []Comment `gorm:"foreignKey:UserID" json:"comments,omitempty"`
}

// Follow is one row per follower -> followed edge. The pair is unique so a
// repeated follow is a no-op at the persistence layer; self-follows are
// rejected in the handler before a row is ever written.
type Follow struct {
	gorm.Model
	FollowerID uint  `gorm:"column:follower_id;not null;uniqueIndex:idx_follower_followed" json:"follower_id"`
	FollowedID uint  `gorm:"column:followed_id;not null;uniqueIndex:idx_follower_followed" json:"followed_id"`
	Follower   *User `gorm:"foreignKey:FollowerID" json:"follower,omitempty"`
	Followed   *User `gorm:"foreignKey:FollowedID" json:"followed,omitempty"`
}

func (Follow) TableName() string {
	return "follows"
}
