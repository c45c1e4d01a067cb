package models

import "gorm.io/gorm"

type Post struct {
	gorm.Model
	UserID   uint   `gorm:"column:user_id;not null" json:"user_id"`
	Title    string `gorm:"column:title;size:255;not null" json:"title"`
	Content  string `gorm:"column:content;type:text;not null" json:"content"`
	Likes    int    `gorm:"column:likes;default:0" json:"likes"`
	Dislikes int    `gorm:"column:dislikes;default:0" json:"dislikes"`

	User     *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Comments []Comment `gorm:"foreignKey:PostID" json:"comments,omitempty"`
}

type Comment struct {
	gorm.Model
	UserID  uint   `gorm:"column:user_id;not null" json:"user_id"`
	PostID  uint   `gorm:"column:post_id;not null" json:"post_id"`
	Content string `gorm:"column:content;type:text;not null" json:"content"`
	User    *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
