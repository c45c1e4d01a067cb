package models

import "gorm.io/gorm"

// ContactMessage is write-only: the contact form creates rows, nothing in the
// application reads them back.
type ContactMessage struct {
	gorm.Model
	Name    string `gorm:"column:name;size:255;not null" json:"name"`
	Email   string `gorm:"column:email;size:255;not null" json:"email"`
	Message string `gorm:"column:message;type:text;not null" json:"message"`
}

func (ContactMessage) TableName() string {
	return "contact_messages"
}
