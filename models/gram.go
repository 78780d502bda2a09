package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Gram is a posted message with a picture. UserID is fixed at creation.
type Gram struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Message   string    `gorm:"type:text" json:"message"`
	Picture   string    `gorm:"size:512" json:"picture"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate reports every rule the gram currently breaks
func (g *Gram) Validate() error {
	var errs ValidationErrors
	if strings.TrimSpace(g.Message) == "" {
		errs = append(errs, "Message can't be blank")
	}
	if g.Picture == "" {
		errs = append(errs, "Picture can't be blank")
	}
	if g.UserID == 0 {
		errs = append(errs, "User must exist")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// BeforeSave refuses to write an invalid gram
func (g *Gram) BeforeSave(tx *gorm.DB) error {
	return g.Validate()
}

// OwnedBy reports whether user is the gram's owner
func (g *Gram) OwnedBy(user *User) bool {
	return user != nil && user.ID != 0 && g.UserID == user.ID
}
