package model

// User is an operator identified by a plain login code.
type User struct {
	ID       int64  `gorm:"primaryKey" json:"-"`
	Username string `gorm:"column:username;size:64;not null;uniqueIndex" json:"username"`
	Role     string `gorm:"column:role;size:32;not null" json:"role"`
}

func (User) TableName() string { return "users" }
