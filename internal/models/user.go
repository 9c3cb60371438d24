package models

type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleIndustry UserRole = "industry"
	RoleTeacher  UserRole = "teacher"
	RoleStudent  UserRole = "student"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleIndustry, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

type User struct {
	Model
	Username     string   `gorm:"uniqueIndex;size:100;not null" json:"username"`
	PasswordHash string   `gorm:"not null" json:"-"`
	Role         UserRole `gorm:"type:varchar(20);not null" json:"role"`
	University   string   `gorm:"size:255;index" json:"university,omitempty"` // teacher, student
	Company      string   `gorm:"size:255" json:"company,omitempty"`          // industry
}

// Actor is the caller identity every authorization check works with.
type Actor struct {
	ID         string   `json:"id"`
	Role       UserRole `json:"role"`
	University string   `json:"university,omitempty"`
	Company    string   `json:"company,omitempty"`
}

func (u User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role, University: u.University, Company: u.Company}
}
