package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	Citizen   Role = "Citizen"
	Volunteer Role = "Volunteer"
	Admin     Role = "Admin"
)

func (r Role) Valid() bool {
	switch r {
	case Citizen, Volunteer, Admin:
		return true
	}
	return false
}

type User struct {
	ID        primitive.ObjectID `bson:"_id" json:"_id"`
	Name      string             `bson:"name" json:"name"`
	Username  string             `bson:"username" json:"username"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password,omitempty" json:"-"`
	Phone     string             `bson:"phone" json:"phone"`
	Role      Role               `bson:"role" json:"role"`
	Location  string             `bson:"location" json:"location"`
	Bio       string             `bson:"bio" json:"bio"`
	ImageURL  string             `bson:"imageUrl" json:"imageUrl"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Ref returns the identity slice joined onto issues.
func (u *User) Ref() *UserRef {
	return &UserRef{ID: u.ID, Name: u.Name, Username: u.Username, Email: u.Email}
}

func (u *User) HashPassword() error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

func (u *User) ComparePassword(candidate string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(candidate))
	return err == nil
}

// RegisterInput carries a new account.
type RegisterInput struct {
	Name     string `validate:"required,max=50"`
	Username string `validate:"max=50"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
	Phone    string
	Role     Role `validate:"omitempty,role"`
}

// ProfilePatch carries a partial profile edit. Nil fields are left untouched.
type ProfilePatch struct {
	Name     *string `validate:"omitempty,min=1,max=50"`
	Username *string `validate:"omitempty,max=50"`
	Phone    *string
	Location *string
	Bio      *string
}

// Caller is the authenticated identity behind a request.
type Caller struct {
	UserID primitive.ObjectID
	Role   Role
}
