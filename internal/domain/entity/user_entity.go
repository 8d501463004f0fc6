package entity

import (
	"time"
)

// User is the aggregate root for the user domain: the profile row together
// with its owned role and address collections. Passwords are stored as
// bcrypt hashes in Password.
//
// ID is assigned once at creation (prefix + zero-padded counter) and never
// changes. Email and Mobile are fixed at creation as well; the update flow
// deliberately leaves them untouched.
type User struct {
	ID                    string            `json:"id"`
	Username              string            `json:"username"`
	Fullname              string            `json:"fullname"`
	DOB                   string            `json:"dob"`
	Email                 string            `json:"email"`
	Password              string            `json:"-"`
	Mobile                int64             `json:"mobile"`
	Active                bool              `json:"active"`
	AccountNonExpired     bool              `json:"account_non_expired"`
	AccountNonLocked      bool              `json:"account_non_locked"`
	CredentialsNonExpired bool              `json:"credentials_non_expired"`
	ProfilePic            []byte            `json:"profile_pic,omitempty"`
	Roles                 []Role            `json:"roles"`
	Addresses             map[string]string `json:"addresses"`
	CreatedAt             time.Time         `json:"created_at"`
}

// Role is a child of exactly one user; the numeric id is assigned by
// storage and has no meaning outside that ownership.
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"rolename"`
}

// HasRole reports whether the aggregate carries a role with the given name.
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// CredentialView is the narrow projection served to the authentication
// collaborator: enough to validate a login, nothing more.
type CredentialView struct {
	ID                    string `json:"id"`
	Username              string `json:"username"`
	Password              string `json:"password"`
	Active                bool   `json:"active"`
	AccountNonExpired     bool   `json:"account_non_expired"`
	AccountNonLocked      bool   `json:"account_non_locked"`
	CredentialsNonExpired bool   `json:"credentials_non_expired"`
	Roles                 []Role `json:"roles"`
}
