package identity

import "time"

// User is a registered account holder.
type User struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash []byte
	TokenVersion int
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// FullName joins first and last name.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Registration is the input to Service.Register.
type Registration struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Credentials request structure.
type Credentials struct {
	Email    string
	Password string
}
