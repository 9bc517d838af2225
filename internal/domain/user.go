package domain

import (
	"net/mail"
	"strings"
	"time"
)

const (
	MinPasswordLength = 6
	DateLayout        = "2006-01-02"
)

type Preferences struct {
	Newsletter    bool `json:"newsletter"`
	Notifications bool `json:"notifications"`
}

type User struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	PasswordHash   string      `json:"-"`
	Phone          string      `json:"phone"`
	DateOfBirth    string      `json:"dateOfBirth,omitempty"`
	Gender         string      `json:"gender"`
	Address        Address     `json:"address"`
	ProfilePicture string      `json:"profilePicture"`
	Preferences    Preferences `json:"preferences"`
	IsAdmin        bool        `json:"isAdmin"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", Validation("Email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", Validation("Email is invalid")
	}
	return email, nil
}

func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return Validation("Password must be at least 6 characters")
	}
	return nil
}

// NewUser validates a registration. The password hash is computed by the caller.
func NewUser(name, email string, now time.Time) (*User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Validation("Name is required")
	}
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	return &User{
		Name:        name,
		Email:       email,
		Preferences: Preferences{Newsletter: false, Notifications: true},
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

type AddressUpdate struct {
	Street     *string `json:"street"`
	City       *string `json:"city"`
	PostalCode *string `json:"postalCode"`
	Country    *string `json:"country"`
}

type PreferencesUpdate struct {
	Newsletter    *bool `json:"newsletter"`
	Notifications *bool `json:"notifications"`
}

// ProfileUpdate is a partial profile edit: a nil field is left unchanged and
// an empty string clears the field. Name and email cannot be cleared.
type ProfileUpdate struct {
	Name           *string            `json:"name"`
	Email          *string            `json:"email"`
	Password       *string            `json:"password"`
	Phone          *string            `json:"phone"`
	DateOfBirth    *string            `json:"dateOfBirth"`
	Gender         *string            `json:"gender"`
	ProfilePicture *string            `json:"profilePicture"`
	Address        *AddressUpdate     `json:"address"`
	Preferences    *PreferencesUpdate `json:"preferences"`
}

// ApplyProfile applies everything except the password, which needs hashing.
func (u *User) ApplyProfile(p ProfileUpdate, now time.Time) error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return Validation("Name cannot be empty")
		}
		u.Name = name
	}
	if p.Email != nil {
		email, err := NormalizeEmail(*p.Email)
		if err != nil {
			return err
		}
		u.Email = email
	}
	if p.DateOfBirth != nil {
		dob := strings.TrimSpace(*p.DateOfBirth)
		if dob != "" {
			if _, err := time.Parse(DateLayout, dob); err != nil {
				return Validation("Date of birth must be formatted as YYYY-MM-DD")
			}
		}
		u.DateOfBirth = dob
	}
	setString(&u.Phone, p.Phone)
	setString(&u.Gender, p.Gender)
	setString(&u.ProfilePicture, p.ProfilePicture)
	if a := p.Address; a != nil {
		setString(&u.Address.Street, a.Street)
		setString(&u.Address.City, a.City)
		setString(&u.Address.PostalCode, a.PostalCode)
		setString(&u.Address.Country, a.Country)
	}
	if pr := p.Preferences; pr != nil {
		if pr.Newsletter != nil {
			u.Preferences.Newsletter = *pr.Newsletter
		}
		if pr.Notifications != nil {
			u.Preferences.Notifications = *pr.Notifications
		}
	}
	u.UpdatedAt = now
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
