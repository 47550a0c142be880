package users

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/jrsteele09/appo-client/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// RoleType is the kind of account a user signs in as
type RoleType string

const (
	RoleAppAdmin            RoleType = "app-admin"            // Operates the whole platform
	RoleBusinessCenterAdmin RoleType = "businesscenter-admin" // Manages one business center, its staff and services
	RoleBusinessCenter      RoleType = "businesscenter"       // Staff member of a business center
	RoleCustomer            RoleType = "customer"             // Books appointments
)

// Roles lists every valid role
var Roles = []RoleType{RoleAppAdmin, RoleBusinessCenterAdmin, RoleBusinessCenter, RoleCustomer}

func (r RoleType) Valid() bool {
	for _, role := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// BelongsToBusinessCenter reports whether accounts of this role carry a business center ID
func (r RoleType) BelongsToBusinessCenter() bool {
	return r == RoleBusinessCenterAdmin || r == RoleBusinessCenter
}

type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	FirstName        string    `json:"firstName"`
	LastName         string    `json:"lastName"`
	Role             RoleType  `json:"role"`
	IsActive         bool      `json:"isActive"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
	BusinessCenterID string    `json:"businessCenterId,omitempty"` // For business center admins and staff
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Patch is a partial update of a User. Nil fields are left unchanged.
type Patch struct {
	Email            *string    `json:"email,omitempty"`
	FirstName        *string    `json:"firstName,omitempty"`
	LastName         *string    `json:"lastName,omitempty"`
	Role             *RoleType  `json:"role,omitempty"`
	IsActive         *bool      `json:"isActive,omitempty"`
	UpdatedAt        *time.Time `json:"updatedAt,omitempty"`
	BusinessCenterID *string    `json:"businessCenterId,omitempty"`
}

func (p Patch) Empty() bool {
	return p == Patch{}
}

// Apply returns a copy of u with the patch merged in. ID and CreatedAt are never patched.
func (p Patch) Apply(u User) User {
	utils.Assign(&u.Email, p.Email)
	utils.Assign(&u.FirstName, p.FirstName)
	utils.Assign(&u.LastName, p.LastName)
	utils.Assign(&u.Role, p.Role)
	utils.Assign(&u.IsActive, p.IsActive)
	utils.Assign(&u.UpdatedAt, p.UpdatedAt)
	utils.Assign(&u.BusinessCenterID, p.BusinessCenterID)
	return u
}

// Credentials are submitted to sign in
type Credentials struct {
	Email    string   `json:"email"`
	Password string   `json:"password"`
	UserType RoleType `json:"userType"`
}

func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Email) == "" {
		return fmt.Errorf("email is required")
	}
	if c.Password == "" {
		return fmt.Errorf("password is required")
	}
	if !c.UserType.Valid() {
		return fmt.Errorf("unknown user type %q", c.UserType)
	}
	return nil
}

// Registration is submitted to create an account
type Registration struct {
	Email           string   `json:"email"`
	Password        string   `json:"password"`
	ConfirmPassword string   `json:"confirmPassword"`
	FirstName       string   `json:"firstName"`
	LastName        string   `json:"lastName"`
	Phone           string   `json:"phone,omitempty"`
	UserType        RoleType `json:"userType"`
}

func (r Registration) Validate() error {
	if strings.TrimSpace(r.Email) == "" || !strings.Contains(r.Email, "@") {
		return fmt.Errorf("a valid email is required")
	}
	if r.Password != r.ConfirmPassword {
		return fmt.Errorf("passwords do not match")
	}
	if !r.UserType.Valid() {
		return fmt.Errorf("unknown user type %q", r.UserType)
	}
	return ValidatePasswordStrength(r.Password)
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
