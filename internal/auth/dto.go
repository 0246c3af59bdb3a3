package auth

import (
	"regexp"
	"strings"

	"github.com/frahmantamala/research-vault/internal"
	"github.com/frahmantamala/research-vault/internal/core/common/validation"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

type RegisterDTO struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refreshToken"`
}

func (d *RegisterDTO) Normalize() {
	d.Username = strings.TrimSpace(d.Username)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
}

func (d RegisterDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("username", d.Username).
		Required().
		MinLength(3).
		MaxLength(30).
		Matches(usernamePattern, "username may only contain letters, digits and underscores")
	v.Field("email", d.Email).Required().Email()
	v.Field("password", d.Password).Required().MinLength(6)
	return v.Validate()
}

func (d LoginDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required()
	v.Field("password", d.Password).Required()
	return v.Validate()
}

func (d RefreshTokenDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("refreshToken", d.RefreshToken).Required()
	return v.Validate()
}
