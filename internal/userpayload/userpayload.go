package userpayload

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/SergeyParamoshkin/newsportal/internal/model"
)

var validate = validator.New()

//--
// Request and Response payloads for the auth api.
//--

// UserPayload renders a user. The password hash is never serialized.
type UserPayload struct {
	*model.User
}

func NewUserPayloadResponse(user *model.User) *UserPayload {
	return &UserPayload{User: user}
}

func (u *UserPayload) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User  *UserPayload `json:"user"`
	Token string       `json:"token"`
}

func NewAuthResponse(user *model.User, token string) *AuthResponse {
	return &AuthResponse{User: NewUserPayloadResponse(user), Token: token}
}

func (a *AuthResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return a.User.Render(w, r)
}

// RegisterRequest is the registration payload. bcrypt ignores input past 72
// bytes, so longer passwords are refused.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name,omitempty" validate:"max=255"`
}

// Bind on RegisterRequest will run after the unmarshalling is complete, its
// a good time to focus some post-processing after a decoding.
func (u *RegisterRequest) Bind(r *http.Request) error {
	u.Email = strings.TrimSpace(u.Email)
	u.Name = strings.TrimSpace(u.Name)

	return validate.Struct(u)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (u *LoginRequest) Bind(r *http.Request) error {
	u.Email = strings.TrimSpace(u.Email)

	return validate.Struct(u)
}

// ProfileRequest changes the current user's name and/or password.
type ProfileRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=255"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`
}

func (u *ProfileRequest) Bind(r *http.Request) error {
	if u.Name == nil && u.Password == nil {
		return errors.New("nothing to update")
	}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		u.Name = &name
	}

	return validate.Struct(u)
}
