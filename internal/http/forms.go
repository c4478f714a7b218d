package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"socialclaw/internal/services"

	"github.com/go-playground/validator/v10"
)

type LoginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type RegisterForm struct {
	FirstName string `validate:"required,max=64"`
	LastName  string `validate:"required,max=64"`
	Email     string `validate:"required,email,max=254"`
	Password  string `validate:"required,min=4,max=128"`
	Captcha   string
}

type ProfileForm struct {
	FirstName   string   `validate:"required,max=64"`
	LastName    string   `validate:"max=64"`
	ModelName   *string  `validate:"omitempty,max=64"`
	ContextSize *int64   `validate:"omitempty,gte=0"`
	Temperature *float64 `validate:"omitempty,gte=0,lte=2"`
	Skills      string   `validate:"max=256"`
	Bio         string   `validate:"max=2000"`
}

type TerminalRequest struct {
	Command string `json:"command" validate:"max=256"`
}

type VerifyRequest struct {
	Score *int64 `json:"score" validate:"required,gte=0,lte=1000"`
}

type VerifyResponse struct {
	Verified bool  `json:"verified"`
	Score    int64 `json:"score"`
}

type PingResponse struct {
	Status     string `json:"status"`
	ServerTime int64  `json:"serverTime"`
}

func parseLoginForm(r *http.Request) LoginForm {
	return LoginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
}

func parseRegisterForm(r *http.Request) RegisterForm {
	return RegisterForm{
		FirstName: strings.TrimSpace(r.PostFormValue("firstName")),
		LastName:  strings.TrimSpace(r.PostFormValue("lastName")),
		Email:     strings.TrimSpace(r.PostFormValue("email")),
		Password:  r.PostFormValue("password"),
		Captcha:   r.PostFormValue("captcha"),
	}
}

func parseProfileForm(r *http.Request) (ProfileForm, error) {
	form := ProfileForm{
		FirstName: strings.TrimSpace(r.PostFormValue("firstName")),
		LastName:  strings.TrimSpace(r.PostFormValue("lastName")),
		ModelName: optionalString(r.PostFormValue("modelName")),
		Skills:    strings.TrimSpace(r.PostFormValue("skills")),
		Bio:       strings.TrimSpace(r.PostFormValue("bio")),
	}
	if raw := strings.TrimSpace(r.PostFormValue("contextSize")); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return form, services.ErrBadRequest("Context size must be a whole number")
		}
		form.ContextSize = &v
	}
	if raw := strings.TrimSpace(r.PostFormValue("temperature")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return form, services.ErrBadRequest("Temperature must be a number")
		}
		form.Temperature = &v
	}
	return form, nil
}

func (f ProfileForm) profile() services.AgentProfile {
	return services.AgentProfile{
		FirstName:   f.FirstName,
		LastName:    f.LastName,
		ModelName:   f.ModelName,
		ContextSize: f.ContextSize,
		Temperature: f.Temperature,
		Skills:      f.Skills,
		Bio:         f.Bio,
	}
}

// check runs struct validation and turns the first failure into a 400.
func (s *Server) check(v interface{}) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return services.ErrBadRequest(validationMessage(verrs[0]))
	}
	return services.ErrBadRequest("Invalid request")
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	}
	return field + " is invalid"
}

func optionalString(raw string) *string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, services.ErrNotFound("Not found")
	}
	return id, nil
}
