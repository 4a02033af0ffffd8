package transport

import (
	"strings"

	"github.com/Skotchmaster/storefront/internal/service"
)

type ProductForm struct {
	ProductID   string `form:"productId"`
	Title       string `form:"title"       validate:"required,min=3"`
	ImageURL    string `form:"imageUrl"    validate:"required,url"`
	Price       string `form:"price"       validate:"required,price"`
	Description string `form:"description" validate:"required,min=5,max=500"`
}

func (f *ProductForm) Normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.ImageURL = strings.TrimSpace(f.ImageURL)
	f.Price = strings.TrimSpace(f.Price)
	f.Description = strings.TrimSpace(f.Description)
}

func (f *ProductForm) FieldMessages() map[string]string {
	return map[string]string{
		"title":       "Title must be at least 3 characters long.",
		"imageUrl":    "Please enter a valid Url.",
		"price":       "Please enter a valid Price.",
		"description": "Description must be at least 5 characters long.",
	}
}

// Input converts a validated form. The price is parsed by the same rule the
// validator applied, so the stored value is the one that was checked.
func (f *ProductForm) Input() (service.ProductInput, error) {
	price, ok := ParsePrice(f.Price)
	if !ok {
		return service.ProductInput{}, service.NewValidationError("price", "Please enter a valid Price.")
	}
	return service.ProductInput{
		Title:       f.Title,
		ImageURL:    f.ImageURL,
		Price:       price,
		Description: f.Description,
	}, nil
}

type ProductIDForm struct {
	ProductID string `form:"productId"`
}

type LoginForm struct {
	Email    string `form:"email"    validate:"required,email"`
	Password string `form:"password" validate:"required,min=5"`
}

func (f *LoginForm) Normalize() {
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
}

func (f *LoginForm) FieldMessages() map[string]string {
	return map[string]string{
		"email":    "Please enter a valid email address.",
		"password": "Password has to be valid.",
	}
}

type SignupForm struct {
	Email           string `form:"email"           validate:"required,email"`
	Password        string `form:"password"        validate:"required,min=5,alphanum"`
	ConfirmPassword string `form:"confirmPassword" validate:"eqfield=Password"`
}

func (f *SignupForm) Normalize() {
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
}

func (f *SignupForm) FieldMessages() map[string]string {
	return map[string]string{
		"email":           "Please enter a valid email.",
		"password":        "Please enter a password with only numbers and text and at least 5 characters.",
		"confirmPassword": "Passwords have to match!",
	}
}

type ResetForm struct {
	Email string `form:"email" validate:"required,email"`
}

func (f *ResetForm) Normalize() {
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
}

func (f *ResetForm) FieldMessages() map[string]string {
	return map[string]string{"email": "Please enter a valid email."}
}

type NewPasswordForm struct {
	UserID        string `form:"userId"        validate:"required,numeric"`
	PasswordToken string `form:"passwordToken" validate:"required,hexadecimal"`
	Password      string `form:"password"      validate:"required,min=5,alphanum"`
}

func (f *NewPasswordForm) FieldMessages() map[string]string {
	return map[string]string{
		"userId":        "Invalid reset link.",
		"passwordToken": "Invalid reset link.",
		"password":      "Please enter a password with only numbers and text and at least 5 characters.",
	}
}
