package report

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidPhone indicates a share target that is not a dialable number.
var ErrInvalidPhone = errors.New("invalid phone number")

var phoneRegex = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		return phoneRegex.MatchString(value)
	})
	return v
}

type shareTarget struct {
	Phone   string `validate:"required,phone"`
	Message string `validate:"required"`
}

// ShareLink builds a wa.me link that opens a chat with phone prefilled with message.
// Only the digits of phone are kept.
func ShareLink(phone, message string) (string, error) {
	target := shareTarget{Phone: digitsOnly(phone), Message: message}
	if err := validate.Struct(target); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Field() == "Message" {
			return "", fmt.Errorf("share link: empty message")
		}
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
	}
	text := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return "https://wa.me/" + target.Phone + "?text=" + text, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}
