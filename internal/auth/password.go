package auth

import (
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/plantshop/internal/model"
)

// パスワードポリシー。上限72バイトはbcryptの入力上限。
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// HashPassword はパスワードをbcryptでハッシュ化する。
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword はパスワードとハッシュを定数時間で比較する。
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword はパスワードポリシーを検証する。
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return model.NewValidationError(fmt.Sprintf("パスワードは%dバイト以上で入力してください", MinPasswordLength))
	}
	if len(password) > MaxPasswordLength {
		return model.NewValidationError(fmt.Sprintf("パスワードは%dバイト以下で入力してください", MaxPasswordLength))
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return model.NewValidationError("パスワードには英字と数字をそれぞれ1文字以上含めてください")
	}
	return nil
}
