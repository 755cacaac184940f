package store

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/thereayou/cipherchat/internal/models"
)

// MinPasswordLength is counted in characters, not bytes.
const MinPasswordLength = 8

var roomIDPattern = regexp.MustCompile(`^[0-9]{5}$`)

// ValidateRoomID checks the external room id format: exactly five digits.
func ValidateRoomID(id string) error {
	if !roomIDPattern.MatchString(id) {
		return fmt.Errorf("%w: room id must be exactly 5 digits", models.ErrValidation)
	}
	return nil
}

func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", models.ErrValidation, MinPasswordLength)
	}
	return nil
}
