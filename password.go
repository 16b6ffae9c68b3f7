package goRecovery

import (
	"fmt"

	"github.com/MrEthical07/goRecovery/internal"
)

// GeneratePassword returns a random password suitable for handing to a user,
// for example as a new default password. It uses crypto/rand and mixes lower
// case, upper case and digits. length must be between the policy minimum
// (6 by default) and 128.
func GeneratePassword(length int) (string, error) {
	if length < defaultMinPasswordLength || length > maxGeneratedLength {
		return "", fmt.Errorf("password length must be between %d and %d", defaultMinPasswordLength, maxGeneratedLength)
	}
	return internal.NewPassword(length)
}

// GeneratePassword returns a password of the configured generator length.
func (f *Flow) GeneratePassword() (string, error) {
	length := f.config.Generator.Length
	if length < f.config.Policy.MinLength {
		length = f.config.Policy.MinLength
	}
	if length > maxGeneratedLength {
		return "", fmt.Errorf("password length must not exceed %d", maxGeneratedLength)
	}
	return internal.NewPassword(length)
}
