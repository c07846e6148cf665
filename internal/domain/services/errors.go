package services

import (
	"errors"
	"fmt"
)

// ErrNoDocument возвращается, когда не задан ни документ, ни источник
var ErrNoDocument = errors.New("no marketplace document given")

// ValidationFailedError документ не прошел проверку; загрузка не начиналась
type ValidationFailedError struct {
	Errors []string
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s)", len(e.Errors))
}

// IsValidationFailed проверяет, что ошибка вызвана непрошедшей проверкой документа
func IsValidationFailed(err error) bool {
	var vf *ValidationFailedError
	return errors.As(err, &vf)
}
