package domain

import "errors"

// Общая таксономия ошибок сервисного слоя. HTTP-слой
// преобразует их в коды через errors.Is.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrForbidden  = errors.New("access denied")
	ErrConflict   = errors.New("conflict")
	ErrNoChanges  = errors.New("no changes detected")
	ErrValidation = errors.New("validation failed")
)
