package models

import (
	"github.com/pkg/errors"
)

// Ожидаемые условия квик-серча. Возвращаются вызывающему как типизированный
// результат, не как аварийная ситуация.
var (
	ErrInvalidTransition = errors.New("недопустимый переход состояния")
	ErrOfferResolved     = errors.New("предложение уже обработано")
	ErrCodeMismatch      = errors.New("неверный код подтверждения")
	ErrCodeExpired       = errors.New("срок действия кода истек")
	ErrUnknownJob        = errors.New("контекст работы не найден")
)
