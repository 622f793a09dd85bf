package session

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthRequired — действие требует входа, а токена нет.
	ErrAuthRequired = errors.New("auth required")

	// ErrNotAtSummary — Submit вызван до последнего шага.
	ErrNotAtSummary = errors.New("submit is only allowed from the summary step")

	// ErrAlreadySubmitted — заявка этой сессии уже отправлена.
	ErrAlreadySubmitted = errors.New("booking already submitted")

	// ErrBusy — предыдущая загрузка или отправка ещё не завершилась.
	ErrBusy = errors.New("operation already in flight")
)

// ValidationError — отказ валидатора шага. Не системная ошибка:
// причина показывается пользователю, шаг не меняется.
type ValidationError struct {
	Step   Step
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("step %s: %s", e.Step, e.Reason)
}

// SubmissionError — отказ внешнего приёмника заявок. Message пригоден
// для показа пользователю; при нечитаемом ответе подставляется общий текст.
type SubmissionError struct {
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("submission failed: %s: %v", e.Message, e.Err)
	}
	return "submission failed: " + e.Message
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// GenericSubmissionMessage показывается, когда приёмник не вернул
// осмысленного текста.
const GenericSubmissionMessage = "Hubo un problema con la reserva."
