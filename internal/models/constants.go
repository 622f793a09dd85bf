package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

const (
	ModalityRemote   = "Remote"
	ModalityInPerson = "InPerson"
)

const (
	// SlotDurationMinutes номинальная длительность слота.
	SlotDurationMinutes = 60

	// DefaultSessionTTL время жизни сессии формы в Redis (секунды).
	DefaultSessionTTL = 24 * 60 * 60

	// DefaultMaxAdvanceDays максимальный горизонт записи.
	DefaultMaxAdvanceDays = 365

	// DefaultTimezone зона, в которой назначаются встречи.
	DefaultTimezone = "America/Santiago"

	// DateLayout и TimeLayout — форматы, в которых дата и время
	// ходят между формой, хранилищем и календарём.
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)
