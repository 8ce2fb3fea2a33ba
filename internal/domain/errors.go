package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound возвращается портом хранилища, если сущности с таким идентификатором нет.
	ErrNotFound = errors.New("entity not found")
	// ErrInvoiceNotFound — счёт для отчёта не найден.
	ErrInvoiceNotFound = fmt.Errorf("invoice: %w", ErrNotFound)
	// ErrReferenceResolution — ссылка счёта (клиент или блюдо) указывает на отсутствующую сущность.
	ErrReferenceResolution = errors.New("reference resolution failed")
	// ErrRender — генератор отчёта вернул ошибку или пустой документ.
	ErrRender = errors.New("report render failed")
	// ErrPersistence — сбой хранилища; всегда пробрасывается наверх.
	ErrPersistence = errors.New("persistence failure")
	// ErrValidation объединяет нарушения инвариантов сущности.
	ErrValidation = errors.New("validation failed")

	// Ошибка короткого имени клиента.
	ErrFirstNameInvalid = errors.New("first name must be at least 3 characters")
	// Ошибка короткой фамилии клиента.
	ErrLastNameInvalid = errors.New("last name must be at least 3 characters")
	// Ошибка отсутствующей даты рождения.
	ErrBirthDateRequired = errors.New("birth date is required")
	// Ошибка короткого названия блюда.
	ErrDishNameInvalid = errors.New("dish name must be at least 3 characters")
	// Ошибка цены блюда вне диапазона [1, 999].
	ErrDishPriceOutOfRange = errors.New("dish price must be between 1 and 999")
	// Ошибка отсутствующего названия меню.
	ErrMenuNameRequired = errors.New("menu name is required")
	// Ошибка отсутствующего клиента в счёте.
	ErrInvoiceClientRequired = errors.New("invoice client id is required")
	// Ошибка пустого счёта.
	ErrInvoiceItemsRequired = errors.New("invoice must contain at least one item")
	// Ошибка количества в позиции (<= 0).
	ErrItemQuantityInvalid = errors.New("item quantity must be greater than zero")
	// Ошибка отсутствующего блюда в позиции.
	ErrItemDishRequired = errors.New("item dish id is required")
)

// ReferenceKind — тип сущности, на которую ссылается счёт.
type ReferenceKind string

const (
	ReferenceClient ReferenceKind = "client"
	ReferenceDish   ReferenceKind = "dish"
)

// ReferenceError описывает неразрешённую ссылку счёта.
// Index заполняется только для блюд и равен позиции в счёте.
type ReferenceError struct {
	Kind  ReferenceKind
	ID    string
	Index int
}

func (e *ReferenceError) Error() string {
	if e.Kind == ReferenceDish {
		return fmt.Sprintf("%s: dish %q at item %d", ErrReferenceResolution, e.ID, e.Index)
	}
	return fmt.Sprintf("%s: %s %q", ErrReferenceResolution, e.Kind, e.ID)
}

func (e *ReferenceError) Unwrap() error {
	return ErrReferenceResolution
}

// ValidationErrors — список нарушений, найденных при валидации одной сущности.
type ValidationErrors []error

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, err := range v {
		msgs = append(msgs, err.Error())
	}
	return ErrValidation.Error() + ": " + strings.Join(msgs, "; ")
}

func (v ValidationErrors) Unwrap() []error {
	return append([]error{ErrValidation}, v...)
}

func validationResult(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return ValidationErrors(errs)
}

// IsNotFound проверяет, что сущность отсутствует в хранилище.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsPersistence проверяет, является ли ошибка сбоем хранилища.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// IsValidation проверяет, является ли ошибка нарушением инвариантов.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
