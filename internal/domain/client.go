package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MinNameLength — минимальная длина имени клиента, фамилии и названия блюда.
const MinNameLength = 3

// Client — клиент ресторана.
type Client struct {
	ID        string    `json:"id" bson:"_id"`
	FirstName string    `json:"firstName,omitempty" bson:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty" bson:"lastName,omitempty"`
	BirthDate time.Time `json:"birthDate,omitzero" bson:"birthDate,omitempty"`
	PhotoURL  string    `json:"photoUrl,omitempty" bson:"photoUrl,omitempty"`
}

func (c Client) GetID() string { return c.ID }

func (c Client) WithID(id string) Client {
	c.ID = id
	return c
}

// DisplayName собирает имя для отчёта: "Имя Фамилия".
func (c Client) DisplayName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Validate проверяет поля клиента.
func (c Client) Validate() error {
	var errs []error
	if utf8.RuneCountInString(strings.TrimSpace(c.FirstName)) < MinNameLength {
		errs = append(errs, ErrFirstNameInvalid)
	}
	if utf8.RuneCountInString(strings.TrimSpace(c.LastName)) < MinNameLength {
		errs = append(errs, ErrLastNameInvalid)
	}
	if c.BirthDate.IsZero() {
		errs = append(errs, ErrBirthDateRequired)
	}
	return validationResult(errs)
}
