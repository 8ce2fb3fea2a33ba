package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	// DishPriceMin и DishPriceMax задают допустимый диапазон цены блюда.
	DishPriceMin = decimal.NewFromInt(1)
	DishPriceMax = decimal.NewFromInt(999)
)

// Dish — блюдо из меню ресторана.
type Dish struct {
	ID     string          `json:"id" bson:"_id"`
	Name   string          `json:"name,omitempty" bson:"name,omitempty"`
	Price  decimal.Decimal `json:"price,omitzero" bson:"price,omitempty"`
	Active bool            `json:"active,omitempty" bson:"active,omitempty"`
}

func (d Dish) GetID() string { return d.ID }

func (d Dish) WithID(id string) Dish {
	d.ID = id
	return d
}

// Validate проверяет название и цену блюда.
func (d Dish) Validate() error {
	var errs []error
	if utf8.RuneCountInString(strings.TrimSpace(d.Name)) < MinNameLength {
		errs = append(errs, ErrDishNameInvalid)
	}
	if d.Price.LessThan(DishPriceMin) || d.Price.GreaterThan(DishPriceMax) {
		errs = append(errs, ErrDishPriceOutOfRange)
	}
	return validationResult(errs)
}
