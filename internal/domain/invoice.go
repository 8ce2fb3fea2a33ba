package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceDetail представляет одну позицию счёта.
type InvoiceDetail struct {
	// Quantity — количество порций блюда.
	Quantity int `json:"quantity" bson:"quantity"`
	// Dish в хранилище содержит только ID; полное блюдо появляется после агрегации.
	Dish Dish `json:"dish" bson:"dish"`
	// Amount = цена × количество, вычисляется при агрегации.
	Amount decimal.Decimal `json:"amount,omitzero" bson:"amount,omitempty"`
}

// LineAmount считает стоимость позиции по текущей цене блюда.
func (d InvoiceDetail) LineAmount() decimal.Decimal {
	return d.Dish.Price.Mul(decimal.NewFromInt(int64(d.Quantity)))
}

// Invoice — счёт клиента.
type Invoice struct {
	ID          string `json:"id" bson:"_id"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
	// Client в хранилище содержит только ID клиента.
	Client    Client          `json:"client" bson:"client"`
	Items     []InvoiceDetail `json:"items" bson:"items"`
	CreatedAt time.Time       `json:"createdAt,omitzero" bson:"createdAt,omitempty"`
	// Total заполняется только агрегатором.
	Total decimal.Decimal `json:"total,omitzero" bson:"total,omitempty"`
}

func (i Invoice) GetID() string { return i.ID }

func (i Invoice) WithID(id string) Invoice {
	i.ID = id
	return i
}

// Clone возвращает копию счёта с собственным слайсом позиций.
func (i Invoice) Clone() Invoice {
	i.Items = slices.Clone(i.Items)
	return i
}

// Validate проверяет ссылки и количества в счёте.
func (i Invoice) Validate() error {
	var errs []error
	if strings.TrimSpace(i.Client.ID) == "" {
		errs = append(errs, ErrInvoiceClientRequired)
	}
	if len(i.Items) == 0 {
		errs = append(errs, ErrInvoiceItemsRequired)
	}
	for _, item := range i.Items {
		if item.Quantity <= 0 {
			errs = append(errs, ErrItemQuantityInvalid)
			break
		}
	}
	for _, item := range i.Items {
		if strings.TrimSpace(item.Dish.ID) == "" {
			errs = append(errs, ErrItemDishRequired)
			break
		}
	}
	return validationResult(errs)
}

// Normalize оставляет в ссылках только идентификаторы и сбрасывает вычисляемые поля.
// Дата выставления проставляется, если её не было.
func (i Invoice) Normalize() Invoice {
	out := Invoice{
		ID:          i.ID,
		Description: i.Description,
		Client:      Client{ID: i.Client.ID},
		Items:       make([]InvoiceDetail, len(i.Items)),
		CreatedAt:   i.CreatedAt,
	}
	for idx, item := range i.Items {
		out.Items[idx] = InvoiceDetail{
			Quantity: item.Quantity,
			Dish:     Dish{ID: item.Dish.ID},
		}
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	return out
}

// MergeStored сохраняет дату выставления исходного счёта.
func (i Invoice) MergeStored(stored Invoice) Invoice {
	i.CreatedAt = stored.CreatedAt
	return i
}

// Resolved собирает заполненную копию счёта.
// dishes[k] соответствует i.Items[k]; исходный счёт не меняется.
func (i Invoice) Resolved(client Client, dishes []Dish) Invoice {
	out := i
	out.Client = client
	out.Items = make([]InvoiceDetail, len(i.Items))
	total := decimal.Zero
	for idx, item := range i.Items {
		item.Dish = dishes[idx]
		item.Amount = item.LineAmount()
		total = total.Add(item.Amount)
		out.Items[idx] = item
	}
	out.Total = total
	return out
}
