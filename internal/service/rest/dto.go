package rest

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/rms/internal/domain"
)

// BirthDateLayout — формат даты рождения в API.
const BirthDateLayout = "2006-01-02"

// ErrorResponse — тело ответа с ошибкой.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// ClientDTO — клиент в представлении API.
type ClientDTO struct {
	ID              string `json:"id,omitempty"`
	NameClient      string `json:"nameClient" binding:"required,min=3"`
	SurnameClient   string `json:"surnameClient" binding:"required,min=3"`
	BirthDateClient string `json:"birthDateClient" binding:"required,datetime=2006-01-02"`
	URLPhotoClient  string `json:"urlPhotoClient,omitempty"`
}

// DishDTO — блюдо в представлении API.
type DishDTO struct {
	ID         string   `json:"id,omitempty"`
	NameDish   string   `json:"nameDish" binding:"required,min=3"`
	PriceDish  *float64 `json:"priceDish" binding:"required,min=1,max=999"`
	StatusDish *bool    `json:"statusDish" binding:"required"`
}

// MenuDTO — пункт меню в представлении API.
type MenuDTO struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name" binding:"required"`
	Icon string `json:"icon,omitempty"`
	URL  string `json:"url,omitempty"`
}

// InvoiceClientDTO — ссылка счёта на клиента.
type InvoiceClientDTO struct {
	ID            string `json:"id" binding:"required"`
	NameClient    string `json:"nameClient,omitempty"`
	SurnameClient string `json:"surnameClient,omitempty"`
}

// InvoiceDishDTO — ссылка позиции на блюдо.
type InvoiceDishDTO struct {
	ID        string   `json:"id" binding:"required"`
	NameDish  string   `json:"nameDish,omitempty"`
	PriceDish *float64 `json:"priceDish,omitempty"`
}

// InvoiceDetailDTO — позиция счёта.
type InvoiceDetailDTO struct {
	Quantity int            `json:"quantity" binding:"required,min=1"`
	Dish     InvoiceDishDTO `json:"dish"`
}

// InvoiceDTO — счёт в представлении API.
type InvoiceDTO struct {
	ID          string             `json:"id,omitempty"`
	Description string             `json:"description,omitempty"`
	Client      InvoiceClientDTO   `json:"client"`
	Items       []InvoiceDetailDTO `json:"items" binding:"required,min=1,dive"`
	// CreatedAt выставляет сервер; во входящих запросах игнорируется.
	CreatedAt   time.Time          `json:"createdAt,omitzero"`
}

func toClientDTO(c domain.Client) ClientDTO {
	dto := ClientDTO{
		ID:             c.ID,
		NameClient:     c.FirstName,
		SurnameClient:  c.LastName,
		URLPhotoClient: c.PhotoURL,
	}
	if !c.BirthDate.IsZero() {
		dto.BirthDateClient = c.BirthDate.Format(BirthDateLayout)
	}
	return dto
}

func fromClientDTO(dto ClientDTO) (domain.Client, error) {
	birthDate, err := time.Parse(BirthDateLayout, dto.BirthDateClient)
	if err != nil {
		return domain.Client{}, fmt.Errorf("%w: birthDateClient: %w", domain.ErrValidation, err)
	}
	return domain.Client{
		ID:        dto.ID,
		FirstName: dto.NameClient,
		LastName:  dto.SurnameClient,
		BirthDate: birthDate,
		PhotoURL:  dto.URLPhotoClient,
	}, nil
}

func toDishDTO(d domain.Dish) DishDTO {
	price := d.Price.InexactFloat64()
	active := d.Active
	return DishDTO{
		ID:         d.ID,
		NameDish:   d.Name,
		PriceDish:  &price,
		StatusDish: &active,
	}
}

func fromDishDTO(dto DishDTO) (domain.Dish, error) {
	dish := domain.Dish{ID: dto.ID, Name: dto.NameDish}
	if dto.PriceDish != nil {
		dish.Price = decimal.NewFromFloat(*dto.PriceDish)
	}
	if dto.StatusDish != nil {
		dish.Active = *dto.StatusDish
	}
	return dish, nil
}

func toMenuDTO(m domain.Menu) MenuDTO {
	return MenuDTO{ID: m.ID, Name: m.Name, Icon: m.Icon, URL: m.URL}
}

func fromMenuDTO(dto MenuDTO) (domain.Menu, error) {
	return domain.Menu{ID: dto.ID, Name: dto.Name, Icon: dto.Icon, URL: dto.URL}, nil
}

func toInvoiceDTO(inv domain.Invoice) InvoiceDTO {
	dto := InvoiceDTO{
		ID:          inv.ID,
		Description: inv.Description,
		Client: InvoiceClientDTO{
			ID:            inv.Client.ID,
			NameClient:    inv.Client.FirstName,
			SurnameClient: inv.Client.LastName,
		},
		Items:     make([]InvoiceDetailDTO, len(inv.Items)),
		CreatedAt: inv.CreatedAt,
	}
	for i, item := range inv.Items {
		dish := InvoiceDishDTO{ID: item.Dish.ID, NameDish: item.Dish.Name}
		if !item.Dish.Price.IsZero() {
			price := item.Dish.Price.InexactFloat64()
			dish.PriceDish = &price
		}
		dto.Items[i] = InvoiceDetailDTO{Quantity: item.Quantity, Dish: dish}
	}
	return dto
}

// fromInvoiceDTO переносит только ссылки: имена клиента и блюд сервис всё равно отбросит.
func fromInvoiceDTO(dto InvoiceDTO) (domain.Invoice, error) {
	inv := domain.Invoice{
		ID:          dto.ID,
		Description: dto.Description,
		Client:      domain.Client{ID: dto.Client.ID},
		Items:       make([]domain.InvoiceDetail, len(dto.Items)),
	}
	for i, item := range dto.Items {
		inv.Items[i] = domain.InvoiceDetail{
			Quantity: item.Quantity,
			Dish:     domain.Dish{ID: item.Dish.ID},
		}
	}
	return inv, nil
}
