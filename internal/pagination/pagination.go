// Package pagination нарезает упорядоченную последовательность сущностей на страницы.
package pagination

import (
	"errors"
	"iter"
)

const (
	// DefaultPage и DefaultSize используются, когда клиент не передал параметры.
	DefaultPage = 0
	DefaultSize = 2
)

var (
	ErrInvalidPage = errors.New("page must be greater than or equal to zero")
	ErrInvalidSize = errors.New("size must be greater than zero")
)

// PageRequest — запрос страницы: номер с нуля и размер.
type PageRequest struct {
	Page int `json:"page" form:"page"`
	Size int `json:"size" form:"size"`
}

func DefaultPageRequest() PageRequest {
	return PageRequest{Page: DefaultPage, Size: DefaultSize}
}

// Offset — индекс первого элемента страницы.
func (r PageRequest) Offset() int {
	return r.Page * r.Size
}

// Validate проверяет границы запроса. Сам движок их не требует.
func (r PageRequest) Validate() error {
	if r.Page < 0 {
		return ErrInvalidPage
	}
	if r.Size < 1 {
		return ErrInvalidSize
	}
	return nil
}

// PageResult — одна страница и сведения о всей выборке.
type PageResult[T any] struct {
	Content       []T   `json:"content"`
	PageNumber    int   `json:"pageNumber"`
	PageSize      int   `json:"pageSize"`
	TotalElements int64 `json:"totalElements"`
}

// TotalPages = ceil(TotalElements / PageSize); 0 при PageSize <= 0.
func (p PageResult[T]) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}
	size := int64(p.PageSize)
	return int((p.TotalElements + size - 1) / size)
}

// Window возвращает границы [start, end) страницы в выборке из total элементов.
// Страница за пределами выборки даёт пустое окно.
func Window(req PageRequest, total int) (start, end int) {
	if req.Size <= 0 || total <= 0 {
		return 0, 0
	}
	page := max(req.Page, 0)
	if page > (total-1)/req.Size {
		return total, total
	}
	start = page * req.Size
	end = min(start+req.Size, total)
	return start, end
}

// FromSlice строит страницу из уже загруженной выборки.
func FromSlice[T any](req PageRequest, items []T) PageResult[T] {
	start, end := Window(req, len(items))
	content := make([]T, end-start)
	copy(content, items[start:end])
	return PageResult[T]{
		Content:       content,
		PageNumber:    req.Page,
		PageSize:      req.Size,
		TotalElements: int64(len(items)),
	}
}

// Collect вычитывает последовательность целиком и строит страницу.
// Первая ошибка последовательности прерывает чтение.
func Collect[T any](req PageRequest, seq iter.Seq2[T, error]) (PageResult[T], error) {
	var items []T
	for item, err := range seq {
		if err != nil {
			return PageResult[T]{}, err
		}
		items = append(items, item)
	}
	return FromSlice(req, items), nil
}

// Map переводит содержимое страницы в другой тип, сохраняя метаданные.
func Map[T, U any](page PageResult[T], fn func(T) U) PageResult[U] {
	content := make([]U, len(page.Content))
	for i, item := range page.Content {
		content[i] = fn(item)
	}
	return PageResult[U]{
		Content:       content,
		PageNumber:    page.PageNumber,
		PageSize:      page.PageSize,
		TotalElements: page.TotalElements,
	}
}
