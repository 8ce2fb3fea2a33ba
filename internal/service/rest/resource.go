package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/rms/internal/domain"
	"github.com/vladislavdragonenkov/rms/internal/pagination"
	"github.com/vladislavdragonenkov/rms/internal/service/crud"
)

// Resource публикует CRUD-сервис одного типа сущностей как REST-ресурс.
// D — DTO, в котором сущность приходит и уходит по HTTP.
type Resource[T domain.Entity[T, string], D any] struct {
	kind    domain.EntityKind
	service *crud.Service[T, string]
	toDTO   func(T) D
	fromDTO func(D) (T, error)
}

// NewResource создаёт ресурс.
func NewResource[T domain.Entity[T, string], D any](
	kind domain.EntityKind,
	service *crud.Service[T, string],
	toDTO func(T) D,
	fromDTO func(D) (T, error),
) *Resource[T, D] {
	return &Resource[T, D]{
		kind:    kind,
		service: service,
		toDTO:   toDTO,
		fromDTO: fromDTO,
	}
}

// Register вешает маршруты ресурса на group.
func (r *Resource[T, D]) Register(group gin.IRoutes) {
	group.GET("", r.List)
	group.GET("/pageable", r.Page)
	group.GET("/:id", r.Get)
	group.POST("", r.Create)
	group.PUT("/:id", r.Update)
	group.DELETE("/:id", r.Delete)
}

// List handles GET /{kind}
func (r *Resource[T, D]) List(c *gin.Context) {
	items := make([]D, 0)
	for entity, err := range r.service.FindAll(c.Request.Context()) {
		if err != nil {
			abortWithError(c, statusFor(err), err)
			return
		}
		items = append(items, r.toDTO(entity))
	}
	c.JSON(http.StatusOK, items)
}

// Get handles GET /{kind}/:id
func (r *Resource[T, D]) Get(c *gin.Context) {
	id := c.Param("id")
	entity, found, err := r.service.FindByID(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}
	if !found {
		abortNotFound(c, string(r.kind), id)
		return
	}
	c.JSON(http.StatusOK, r.toDTO(entity))
}

// Create handles POST /{kind}
func (r *Resource[T, D]) Create(c *gin.Context) {
	entity, ok := r.bind(c)
	if !ok {
		return
	}
	// ID назначает хранилище.
	entity = entity.WithID("")

	saved, err := r.service.Save(c.Request.Context(), entity)
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}
	c.Header("Location", c.Request.URL.Path+"/"+saved.GetID())
	c.JSON(http.StatusCreated, r.toDTO(saved))
}

// Update handles PUT /{kind}/:id
func (r *Resource[T, D]) Update(c *gin.Context) {
	id := c.Param("id")
	entity, ok := r.bind(c)
	if !ok {
		return
	}

	updated, found, err := r.service.Update(c.Request.Context(), id, entity)
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}
	if !found {
		abortNotFound(c, string(r.kind), id)
		return
	}
	c.JSON(http.StatusOK, r.toDTO(updated))
}

// Delete handles DELETE /{kind}/:id
func (r *Resource[T, D]) Delete(c *gin.Context) {
	id := c.Param("id")
	deleted, err := r.service.Delete(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}
	if !deleted {
		abortNotFound(c, string(r.kind), id)
		return
	}
	c.Status(http.StatusNoContent)
}

// Page handles GET /{kind}/pageable?page=0&size=2
func (r *Resource[T, D]) Page(c *gin.Context) {
	req := pagination.DefaultPageRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if err := req.Validate(); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	page, err := r.service.GetPage(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, pagination.Map(page, r.toDTO))
}

func (r *Resource[T, D]) bind(c *gin.Context) (T, bool) {
	var zero T
	var dto D
	if err := c.ShouldBindJSON(&dto); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return zero, false
	}
	entity, err := r.fromDTO(dto)
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return zero, false
	}
	return entity, true
}
