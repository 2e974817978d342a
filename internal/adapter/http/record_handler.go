package http

import (
	"context"
	"net/http"

	"github.com/diillson/calorie-api-go/internal/app/record"
	"github.com/diillson/calorie-api-go/internal/domain/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecordService é o motor de registros visto pelos handlers
type RecordService interface {
	Create(ctx context.Context, caller model.Identity, in record.CreateInput) (string, error)
	Get(ctx context.Context, caller model.Identity, id string) (*model.Record, error)
	List(ctx context.Context, caller model.Identity, in record.ListInput) ([]*model.Record, error)
	Update(ctx context.Context, caller model.Identity, id string, in record.UpdateInput) error
	Delete(ctx context.Context, caller model.Identity, id string) error
}

// RecordHandler implementa os handlers de /records
type RecordHandler struct {
	records  RecordService
	logger   *zap.Logger
	maxLimit int
}

// NewRecordHandler cria um novo handler de registros
func NewRecordHandler(records RecordService, maxLimit int, logger *zap.Logger) *RecordHandler {
	return &RecordHandler{
		records:  records,
		logger:   logger,
		maxLimit: maxLimit,
	}
}

type createRecordRequest struct {
	UserEmail        string `json:"userEmail" validate:"omitempty,email,max=100"`
	Date             string `json:"date" validate:"required,datetime=2006-01-02"`
	Time             string `json:"time" validate:"required,datetime=15:04:05"`
	Text             string `json:"text" validate:"required,max=255"`
	NumberOfCalories *int   `json:"numberOfCalories" validate:"omitempty,min=0,max=100000"`
}

type updateRecordRequest struct {
	Date             *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time             *string `json:"time" validate:"omitempty,datetime=15:04:05"`
	Text             *string `json:"text" validate:"omitempty,min=1,max=255"`
	NumberOfCalories *int    `json:"numberOfCalories" validate:"omitempty,min=0,max=100000"`
}

// Create registra uma refeição; sem numberOfCalories o estimador é consultado
func (h *RecordHandler) Create(c *gin.Context) {
	identity, err := caller(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req createRecordRequest
	if err := bind(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	id, err := h.records.Create(c.Request.Context(), identity, record.CreateInput{
		UserEmail:        req.UserEmail,
		Date:             req.Date,
		Time:             req.Time,
		Text:             req.Text,
		NumberOfCalories: req.NumberOfCalories,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	done(c, http.StatusCreated, gin.H{"id": id})
}

// List lista os registros visíveis ao chamador
func (h *RecordHandler) List(c *gin.Context) {
	identity, err := caller(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	limit, skip, err := paging(c, h.maxLimit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	records, err := h.records.List(c.Request.Context(), identity, record.ListInput{
		Filter:    c.Query("filter"),
		Limit:     limit,
		Skip:      skip,
		UserEmail: c.Query("userEmail"),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// Get devolve um registro
func (h *RecordHandler) Get(c *gin.Context) {
	identity, err := caller(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	r, err := h.records.Get(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// Update altera um registro
func (h *RecordHandler) Update(c *gin.Context) {
	identity, err := caller(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req updateRecordRequest
	if err := bind(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	err = h.records.Update(c.Request.Context(), identity, c.Param("id"), record.UpdateInput{
		Date:             req.Date,
		Time:             req.Time,
		Text:             req.Text,
		NumberOfCalories: req.NumberOfCalories,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	done(c, http.StatusOK, nil)
}

// Delete remove um registro
func (h *RecordHandler) Delete(c *gin.Context) {
	identity, err := caller(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.records.Delete(c.Request.Context(), identity, c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	done(c, http.StatusOK, nil)
}
