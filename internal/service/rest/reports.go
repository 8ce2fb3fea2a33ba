package rest

import (
	"context"
	"mime"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const contentTypePDF = "application/pdf"

// ReportGenerator строит PDF-отчёт по счёту. false без ошибки — отчёта нет.
type ReportGenerator interface {
	GenerateReport(ctx context.Context, invoiceID string) ([]byte, bool, error)
}

// ReportHandler отдаёт отчёты по счетам.
type ReportHandler struct {
	generator ReportGenerator
	timeout   time.Duration
}

// NewReportHandler создаёт обработчик. timeout <= 0 отключает ограничение.
func NewReportHandler(generator ReportGenerator, timeout time.Duration) *ReportHandler {
	return &ReportHandler{generator: generator, timeout: timeout}
}

// Generate handles GET /invoices/generateReport/:id
func (h *ReportHandler) Generate(c *gin.Context) {
	id := c.Param("id")

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	out, ok, err := h.generator.GenerateReport(ctx, id)
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}
	if !ok {
		abortNotFound(c, "invoice report", id)
		return
	}

	c.Header("Content-Disposition", contentDisposition("invoice-"+id+".pdf"))
	c.Data(http.StatusOK, contentTypePDF, out)
}

// contentDisposition экранирует имя файла: id приходит из пути запроса.
func contentDisposition(filename string) string {
	if v := mime.FormatMediaType("inline", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "inline"
}
