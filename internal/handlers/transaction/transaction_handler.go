// internal/handlers/transaction/transaction_handler.go
package transaction

import (
	"net/http"

	"vas-billing-service/internal/domain/transaction"
	"vas-billing-service/internal/middleware"
	"vas-billing-service/internal/pkg/response"
	service "vas-billing-service/internal/service/transaction"

	"github.com/gin-gonic/gin"
)

type TransactionHandler struct {
	transactionService *service.TransactionService
}

func NewTransactionHandler(transactionService *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// ListTransactions supports ?type=&status=&startDate=&endDate=.
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	msisdn := middleware.MustGetMSISDN(c)

	var query transaction.ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, "invalid query parameters", err)
		return
	}

	txns, err := h.transactionService.List(c.Request.Context(), msisdn, query)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "transactions retrieved successfully", txns)
}

func (h *TransactionHandler) GetStats(c *gin.Context) {
	msisdn := middleware.MustGetMSISDN(c)

	stats, err := h.transactionService.Stats(c.Request.Context(), msisdn)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "transaction stats retrieved successfully", stats)
}
