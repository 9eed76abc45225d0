package api

import (
	"net/http"

	"pos-service/internal/models"
	"pos-service/internal/service"

	"github.com/gin-gonic/gin"
)

const saleNotFound = "Sale not found"

// SaleResponse is the body returned for a processed sale
type SaleResponse struct {
	Success       bool         `json:"success"`
	Message       string       `json:"message"`
	Sale          *models.Sale `json:"sale"`
	ReceiptNumber string       `json:"receiptNumber"`
	Replayed      bool         `json:"replayed,omitempty"`
}

// processSale handles checkout
func (h *Handler) processSale(c *gin.Context) {
	var req service.ProcessSaleRequest
	if !bindJSON(c, &req) {
		return
	}
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")

	result, err := h.sales.ProcessSale(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, saleNotFound)
		return
	}

	c.JSON(http.StatusOK, SaleResponse{
		Success:       true,
		Message:       "Sale completed successfully",
		Sale:          result.Sale,
		ReceiptNumber: result.Sale.ReceiptNumber,
		Replayed:      result.Replayed,
	})
}

// quickSearch looks up sellable products for the register
func (h *Handler) quickSearch(c *gin.Context) {
	products, err := h.catalog.SearchProducts(c.Request.Context(), c.Param("query"))
	if err != nil {
		respondError(c, err, productNotFound)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) getSale(c *gin.Context) {
	id, ok := parseID(c, "id", "sale")
	if !ok {
		return
	}

	sale, err := h.sales.GetSale(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, saleNotFound)
		return
	}
	c.JSON(http.StatusOK, sale)
}

func (h *Handler) getSaleByReceipt(c *gin.Context) {
	sale, err := h.sales.GetSaleByReceipt(c.Request.Context(), c.Param("receipt"))
	if err != nil {
		respondError(c, err, saleNotFound)
		return
	}
	c.JSON(http.StatusOK, sale)
}
