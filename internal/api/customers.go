package api

import (
	"net/http"

	"pos-service/internal/service"

	"github.com/gin-gonic/gin"
)

const customerNotFound = "Customer not found"

func (h *Handler) listCustomers(c *gin.Context) {
	customers, err := h.customers.ListCustomers(c.Request.Context())
	if err != nil {
		respondError(c, err, customerNotFound)
		return
	}
	c.JSON(http.StatusOK, customers)
}

func (h *Handler) getCustomer(c *gin.Context) {
	id, ok := parseID(c, "id", "customer")
	if !ok {
		return
	}

	customer, err := h.customers.GetCustomer(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, customerNotFound)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *Handler) searchCustomers(c *gin.Context) {
	customers, err := h.customers.SearchCustomers(c.Request.Context(), c.Param("query"))
	if err != nil {
		respondError(c, err, customerNotFound)
		return
	}
	c.JSON(http.StatusOK, customers)
}

func (h *Handler) createCustomer(c *gin.Context) {
	var req service.CreateCustomerRequest
	if !bindJSON(c, &req) {
		return
	}

	customer, err := h.customers.CreateCustomer(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, customerNotFound)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func (h *Handler) updateCustomer(c *gin.Context) {
	id, ok := parseID(c, "id", "customer")
	if !ok {
		return
	}

	var req service.UpdateCustomerRequest
	if !bindJSON(c, &req) {
		return
	}

	customer, err := h.customers.UpdateCustomer(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, customerNotFound)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *Handler) deleteCustomer(c *gin.Context) {
	id, ok := parseID(c, "id", "customer")
	if !ok {
		return
	}

	if err := h.customers.DeleteCustomer(c.Request.Context(), id); err != nil {
		respondError(c, err, customerNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Customer deleted successfully"})
}

func (h *Handler) adjustLoyalty(c *gin.Context) {
	id, ok := parseID(c, "id", "customer")
	if !ok {
		return
	}

	var req service.AdjustLoyaltyRequest
	if !bindJSON(c, &req) {
		return
	}

	customer, err := h.customers.AdjustLoyalty(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, customerNotFound)
		return
	}
	c.JSON(http.StatusOK, customer)
}
