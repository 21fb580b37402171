package infrastructure

import (
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"souq-backend/internal/orders/application"
	"souq-backend/internal/orders/domain"
	"souq-backend/internal/orders/ports"
	"souq-backend/pkg/errors"
	"souq-backend/pkg/middleware"
)

// HTTPHandler handles HTTP requests for orders and payments
type HTTPHandler struct {
	useCase *application.OrderUseCase
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(useCase *application.OrderUseCase) *HTTPHandler {
	return &HTTPHandler{useCase: useCase}
}

// RegisterRoutes registers the order and payment routes. Every route expects
// an authenticated principal; admin-only routes are gated per handler group.
func (h *HTTPHandler) RegisterRoutes(r *gin.RouterGroup) {
	orders := r.Group("/orders")
	{
		orders.POST("", h.CreateOrder)
		orders.GET("", h.ListOrders)
		orders.GET("/:id", h.GetOrder)
		orders.DELETE("/:id", middleware.RequireRole(middleware.RoleAdmin), h.DeleteOrder)
		orders.PATCH("/:id/status", middleware.RequireRole(middleware.RoleAdmin), h.UpdateOrderStatus)
		orders.POST("/:id/complete", middleware.RequireRole(middleware.RoleAdmin), h.CompleteOrder)
	}

	payments := r.Group("/payments")
	{
		payments.POST("", h.InitiatePayment)
		payments.POST("/confirm", h.ConfirmPayment)
	}
}

// OrderItemRequest is one line item in a create request
type OrderItemRequest struct {
	ProductID string  `json:"product_id" binding:"required"`
	SellerID  string  `json:"seller_id" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" binding:"gte=0"`
}

// ShippingAddressRequest is the destination submitted with an order
type ShippingAddressRequest struct {
	FullName       string `json:"full_name" binding:"required"`
	Phone          string `json:"phone" binding:"required"`
	Address        string `json:"address" binding:"required"`
	City           string `json:"city" binding:"required"`
	Region         string `json:"region" binding:"required"`
	AdditionalInfo string `json:"additional_info"`
}

// CreateOrderRequest is the request body for creating an order
type CreateOrderRequest struct {
	Items           []OrderItemRequest     `json:"items" binding:"required,min=1,dive"`
	ShippingAddress ShippingAddressRequest `json:"shipping_address" binding:"required"`
	PaymentMethod   string                 `json:"payment_method" binding:"required"`
	ShippingMethod  string                 `json:"shipping_method" binding:"required"`
	ShippingPrice   float64                `json:"shipping_price" binding:"gte=0"`
	TotalPrice      float64                `json:"total_price" binding:"required,gt=0"`
}

// UpdateStatusRequest is the request body for an administrative status update
type UpdateStatusRequest struct {
	OrderStatus string `json:"order_status" binding:"required"`
}

// InitiatePaymentRequest is the request body for starting a payment
type InitiatePaymentRequest struct {
	OrderID       string  `json:"order_id" binding:"required"`
	PaymentMethod string  `json:"payment_method" binding:"required"`
	TotalPrice    float64 `json:"total_price" binding:"required,gt=0"`
}

// ConfirmPaymentRequest is the request body for confirming a payment
type ConfirmPaymentRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

// OrderItemResponse is one line item in an order response
type OrderItemResponse struct {
	ProductID string  `json:"product_id"`
	SellerID  string  `json:"seller_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`
}

// ShippingAddressResponse echoes the captured destination
type ShippingAddressResponse struct {
	FullName       string `json:"full_name"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	City           string `json:"city"`
	Region         string `json:"region"`
	AdditionalInfo string `json:"additional_info,omitempty"`
}

// OrderResponse is the response body for order operations
type OrderResponse struct {
	ID              string                  `json:"id"`
	OrderNumber     int                     `json:"order_number"`
	UserID          string                  `json:"user_id"`
	Items           []OrderItemResponse     `json:"items"`
	ShippingAddress ShippingAddressResponse `json:"shipping_address"`
	PaymentMethod   string                  `json:"payment_method"`
	ShippingMethod  string                  `json:"shipping_method"`
	ShippingPrice   float64                 `json:"shipping_price"`
	TotalPrice      float64                 `json:"total_price"`
	PaymentStatus   string                  `json:"payment_status"`
	OrderStatus     string                  `json:"order_status"`
	DeliveredAt     string                  `json:"delivered_at,omitempty"`
	CancelledAt     string                  `json:"cancelled_at,omitempty"`
	CreatedAt       string                  `json:"created_at"`
}

// PaymentResponse is the response body for payment initiation
type PaymentResponse struct {
	Order        OrderResponse `json:"order"`
	ClientSecret string        `json:"client_secret,omitempty"`
}

func toCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

func toPrice(cents int64) float64 {
	return float64(cents) / 100
}

func toOrderResponse(order *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemResponse{
			ProductID: item.ProductID,
			SellerID:  item.SellerID,
			Quantity:  item.Quantity,
			UnitPrice: toPrice(item.UnitPriceCents),
			Subtotal:  toPrice(item.SubtotalCents()),
		}
	}

	resp := OrderResponse{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Items:       items,
		ShippingAddress: ShippingAddressResponse{
			FullName:       order.ShippingAddress.FullName,
			Phone:          order.ShippingAddress.Phone,
			Address:        order.ShippingAddress.Address,
			City:           order.ShippingAddress.City,
			Region:         order.ShippingAddress.Region,
			AdditionalInfo: order.ShippingAddress.AdditionalInfo,
		},
		PaymentMethod:  string(order.PaymentMethod),
		ShippingMethod: string(order.ShippingMethod),
		ShippingPrice:  toPrice(order.ShippingCents),
		TotalPrice:     toPrice(order.TotalCents),
		PaymentStatus:  string(order.PaymentStatus),
		OrderStatus:    string(order.OrderStatus),
		CreatedAt:      order.CreatedAt.Format(time.RFC3339),
	}
	if order.DeliveredAt != nil {
		resp.DeliveredAt = order.DeliveredAt.Format(time.RFC3339)
	}
	if order.CancelledAt != nil {
		resp.CancelledAt = order.CancelledAt.Format(time.RFC3339)
	}
	return resp
}

// CreateOrder godoc
// @Summary      Create an order
// @Description  Validates the submitted lines against the catalog and creates the order in state Pending/Pending
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        order  body      CreateOrderRequest  true  "Order"
// @Success      201    {object}  map[string]interface{}
// @Failure      400    {object}  map[string]interface{}
// @Security     BearerAuth
// @Router       /orders [post]
func (h *HTTPHandler) CreateOrder(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.Error(errors.NewUnauthorized("missing principal"))
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	items := make([]application.OrderItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = application.OrderItemInput{
			ProductID:      item.ProductID,
			SellerID:       item.SellerID,
			Quantity:       item.Quantity,
			UnitPriceCents: toCents(item.UnitPrice),
		}
	}

	output, err := h.useCase.CreateOrder(c.Request.Context(), application.CreateOrderInput{
		UserID: principal.ID,
		Items:  items,
		ShippingAddress: domain.ShippingAddress{
			FullName:       req.ShippingAddress.FullName,
			Phone:          req.ShippingAddress.Phone,
			Address:        req.ShippingAddress.Address,
			City:           req.ShippingAddress.City,
			Region:         req.ShippingAddress.Region,
			AdditionalInfo: req.ShippingAddress.AdditionalInfo,
		},
		PaymentMethod:  domain.PaymentMethod(req.PaymentMethod),
		ShippingMethod: domain.ShippingMethod(req.ShippingMethod),
		ShippingCents:  toCents(req.ShippingPrice),
		TotalCents:     toCents(req.TotalPrice),
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data":     toOrderResponse(output.Order),
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// ListOrders godoc
// @Summary      List orders
// @Description  Admins see all orders, optionally filtered; users see their own
// @Tags         orders
// @Produce      json
// @Param        status   query     string  false  "Order status filter"
// @Param        user_id  query     string  false  "User filter (admin only)"
// @Success      200      {object}  map[string]interface{}
// @Security     BearerAuth
// @Router       /orders [get]
func (h *HTTPHandler) ListOrders(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.Error(errors.NewUnauthorized("missing principal"))
		return
	}

	filter := ports.ListFilter{
		Status: domain.OrderStatus(c.Query("status")),
	}
	if principal.Role == middleware.RoleAdmin {
		filter.UserID = c.Query("user_id")
	} else {
		filter.UserID = principal.ID
	}

	orders, err := h.useCase.ListOrders(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	responses := make([]OrderResponse, len(orders))
	for i, order := range orders {
		responses[i] = toOrderResponse(order)
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     responses,
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// GetOrder godoc
// @Summary      Get an order
// @Tags         orders
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Security     BearerAuth
// @Router       /orders/{id} [get]
func (h *HTTPHandler) GetOrder(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.Error(errors.NewUnauthorized("missing principal"))
		return
	}

	order, err := h.useCase.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	if principal.Role != middleware.RoleAdmin && order.UserID != principal.ID {
		c.Error(errors.NewForbidden("order belongs to another user"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     toOrderResponse(order),
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// DeleteOrder godoc
// @Summary      Delete an order
// @Tags         orders
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Security     BearerAuth
// @Router       /orders/{id} [delete]
func (h *HTTPHandler) DeleteOrder(c *gin.Context) {
	if err := h.useCase.DeleteOrder(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     gin.H{"deleted": true},
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// UpdateOrderStatus godoc
// @Summary      Update order status
// @Description  Administrative status override; terminal states refuse further transitions
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id      path      string               true  "Order ID"
// @Param        status  body      UpdateStatusRequest  true  "New status"
// @Success      200     {object}  map[string]interface{}
// @Failure      409     {object}  map[string]interface{}
// @Security     BearerAuth
// @Router       /orders/{id}/status [patch]
func (h *HTTPHandler) UpdateOrderStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	order, err := h.useCase.UpdateOrderStatus(c.Request.Context(), c.Param("id"),
		domain.OrderStatus(req.OrderStatus))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     toOrderResponse(order),
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// CompleteOrder godoc
// @Summary      Complete an order
// @Description  Decrements stock for every line and marks the order delivered, atomically
// @Tags         orders
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]interface{}
// @Failure      412  {object}  map[string]interface{}
// @Security     BearerAuth
// @Router       /orders/{id}/complete [post]
func (h *HTTPHandler) CompleteOrder(c *gin.Context) {
	order, err := h.useCase.CompleteOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     toOrderResponse(order),
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// InitiatePayment godoc
// @Summary      Initiate a payment
// @Description  Card and installment methods obtain a processor intent; cash on delivery moves the order to Processing
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        payment  body      InitiatePaymentRequest  true  "Payment"
// @Success      200      {object}  map[string]interface{}
// @Failure      400      {object}  map[string]interface{}
// @Failure      502      {object}  map[string]interface{}
// @Security     BearerAuth
// @Router       /payments [post]
func (h *HTTPHandler) InitiatePayment(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.Error(errors.NewUnauthorized("missing principal"))
		return
	}

	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	order, err := h.useCase.GetOrder(c.Request.Context(), req.OrderID)
	if err != nil {
		c.Error(err)
		return
	}
	if principal.Role != middleware.RoleAdmin && order.UserID != principal.ID {
		c.Error(errors.NewForbidden("order belongs to another user"))
		return
	}

	output, err := h.useCase.InitiatePayment(c.Request.Context(), application.InitiatePaymentInput{
		OrderID:     req.OrderID,
		Method:      domain.PaymentMethod(req.PaymentMethod),
		AmountCents: toCents(req.TotalPrice),
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": PaymentResponse{
			Order:        toOrderResponse(output.Order),
			ClientSecret: output.ClientSecret,
		},
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// ConfirmPayment godoc
// @Summary      Confirm a payment
// @Description  Marks the order paid and settles every seller's share in one transaction
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        confirmation  body      ConfirmPaymentRequest  true  "Confirmation"
// @Success      200           {object}  map[string]interface{}
// @Failure      409           {object}  map[string]interface{}
// @Security     BearerAuth
// @Router       /payments/confirm [post]
func (h *HTTPHandler) ConfirmPayment(c *gin.Context) {
	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	order, err := h.useCase.ConfirmPayment(c.Request.Context(), req.OrderID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     toOrderResponse(order),
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}
