package handler

import (
	"errors"
	"net/http"
	"reflect"

	"brewpos/internal/apierror"
	"brewpos/internal/cart"
	"brewpos/internal/checkout"
	"brewpos/internal/repository"
	"brewpos/internal/service"
	"brewpos/internal/vietqr"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Invalid JSON: "+err.Error()))
		return false
	}
	return runValidation(c, req)
}

// bindQuery is bindAndValidate for query-string filters.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Invalid query: "+err.Error()))
		return false
	}
	return runValidation(c, req)
}

func runValidation(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string)
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// paramID parses the :name path parameter as a UUID.
func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Invalid ID"))
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps service errors to status codes. Anything unknown is
// attached to the context for ErrorHandler and answered with a generic 500.
func respondError(c *gin.Context, err error, fallback string) {
	var (
		stockErr *cart.InsufficientStockError
		limitErr *cart.QuantityLimitError
		stepErr  *checkout.StepError
	)
	switch {
	case errors.As(err, &stockErr):
		available := stockErr.Available
		c.JSON(http.StatusConflict, apierror.StockError{Detail: err.Error(), Ingredient: stockErr.Ingredient, Available: &available})
	case errors.As(err, &limitErr):
		ceiling := limitErr.Max
		c.JSON(http.StatusUnprocessableEntity, apierror.StockError{Detail: err.Error(), Ingredient: limitErr.Ingredient, Available: &ceiling})
	case errors.Is(err, repository.ErrInsufficientStock):
		detail := "Insufficient stock"
		if errors.As(err, &stepErr) && stepErr.Ingredient != "" {
			detail += " of " + stepErr.Ingredient + "; retry after restocking or abandon the checkout"
		}
		c.JSON(http.StatusConflict, apierror.StockError{Detail: detail})
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, repository.ErrSessionNotFound),
		errors.Is(err, cart.ErrLineNotFound):
		c.JSON(http.StatusNotFound, apierror.New(notFoundDetail(err)))
	case isUnprocessable(err):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
	case service.IsCheckoutConflict(err):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case errors.As(err, &stepErr):
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, apierror.New("Checkout stopped at step "+string(stepErr.Step)+"; retry or abandon"))
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, apierror.New(fallback))
	}
}

func isUnprocessable(err error) bool {
	return service.IsValidation(err) ||
		errors.Is(err, checkout.ErrEmptyCart) ||
		errors.Is(err, checkout.ErrNoPaymentProfile) ||
		errors.Is(err, service.ErrNoPendingPayment) ||
		errors.Is(err, cart.ErrUnknownSize) ||
		errors.Is(err, cart.ErrUnpriced) ||
		errors.Is(err, cart.ErrInvalidKey) ||
		errors.Is(err, vietqr.ErrInvalidAmount) ||
		errors.Is(err, vietqr.ErrIncompleteProfile) ||
		errors.Is(err, vietqr.ErrFieldTooLong)
}

func notFoundDetail(err error) string {
	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		return "Checkout session not found"
	case errors.Is(err, cart.ErrLineNotFound):
		return "Cart line not found"
	default:
		return "Not found"
	}
}
