package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"catalogdesk/internal/apierror"
	"catalogdesk/internal/infra"
	"catalogdesk/internal/service"
	"catalogdesk/internal/shopapi"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func init() {
	// Field errors are keyed by JSON (or form) name, as the client sent them.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Invalid JSON: "+err.Error()))
		return false
	}
	return validateRequest(c, req)
}

// bindQuery is bindAndValidate for query strings.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Invalid query: "+err.Error()))
		return false
	}
	return validateRequest(c, req)
}

func validateRequest(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string)
		for _, fe := range ves {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// writeServiceError maps service and client errors onto status codes.
// Anything unrecognized is a 500 whose cause is only logged.
func writeServiceError(c *gin.Context, err error) {
	var (
		ve *service.ValidationError
		re *shopapi.RemoteError
	)
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(ve.Fields))
	case errors.Is(err, service.ErrNotFound), shopapi.IsNotFound(err):
		c.JSON(http.StatusNotFound, apierror.New("Not found"))
	case errors.Is(err, service.ErrNoSiblingContent):
		c.JSON(http.StatusNotFound, apierror.WithCode("No related product has content to adopt", "NO_SIBLING_CONTENT"))
	case errors.Is(err, service.ErrNoOrders):
		c.JSON(http.StatusNotFound, apierror.WithCode("No orders for this supplier", "NO_ORDERS"))
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, apierror.New(err.Error()))
	case errors.Is(err, shopapi.ErrTransport):
		c.JSON(http.StatusServiceUnavailable, apierror.WithCode("Shop API unreachable", "NETWORK_ERROR"))
	case errors.Is(err, infra.ErrFeedUnavailable):
		c.JSON(http.StatusServiceUnavailable, apierror.WithCode("Feed unavailable", "FEED_UNAVAILABLE"))
	case errors.As(err, &re):
		c.JSON(http.StatusBadGateway, apierror.WithCode(re.Message, fmt.Sprintf("REMOTE_%d", re.Status)))
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, apierror.New("Internal server error"))
	}
}
