package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/chachabrian/rideon-backend/internal/identity"
	"github.com/chachabrian/rideon-backend/internal/middleware"
	"github.com/chachabrian/rideon-backend/internal/ratings"
	"github.com/chachabrian/rideon-backend/internal/rides"
	"github.com/chachabrian/rideon-backend/internal/services"
	"github.com/chachabrian/rideon-backend/internal/verification"
	apperrors "github.com/chachabrian/rideon-backend/pkg/errors"
	"github.com/chachabrian/rideon-backend/pkg/logger"
	"github.com/chachabrian/rideon-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Dependencies is everything the HTTP layer talks to
type Dependencies struct {
	DB           *gorm.DB
	Redis        *redis.Client
	Identity     *identity.Service
	Verification *verification.Service
	Rides        *rides.Service
	Ratings      *ratings.Service
	Fare         *utils.FareCalculator
	Tokens       *utils.TokenManager
	Hub          *services.Hub
	CookieSecure bool
	Log          *logger.Logger
}

var (
	registerOnce sync.Once
	registerErr  error
)

// registerValidators reports validation failures under JSON field names and
// adds the "phone" tag
func registerValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		if err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return utils.ValidPhoneNumber(fl.Field().String())
		}); err != nil {
			registerErr = fmt.Errorf("register phone validator: %w", err)
		}
	})
	return registerErr
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "phone":
		return "Phone number must be in format: '+999999999'. Up to 15 digits allowed."
	case "len":
		return fmt.Sprintf("Ensure this field has exactly %s characters.", fe.Param())
	case "numeric":
		return "Enter digits only."
	case "oneof":
		return fmt.Sprintf("Must be one of: %s.", fe.Param())
	case "min", "gte":
		return fmt.Sprintf("Ensure this value is at least %s.", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("Ensure this value is at most %s.", fe.Param())
	}
	return "Invalid value."
}

// bindJSON decodes the body into dst. On failure it writes the error response
// and returns false.
func bindJSON(c *gin.Context, dst interface{}) bool {
	return bindWith(c, dst, binding.JSON)
}

func bindQuery(c *gin.Context, dst interface{}) bool {
	return bindWith(c, dst, binding.Query)
}

func bindWith(c *gin.Context, dst interface{}, b binding.Binding) bool {
	err := c.ShouldBindWith(dst, b)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := apperrors.FieldErrors{}
		for _, fe := range verrs {
			fields.Add(fe.Field(), fieldMessage(fe))
		}
		middleware.RespondError(c, fields.Err("Invalid input"))
		return false
	}
	middleware.RespondError(c, apperrors.BadRequest("Invalid request body", err))
	return false
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		middleware.RespondError(c, apperrors.NotFound("Not found", nil))
		return 0, false
	}
	return uint(id), true
}
