package apierr

import (
	"errors"
	"net/http"

	govalidator "github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tuanvumaihuynh/inventory-service/internal/apperr"
	"github.com/tuanvumaihuynh/inventory-service/pkg/validator"
	"github.com/tuanvumaihuynh/inventory-service/pkg/zerror"
)

const pgUniqueViolation = "23505"

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is the error envelope of the API.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Code    string       `json:"code"`
	Details []FieldError `json:"details,omitempty"`
	// Stack lists the wrapped error chain, outermost first. Only filled in
	// development.
	Stack []string `json:"stack,omitempty"`

	// StatusCode is the status code for the error response.
	StatusCode int `json:"-"`
}

func New(err error) ErrorResponse {
	return errorToErrorResponse(err)
}

// WithStack returns a copy of the response carrying the error chain of err.
func (r ErrorResponse) WithStack(err error) ErrorResponse {
	for e := err; e != nil; e = errors.Unwrap(e) {
		r.Stack = append(r.Stack, e.Error())
	}
	return r
}

var internalServerErr = fromZError(apperr.InternalErr)

func fromZError(zErr zerror.ZError) ErrorResponse {
	return ErrorResponse{
		Success:    false,
		Message:    zErr.Msg(),
		Code:       zErr.Code(),
		StatusCode: ZErrorStatusToHTTPStatus(zErr.Status()),
	}
}

func errorToErrorResponse(err error) ErrorResponse {
	var validationErrs govalidator.ValidationErrors
	hasValidationErrs := errors.As(err, &validationErrs)

	if zErr, ok := zerror.From(err); ok {
		res := fromZError(zErr)
		if hasValidationErrs {
			res.Message = validator.CombinedMessage(validationErrs)
			res.Details = validationDetails(validationErrs)
		}
		return res
	}

	if hasValidationErrs {
		return ErrorResponse{
			Success:    false,
			Message:    validator.CombinedMessage(validationErrs),
			Code:       apperr.ValidationErrorCode,
			Details:    validationDetails(validationErrs),
			StatusCode: http.StatusBadRequest,
		}
	}

	if isDuplicateKeyErr(err) {
		return fromZError(apperr.ProductNameConflictErr)
	}

	return internalServerErr
}

func validationDetails(validationErrs govalidator.ValidationErrors) []FieldError {
	details := make([]FieldError, len(validationErrs))
	for i, fe := range validationErrs {
		details[i] = FieldError{
			Field:   fe.Field(),
			Message: validator.ValidationErrorMessage(fe),
		}
	}
	return details
}

func isDuplicateKeyErr(err error) bool {
	if mongo.IsDuplicateKeyError(err) {
		return true
	}

	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func ZErrorStatusToHTTPStatus(status zerror.Status) int {
	switch status {
	case zerror.StatusBadRequest, zerror.StatusValidationFailed:
		return http.StatusBadRequest
	case zerror.StatusNotFound:
		return http.StatusNotFound
	case zerror.StatusMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case zerror.StatusConflict:
		return http.StatusConflict
	case zerror.StatusTooManyRequests:
		return http.StatusTooManyRequests
	case zerror.StatusServiceUnavailable:
		return http.StatusServiceUnavailable
	case zerror.StatusUnknown, zerror.StatusInternalServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
