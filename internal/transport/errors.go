package transport

import (
	"errors"
	"net/http"

	"inventory-ledger/internal/domain"
	"inventory-ledger/internal/middleware"
	"inventory-ledger/internal/repository"
	"inventory-ledger/internal/service"

	"go.uber.org/zap"
)

// fieldRef reports a missing referenced row as a validation error on the
// request field that named it, instead of a 404 for the resource itself
type fieldRef struct {
	err   error
	field string
}

var notFoundErrors = []error{
	repository.ErrCategoryNotFound,
	repository.ErrProductNotFound,
	repository.ErrTransactionNotFound,
	repository.ErrTransactionItemNotFound,
	repository.ErrUserNotFound,
}

// respondError maps service and repository errors onto HTTP responses
func respondError(w http.ResponseWriter, logger *zap.Logger, err error, refs ...fieldRef) {
	for _, ref := range refs {
		if errors.Is(err, ref.err) {
			respondFieldError(w, ref.field, ref.err.Error())
			return
		}
	}

	var (
		bodyErr      *middleware.BodyError
		verr         *domain.ValidationError
		insufficient *domain.InsufficientStockError
	)
	switch {
	case errors.As(err, &bodyErr):
		middleware.RespondWithError(w, http.StatusBadRequest, bodyErr.Message)
		return
	case errors.As(err, &verr):
		respondValidationError(w, verr)
		return
	case errors.As(err, &insufficient):
		middleware.RespondWithErrorDetails(w, http.StatusBadRequest, "insufficient stock", map[string]interface{}{
			"product_id": insufficient.ProductID.String(),
			"requested":  insufficient.Requested,
			"available":  insufficient.Available,
		})
		return
	case errors.Is(err, repository.ErrCategoryAlreadyExists):
		respondFieldError(w, "name", "category with this name already exists.")
		return
	case errors.Is(err, repository.ErrSlugTaken):
		respondFieldError(w, "slug", "slug is already in use.")
		return
	case errors.Is(err, service.ErrItemTransactionImmutable):
		respondFieldError(w, "transaction", err.Error())
		return
	case errors.Is(err, repository.ErrProductInUse):
		middleware.RespondWithError(w, http.StatusConflict, "product is referenced by transaction items and cannot be deleted")
		return
	case errors.Is(err, repository.ErrDuplicateIdentifier):
		logger.Error("Transaction identifier allocation exhausted", zap.Error(err))
		middleware.RespondWithError(w, http.StatusConflict, "could not allocate a unique transaction identifier")
		return
	case errors.Is(err, repository.ErrUserAlreadyExists):
		middleware.RespondWithError(w, http.StatusConflict, "user with this email already exists")
		return
	case errors.Is(err, repository.ErrUsernameTaken):
		middleware.RespondWithError(w, http.StatusConflict, "user with this username already exists")
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid email or password")
		return
	case errors.Is(err, service.ErrInvalidToken):
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	case errors.Is(err, service.ErrTokenExpired):
		middleware.RespondWithError(w, http.StatusUnauthorized, "refresh token expired")
		return
	}

	for _, notFound := range notFoundErrors {
		if errors.Is(err, notFound) {
			middleware.RespondWithError(w, http.StatusNotFound, notFound.Error())
			return
		}
	}

	logger.Error("Request failed", zap.Error(err))
	middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
}

func respondFieldError(w http.ResponseWriter, field, message string) {
	middleware.RespondWithValidationErrors(w, []middleware.ValidationError{{Field: field, Message: message}})
}

func respondValidationError(w http.ResponseWriter, verr *domain.ValidationError) {
	out := make([]middleware.ValidationError, 0, len(verr.Errors))
	for _, fe := range verr.Errors {
		out = append(out, middleware.ValidationError{Field: fe.Field, Message: fe.Message})
	}
	middleware.RespondWithValidationErrors(w, out)
}

// decodeRequest decodes and validates a JSON body, writing the 400 itself
// when the body is unusable
func decodeRequest(w http.ResponseWriter, r *http.Request, logger *zap.Logger, v interface{}) bool {
	err := middleware.DecodeAndValidate(r, v)
	if err == nil {
		return true
	}
	logger.Debug("Request validation failed", zap.Error(err))
	if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
		middleware.RespondWithValidationErrors(w, validationErrors)
		return false
	}
	respondError(w, logger, err)
	return false
}

// requiredFields collects the fields a full write is missing
type requiredFields struct {
	verr domain.ValidationError
}

func (rf *requiredFields) check(present bool, field string) {
	if !present {
		rf.verr.Add(field, "This field is required.")
	}
}

func (rf *requiredFields) err() error {
	if rf.verr.HasErrors() {
		return &rf.verr
	}
	return nil
}
