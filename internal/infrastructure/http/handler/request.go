package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	defaultPage     = 1
	defaultPageSize = 5
	maxPageSize     = 50

	maxBodyBytes = 1 << 20
)

var errInvalidID = errors.New("invalid entry id")

// decodeJSON decodes the request body into v and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, validate *validator.Validate, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return validationError(err)
	}
	return nil
}

// validationError flattens validator errors into one readable message.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
}

// parseID returns the canonical form of a UUID path parameter.
func parseID(raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", errInvalidID
	}
	return id.String(), nil
}

// parsePagination reads page and pageSize from the query string.
func parsePagination(r *http.Request) (page, pageSize int, err error) {
	q := r.URL.Query()

	page, err = intParam(q.Get("page"), defaultPage)
	if err != nil || page < 1 {
		return 0, 0, errors.New("page must be an integer >= 1")
	}

	pageSize, err = intParam(q.Get("pageSize"), defaultPageSize)
	if err != nil || pageSize < 1 || pageSize > maxPageSize {
		return 0, 0, fmt.Errorf("pageSize must be an integer between 1 and %d", maxPageSize)
	}

	return page, pageSize, nil
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
