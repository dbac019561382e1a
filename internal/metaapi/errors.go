package metaapi

import "net/http"

// apiError is the single error type internal/metaapi translates into
// an HTTP response. Component packages (catalog, membership,
// placement) never import net/http themselves and return plain
// sentinel errors; this package is the only layer that knows about
// status codes, matching the teacher's layering where storage and
// metadata packages stay transport-agnostic.
type apiError struct {
	Status int
	Detail string
}

func (e *apiError) Error() string { return e.Detail }

func badRequest(detail string) *apiError { return &apiError{Status: http.StatusBadRequest, Detail: detail} }
func notFound(detail string) *apiError   { return &apiError{Status: http.StatusNotFound, Detail: detail} }
func validation(detail string) *apiError {
	return &apiError{Status: http.StatusUnprocessableEntity, Detail: detail}
}
func insufficient(detail string) *apiError {
	return &apiError{Status: http.StatusInternalServerError, Detail: detail}
}
