package domain

import "errors"

// ErrUnauthorized is returned by providers when the API responds with HTTP 401.
// Callers can check for it using errors.Is.
var ErrUnauthorized = errors.New("unauthorized")

// ErrNotFound is returned by providers when the requested item does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidWeekNumber is returned for week specifiers outside 1-53.
var ErrInvalidWeekNumber = errors.New("invalid week number")

// ErrNoAuthenticatedProvider is returned when no provider can be used.
var ErrNoAuthenticatedProvider = errors.New("no authenticated provider")
