package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/cinetix/ticketing/internal/queue"
)

// JobPublisher is the slice of the queue publisher the handlers need.
// Handlers never mutate seat state themselves; they validate, enqueue and
// answer 202.  *queue.Publisher satisfies it.
type JobPublisher interface {
	PublishJob(ctx context.Context, job queue.Job) error
}

// getUserID extracts the authenticated user's ID placed in the context by
// the JWT middleware.  The middleware stores it as uint64, but older
// tokens may surface other numeric types, so all of them are accepted.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses a numeric path parameter; zero is treated as invalid.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// indexToRowLabel converts a zero-based index to an alphabetical row
// label like A, B, ..., Z, AA, AB.  Used when generating a screen layout
// from a row count.
func indexToRowLabel(i int) string {
	if i < 0 {
		return ""
	}
	res := []rune{}
	for {
		res = append([]rune{rune('A' + i%26)}, res...)
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	return string(res)
}

// enqueue wraps a payload into a job and publishes it, returning any
// error for the caller to map to a 503.
func enqueue(c echo.Context, jobs JobPublisher, jobType string, payload any) error {
	job, err := queue.NewJob(jobType, payload)
	if err != nil {
		return err
	}
	return jobs.PublishJob(c.Request().Context(), job)
}
