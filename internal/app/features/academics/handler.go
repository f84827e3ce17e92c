// Package academics serves a school's subjects and classes.
package academics

import (
	"errors"

	classstore "github.com/dalemusser/schoolhub/internal/app/store/classes"
	subjectstore "github.com/dalemusser/schoolhub/internal/app/store/subjects"
	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"go.uber.org/zap"
)

type Handler struct {
	Log *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{Log: logger}
}

func storeErr(err error) error {
	switch {
	case errors.Is(err, subjectstore.ErrNotFound):
		return apierr.Wrap(apierr.NotFound, "Subject not found.", err)
	case errors.Is(err, classstore.ErrNotFound):
		return apierr.Wrap(apierr.NotFound, "Class not found.", err)
	case errors.Is(err, subjectstore.ErrDuplicateSubject):
		return apierr.Wrap(apierr.Conflict, "A subject with this name already exists.", err)
	case errors.Is(err, classstore.ErrDuplicateClass):
		return apierr.Wrap(apierr.Conflict, "A class with this name already exists.", err)
	}
	return apierr.FromStore(err)
}
