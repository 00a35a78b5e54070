package handler

import (
	"net/http"

	"clinic-backend/internal/delivery/http/middleware"
	"clinic-backend/internal/domain/entity"
	"clinic-backend/pkg/apperror"
	"clinic-backend/pkg/response"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// actorFrom writes 401 and returns false when the request carries no authenticated actor
func actorFrom(w http.ResponseWriter, r *http.Request) (entity.Actor, bool) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		response.Unauthorized(w, "")
		return entity.Actor{}, false
	}
	return actor, true
}

// pathUUID parses a UUID route variable, writing 400 on failure
func pathUUID(w http.ResponseWriter, r *http.Request, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		response.BadRequest(w, "Invalid "+label)
		return uuid.Nil, false
	}
	return id, true
}

// writeError answers with the status mapped from a business error.
// Unclassified errors are logged and reported as fallback.
func writeError(w http.ResponseWriter, log *logrus.Logger, err error, fallback string) {
	if apperror.KindOf(err) == apperror.KindInternal {
		log.Errorf("%s: %+v", fallback, err)
	}
	response.AppError(w, err, fallback)
}
