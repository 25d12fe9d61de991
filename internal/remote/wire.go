package remote

import (
	"errors"
	"net/http"

	"github.com/taskmate/taskmate/internal/model"
)

// idempotencyHeader carries the caller-generated key on mutating requests.
const idempotencyHeader = "Idempotency-Key"

// wireError is the JSON shape errors take on the wire. The code field is
// authoritative; the HTTP status is advisory.
type wireError struct {
	Code         model.ErrorCode `json:"code"`
	Message      string          `json:"message"`
	SubjectID    string          `json:"subject_id,omitempty"`
	EngagementID string          `json:"engagement_id,omitempty"`
}

// createEngagementRequest is the body of POST /engagements.
type createEngagementRequest struct {
	SubjectID string         `json:"subject_id"`
	Actor     string         `json:"actor"`
	Slot      *model.SlotRef `json:"slot,omitempty"`
	Note      string         `json:"note,omitempty"`
}

// transitionRequest is the body of the engagement transition endpoints.
type transitionRequest struct {
	SubjectID string `json:"subject_id"`
}

// notificationRequest is the body of the notification endpoints.
type notificationRequest struct {
	Recipient string `json:"recipient"`
}

// toWireError maps an engine error onto the wire shape and an HTTP status.
func toWireError(err error) (wireError, int) {
	var e *model.Error
	if !errors.As(err, &e) {
		// Unexpected internal failure; surface opaquely.
		return wireError{Code: model.CodeNetwork, Message: err.Error()}, http.StatusInternalServerError
	}
	we := wireError{
		Code:         e.Code,
		Message:      e.Message,
		SubjectID:    e.SubjectID,
		EngagementID: e.EngagementID,
	}
	switch e.Code {
	case model.CodeValidation:
		return we, http.StatusBadRequest
	case model.CodeNotFound:
		return we, http.StatusNotFound
	case model.CodeConflict, model.CodeStaleState:
		return we, http.StatusConflict
	default:
		return we, http.StatusInternalServerError
	}
}

// fromWireError reconstructs the coded error a server sent.
func fromWireError(we wireError) error {
	return &model.Error{
		Code:         we.Code,
		Message:      we.Message,
		SubjectID:    we.SubjectID,
		EngagementID: we.EngagementID,
	}
}
