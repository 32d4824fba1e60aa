package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"assetledger/internal/core"
	"assetledger/pkg/domain"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

// classify maps service errors onto HTTP status codes.
func classify(err error) (int, string) {
	var violation domain.RuleViolationError
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case domain.IsInvalidState(err):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, domain.ErrTransientConflict):
		return http.StatusConflict, "conflict"
	case errors.As(err, &violation):
		return http.StatusUnprocessableEntity, "rule_violation"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (h *handler) fail(c *gin.Context, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "path", c.FullPath(), "error", err)
		respondError(c, status, code, errors.New("internal error"))
		return
	}
	var violation domain.RuleViolationError
	if errors.As(err, &violation) {
		c.AbortWithStatusJSON(status, gin.H{
			"error":      APIError{Message: err.Error(), Code: code},
			"violations": violationsOf(violation.Result),
		})
		return
	}
	respondError(c, status, code, err)
}

func badRequest(c *gin.Context, err error) {
	respondError(c, http.StatusBadRequest, "invalid_request", err)
}

type violationView struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Entity   string `json:"entity"`
	EntityID int64  `json:"entity_id"`
}

func violationsOf(res core.Result) []violationView {
	out := make([]violationView, 0, len(res.Violations))
	for _, v := range res.Violations {
		out = append(out, violationView{
			Rule:     v.Rule,
			Severity: string(v.Severity),
			Message:  v.Message,
			Entity:   string(v.Entity),
			EntityID: v.EntityID,
		})
	}
	return out
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "invalid_id", errors.New(name+" must be a positive integer"))
		return 0, false
	}
	return id, true
}

// optionalID turns the legacy numeric reference, where 0 means none, into a
// pointer.
func optionalID(v int64) *int64 {
	if v <= 0 {
		return nil
	}
	return &v
}
