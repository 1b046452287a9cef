//
//
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Response is the JSON envelope every endpoint except /metrics and the
// event stream replies with.
type Response struct {
	Result        string      `json:"result"` // "ok" or "error"
	Data          interface{} `json:"data,omitempty"`
	Code          string      `json:"code,omitempty"`
	Message       string      `json:"message,omitempty"`
	Details       interface{} `json:"details,omitempty"`
	CorrelationID string      `json:"correlationId"`
}

// Error codes carried in the envelope.
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeInvalidRange     = "INVALID_RANGE"
	CodeNotFound         = "NOT_FOUND"
	CodeNotSimulated     = "NOT_SIMULATED"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeUnavailable      = "UNAVAILABLE"
	CodeInternal         = "INTERNAL"
)

// WriteSuccess replies 200 with data in the envelope.
func WriteSuccess(w http.ResponseWriter, data interface{}) {
	writeResponse(w, http.StatusOK, &Response{Result: "ok", Data: data})
}

// WriteError replies with statusCode and an error envelope.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details interface{}) {
	writeResponse(w, statusCode, &Response{
		Result:  "error",
		Code:    code,
		Message: message,
		Details: details,
	})
}

func writeResponse(w http.ResponseWriter, statusCode int, resp *Response) {
	resp.CorrelationID = nextCorrelationID()

	body, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, fmt.Sprintf("Internal server error: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write(append(body, '\n'))
}

var correlationSeq uint64

// nextCorrelationID is unique within the process.
func nextCorrelationID() string {
	return fmt.Sprintf("%x-%d", time.Now().UnixNano(), atomic.AddUint64(&correlationSeq, 1))
}
