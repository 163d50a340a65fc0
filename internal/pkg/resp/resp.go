/*
Package resp provides helpers for writing the relay's JSON HTTP responses.

Every response uses the same envelope: a business code (0 on success), a
message, and optional data.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"roomrelay/internal/pkg/errs"
	"roomrelay/internal/pkg/logx"
)

// JSONResponse is the envelope returned by every JSON endpoint.
type JSONResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// RespondJSON writes payload as JSON with the given status.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		logx.Error(err, "Error encoding JSON response", "http_status", httpStatus, "uri", r.RequestURI)
		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(httpStatus)

	if _, err := w.Write(response); err != nil {
		logx.Warn("Failed to write JSON response", "uri", r.RequestURI, "error", err.Error())
	}
}

// RespondSuccess sends data with HTTP 200 and code 0.
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	RespondJSON(w, r, http.StatusOK, JSONResponse{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// RespondError sends customErr using its own HTTP status.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	RespondJSON(w, r, customErr.Status, JSONResponse{
		Code:    customErr.Code,
		Message: customErr.Message,
	})
}
