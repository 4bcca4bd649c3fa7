package server

import (
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/lox/holdemtable/internal/game"
	"github.com/lox/holdemtable/internal/phh"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Codes for failures that are not game errors.
const (
	CodeTableNotFound = "TableNotFound"
	CodeTableExists   = "TableExists"
	CodeBadRequest    = "BadRequest"
	CodeRateLimited   = "RateLimited"
	CodeInternal      = "InternalError"
	CodeHandNotOver   = "HandNotFinished"
)

// ErrorData is the body of every error response.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorData converts err into a response body and HTTP status.
func errorData(err error) (ErrorData, int) {
	switch {
	case errors.Is(err, ErrTableNotFound):
		return ErrorData{Code: CodeTableNotFound, Message: err.Error()}, http.StatusNotFound
	case errors.Is(err, ErrTableExists):
		return ErrorData{Code: CodeTableExists, Message: err.Error()}, http.StatusConflict
	case errors.Is(err, phh.ErrHandNotFinished):
		return ErrorData{Code: CodeHandNotOver, Message: err.Error()}, http.StatusConflict
	}

	var gerr *game.Error
	if !errors.As(err, &gerr) {
		return ErrorData{Code: CodeBadRequest, Message: err.Error()}, http.StatusBadRequest
	}
	data := ErrorData{Code: string(gerr.Code), Message: gerr.Message}
	switch gerr.Code {
	case game.CodePlayerNotSeated:
		return data, http.StatusNotFound
	case game.CodeSeatOccupied, game.CodeNoAvailableSeats, game.CodeNotPlayersTurn,
		game.CodeHandAlreadyComplete, game.CodeBettingRoundIncomplete:
		return data, http.StatusConflict
	case game.CodeChipConservation:
		return data, http.StatusInternalServerError
	default:
		return data, http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) // client may have gone away
}

func writeError(w http.ResponseWriter, err error) {
	data, status := errorData(err)
	writeJSON(w, status, data)
}
