package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/rideorders-system/internal/repository"
	"github.com/mmeshcher/rideorders-system/internal/validation"
)

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// handleError преобразует ошибку обработчика в единый JSON-ответ с кодом состояния.
// Ошибки валидации и отсутствия заказа отдаются как есть, всё остальное
// считается ошибкой хранилища: клиент получает обезличенное сообщение,
// исходный текст попадает только в лог.
func (h *Handler) handleError(w http.ResponseWriter, err error, op string) {
	var vErr *validation.Error
	switch {
	case errors.As(err, &vErr):
		h.writeError(w, http.StatusBadRequest, vErr.Message, nil)
	case errors.Is(err, repository.ErrOrderNotFound):
		h.writeError(w, http.StatusNotFound, "Order not found", nil)
	default:
		h.logger.Error(op+" failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Internal server error", err)
	}
}

// writeError пишет JSON-ответ об ошибке. Диагностическое поле detail
// добавляется только вне production-окружения.
func (h *Handler) writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := errorResponse{Error: message}
	if err != nil && h.exposeDetails {
		resp.Detail = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
		h.logger.Error("encode error response", zap.Error(encErr))
	}
}
