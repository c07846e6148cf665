package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/athebyme/gomarket-seeder/internal/domain/directory"
	"github.com/athebyme/gomarket-seeder/internal/domain/marketplace"
	"github.com/athebyme/gomarket-seeder/pkg/interfaces"
	"github.com/go-chi/render"
)

// DocumentValidator проверка документа маркетплейса
type DocumentValidator interface {
	Validate(ctx context.Context, doc *marketplace.SerializedMarketplace) ([]string, error)
	Directory(ctx context.Context) (*directory.Directory, error)
}

// ValidationObserver получает число ошибок каждой проверки
type ValidationObserver interface {
	ObserveValidation(errorCount int)
}

// ValidateHandler обработчик проверки документов
type ValidateHandler struct {
	validator DocumentValidator
	observer  ValidationObserver
	logger    interfaces.LoggerPort
}

func NewValidateHandler(validator DocumentValidator, observer ValidationObserver, logger interfaces.LoggerPort) *ValidateHandler {
	return &ValidateHandler{validator: validator, observer: observer, logger: logger}
}

// errorResponse структура ответа с ошибкой
type errorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// ValidationResponse результат проверки документа
type ValidationResponse struct {
	Valid   bool     `json:"valid"`
	Records int      `json:"records"`
	Errors  []string `json:"errors"`
}

// ResourceInfo описание ресурса каталога
type ResourceInfo struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Priority int    `json:"priority"`
	Parent   string `json:"parent,omitempty"`
	Group    string `json:"group"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: code, Code: status, Message: message})
}

// Validate проверяет документ из тела запроса (YAML или JSON)
func (h *ValidateHandler) Validate(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "too_large", err.Error())
			return
		}
		writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	doc, err := marketplace.Parse(data)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_document", err.Error())
		return
	}

	errs, err := h.validator.Validate(r.Context(), doc)
	if err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка проверки документа",
			interfaces.LogField{Key: "error", Value: err.Error()})
		var schemaErr *directory.SchemaError
		if errors.As(err, &schemaErr) {
			writeError(w, r, http.StatusServiceUnavailable, "schema_unavailable", err.Error())
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	if h.observer != nil {
		h.observer.ObserveValidation(len(errs))
	}
	if errs == nil {
		errs = []string{}
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ValidationResponse{Valid: len(errs) == 0, Records: doc.Count(), Errors: errs})
}

// Resources возвращает каталог ресурсов в порядке создания
func (h *ValidateHandler) Resources(w http.ResponseWriter, r *http.Request) {
	dir, err := h.validator.Directory(r.Context())
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "schema_unavailable", err.Error())
		return
	}
	ordered := dir.ByPriority()
	out := make([]ResourceInfo, 0, len(ordered))
	for _, d := range ordered {
		info := ResourceInfo{Name: d.Name, Path: d.Path, Priority: d.CreatePriority, Group: string(d.Grouping())}
		if d.Parent != nil {
			info.Parent = d.Parent.Name
		}
		out = append(out, info)
	}
	render.JSON(w, r, out)
}
