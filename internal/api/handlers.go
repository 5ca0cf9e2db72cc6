// Package api exposes the prediction service over HTTP: classify a
// device, record expert feedback, and download generated report PDFs.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/donapp/triage/internal/artifacts"
	"github.com/donapp/triage/internal/predictor"
	"github.com/donapp/triage/internal/recordlog"
	"github.com/donapp/triage/internal/report"
)

const maxRequestBodySize = 1 << 20 // 1MB

const timestampLayout = "2006-01-02 15:04:05"

// deviceFields is the canonical display/logging order of the request
// fields, matching the prediction log columns.
var deviceFields = []string{
	"id_usuario", "nombre_usuario", "tipo_usuario", "tipo", "marca",
	"modelo", "anio", "estado_fisico", "encendido", "fallas", "ram",
	"almacenamiento", "descripcion", "destino",
}

// Predictor classifies one free-text description.
type Predictor interface {
	Predict(text string) (string, error)
}

// Appender appends one record to a log.
type Appender interface {
	Append(record any) error
}

// ReportStore owns generated report artifacts.
type ReportStore interface {
	Create(data []byte) (string, error)
	Serve(id string) ([]byte, error)
}

// Deps wires the handlers to their collaborators.
type Deps struct {
	Engine      Predictor
	Predictions Appender
	Feedback    Appender
	Reports     ReportStore
	Auth        Authenticator
}

// NewHandler returns the service router.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(SessionAuth(deps.Auth))
		r.Post("/predict", handlePredict(deps))
		r.Post("/feedback", handleFeedback(deps))
		r.Get("/reports/{id}", handleReportDownload(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handlePredict(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var fields map[string]string
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_input", "invalid request body: %v", err)
			return
		}

		text := strings.TrimSpace(fields["modelo"])
		if text == "" {
			httpError(w, http.StatusBadRequest, "invalid_input", "modelo is required")
			return
		}

		label, err := deps.Engine.Predict(text)
		switch {
		case errors.Is(err, predictor.ErrUnavailable):
			httpError(w, http.StatusServiceUnavailable, "unavailable", "model artifacts not loaded, try again later")
			return
		case errors.Is(err, predictor.ErrInvalidInput):
			httpError(w, http.StatusBadRequest, "invalid_input", "modelo is required")
			return
		case err != nil:
			zap.L().Error("prediction failed", zap.Error(err))
			httpError(w, http.StatusInternalServerError, "prediction_error", "prediction failed: %v", err)
			return
		}

		zap.L().Debug("prediction served",
			zap.String("user", UserFrom(r.Context())),
			zap.String("label", label))

		resp := map[string]any{
			"input":      echoFields(fields),
			"prediccion": label,
		}

		// Logging is best effort: a write failure becomes a warning in the
		// response, never a failed prediction.
		if err := deps.Predictions.Append(predictionRecordFrom(fields, label)); err != nil {
			zap.L().Warn("prediction log append failed", zap.Error(err))
			resp["warning"] = "el registro de la predicción no pudo guardarse"
		}

		// Report generation is equally non-fatal: on failure the caller
		// still gets the bare prediction result.
		if data, err := report.Render(orderedFields(fields), label); err != nil {
			zap.L().Warn("report rendering failed", zap.Error(err))
		} else if id, err := deps.Reports.Create(data); err != nil {
			zap.L().Warn("report artifact creation failed", zap.Error(err))
		} else {
			resp["report_id"] = id
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

type feedbackRequest struct {
	Model     string `json:"modelo"`
	TrueLabel string `json:"clasificacion_real"`
}

func handleFeedback(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req feedbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_input", "invalid request body: %v", err)
			return
		}
		req.Model = strings.TrimSpace(req.Model)
		req.TrueLabel = strings.TrimSpace(req.TrueLabel)
		if req.Model == "" || req.TrueLabel == "" {
			httpError(w, http.StatusBadRequest, "invalid_input", "modelo and clasificacion_real are required")
			return
		}

		rec := recordlog.FeedbackRecord{
			Model:     req.Model,
			TrueLabel: req.TrueLabel,
			Timestamp: time.Now().Format(timestampLayout),
		}
		if err := deps.Feedback.Append(rec); err != nil {
			// Feedback persistence never fails the caller's request.
			zap.L().Warn("feedback log append failed", zap.Error(err))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"modelo":             req.Model,
			"clasificacion_real": req.TrueLabel,
		})
	}
}

func handleReportDownload(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		data, err := deps.Reports.Serve(id)
		if errors.Is(err, artifacts.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "report not found or already deleted")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to read report: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="informe_prediccion.pdf"`)
		w.Write(data)
	}
}

// predictionRecordFrom maps request fields onto the fixed log columns;
// missing fields stay empty.
func predictionRecordFrom(fields map[string]string, label string) recordlog.PredictionRecord {
	return recordlog.PredictionRecord{
		UserID:        fields["id_usuario"],
		UserName:      fields["nombre_usuario"],
		UserType:      fields["tipo_usuario"],
		DeviceType:    fields["tipo"],
		Brand:         fields["marca"],
		Model:         fields["modelo"],
		Year:          fields["anio"],
		PhysicalState: fields["estado_fisico"],
		PowersOn:      fields["encendido"],
		Faults:        fields["fallas"],
		RAM:           fields["ram"],
		Storage:       fields["almacenamiento"],
		Description:   fields["descripcion"],
		Destination:   fields["destino"],
		Predicted:     label,
	}
}

// orderedFields returns the known device fields in canonical order for the
// report layout.
func orderedFields(fields map[string]string) []report.Field {
	out := make([]report.Field, 0, len(deviceFields))
	for _, key := range deviceFields {
		out = append(out, report.Field{Key: key, Value: fields[key]})
	}
	return out
}

// echoFields copies the known device fields back into the response.
func echoFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(deviceFields))
	for _, key := range deviceFields {
		if v, ok := fields[key]; ok {
			out[key] = v
		}
	}
	return out
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
