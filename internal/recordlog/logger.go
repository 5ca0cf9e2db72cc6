// Package recordlog appends prediction and feedback records to
// semicolon-delimited CSV logs. Logs are append-only: the header row is
// written exactly once, when the file is first created, and history is
// never rewritten.
package recordlog

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
)

// PredictionRecord is one audit row per prediction. Column order is fixed
// by field order; a field left empty renders as an empty cell.
type PredictionRecord struct {
	UserID        string `csv:"id_usuario"`
	UserName      string `csv:"nombre_usuario"`
	UserType      string `csv:"tipo_usuario"`
	DeviceType    string `csv:"tipo"`
	Brand         string `csv:"marca"`
	Model         string `csv:"modelo"`
	Year          string `csv:"anio"`
	PhysicalState string `csv:"estado_fisico"`
	PowersOn      string `csv:"encendido"`
	Faults        string `csv:"fallas"`
	RAM           string `csv:"ram"`
	Storage       string `csv:"almacenamiento"`
	Description   string `csv:"descripcion"`
	Destination   string `csv:"destino"`
	Predicted     string `csv:"prediccion_ml"`
}

// FeedbackRecord is one expert correction. It carries no reference back to
// the originating prediction; correlation is by model text only.
type FeedbackRecord struct {
	Model     string `csv:"modelo"`
	TrueLabel string `csv:"clasificacion_real"`
	Timestamp string `csv:"timestamp"`
}

// Logger appends struct records to one CSV file. The mutex serializes the
// exists-check, header write, and row write, so concurrent requests cannot
// produce duplicate headers or interleaved rows.
type Logger struct {
	mu   sync.Mutex
	path string
}

// New returns a Logger for the given file path. The file and its parent
// directory are created on first append.
func New(path string) *Logger {
	return &Logger{path: path}
}

// Path returns the destination file path.
func (l *Logger) Path() string {
	return l.path
}

// Append writes one record, creating the file with its header row first if
// it does not exist yet.
func (l *Logger) Append(record any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	newFile := false
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
			return eris.Wrap(err, "recordlog: create directory")
		}
		newFile = true
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return eris.Wrap(err, "recordlog: open log")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = ';'
	enc := csvutil.NewEncoder(w)
	enc.AutoHeader = newFile

	if err := enc.Encode(record); err != nil {
		return eris.Wrap(err, "recordlog: encode row")
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "recordlog: flush row")
	}
	return nil
}
