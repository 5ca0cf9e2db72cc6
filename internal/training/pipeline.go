// Package training implements the offline run that fits the vectorizer,
// label encoder, and forest from the labeled dataset and persists them as
// one bundle.
package training

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/donapp/triage/internal/classifier"
	"github.com/donapp/triage/internal/recordlog"
)

// ErrNoTrainingData means no usable rows remained after cleaning. It is
// fatal to the training run only; the serving process never sees it.
var ErrNoTrainingData = errors.New("no usable training rows")

// Split policy: a stratified holdout is only taken when the label set has
// at least minClasses distinct classes and the dataset at least minRows
// rows. Below that the model trains on everything, deliberately.
const (
	minClasses  = 2
	minRows     = 5
	testFrac    = 0.2
	maxFeatures = 200
)

// Example is one cleaned training row.
type Example struct {
	Text  string
	Label string
}

// Options configures one training run.
type Options struct {
	DatasetPath string
	BundlePath  string
	Trees       int
	Seed        int64
	Out         io.Writer
}

// Run executes the full pipeline: load (or synthesize) the dataset, clean
// it, fit the artifact triple, print an evaluation summary, and persist the
// bundle atomically.
func Run(opts Options) (*classifier.Bundle, error) {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Trees <= 0 {
		opts.Trees = 150
	}

	examples, err := loadDataset(opts.DatasetPath, opts.Out)
	if err != nil {
		return nil, err
	}
	examples = clean(examples)
	if len(examples) == 0 {
		return nil, ErrNoTrainingData
	}
	fmt.Fprintf(opts.Out, "registros disponibles para entrenamiento: %d\n", len(examples))

	texts := make([]string, len(examples))
	labels := make([]string, len(examples))
	for i, ex := range examples {
		texts[i] = ex.Text
		labels[i] = ex.Label
	}

	encoder := classifier.FitLabels(labels)
	y := make([]int, len(labels))
	for i, l := range labels {
		code, _ := encoder.Encode(l)
		y[i] = code
	}

	vectorizer := classifier.NewVectorizer(maxFeatures)
	vectorizer.Fit(texts)
	X := vectorizer.TransformAll(texts)

	trainIdx, testIdx := splitIndices(y, encoder.NumClasses(), opts.Seed)

	trainX := make([][]float64, len(trainIdx))
	trainY := make([]int, len(trainIdx))
	for i, idx := range trainIdx {
		trainX[i] = X[idx]
		trainY[i] = y[idx]
	}

	forest := classifier.FitForest(trainX, trainY, encoder.NumClasses(), opts.Trees, opts.Seed)

	if len(testIdx) > 0 {
		printReport(opts.Out, forest, encoder, X, y, testIdx)
	}

	bundle := &classifier.Bundle{
		Version:    1,
		TrainedAt:  time.Now().UTC(),
		Vectorizer: vectorizer,
		Encoder:    encoder,
		Forest:     forest,
	}
	if err := bundle.Save(opts.BundlePath); err != nil {
		return nil, err
	}
	fmt.Fprintf(opts.Out, "artefactos guardados en: %s\n", opts.BundlePath)

	return bundle, nil
}

// loadDataset reads the semicolon-delimited dataset. When the file is
// missing at both the configured path and its basename in the working
// directory, the canonical sample dataset is written to the configured
// path so the rest of the system stays exercisable.
func loadDataset(path string, out io.Writer) ([]Example, error) {
	candidates := []string{path, filepath.Base(path)}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			fmt.Fprintf(out, "cargando datos desde: %s\n", p)
			return readDataset(p)
		}
	}

	fmt.Fprintf(out, "no se encontró el dataset, creando ejemplo en: %s\n", path)
	if err := WriteSampleDataset(path); err != nil {
		return nil, err
	}
	return readDataset(path)
}

func readDataset(path string) ([]Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "training: open dataset")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrap(err, "training: read header")
	}
	textCol, labelCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "modelo":
			textCol = i
		case "prediccion_ml":
			labelCol = i
		}
	}
	if textCol < 0 || labelCol < 0 {
		return nil, eris.New("training: dataset must contain 'modelo' and 'prediccion_ml' columns")
	}

	var examples []Example
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "training: read row")
		}
		if textCol >= len(row) || labelCol >= len(row) {
			continue
		}
		examples = append(examples, Example{Text: row[textCol], Label: row[labelCol]})
	}
	return examples, nil
}

// clean drops rows whose text or label is empty after trimming.
func clean(examples []Example) []Example {
	kept := examples[:0]
	for _, ex := range examples {
		ex.Text = strings.TrimSpace(ex.Text)
		ex.Label = strings.TrimSpace(ex.Label)
		if ex.Text == "" || ex.Label == "" {
			continue
		}
		kept = append(kept, ex)
	}
	return kept
}

// splitIndices applies the split policy. With a holdout, the split is
// stratified: each class contributes its own 80/20 shuffle so small
// classes are represented on both sides.
func splitIndices(y []int, numClasses int, seed int64) (train, test []int) {
	distinct := make(map[int]struct{})
	for _, c := range y {
		distinct[c] = struct{}{}
	}
	if len(distinct) < minClasses || len(y) < minRows {
		train = make([]int, len(y))
		for i := range train {
			train[i] = i
		}
		return train, nil
	}

	rng := rand.New(rand.NewSource(seed))
	byClass := make([][]int, numClasses)
	for i, c := range y {
		byClass[c] = append(byClass[c], i)
	}
	for _, members := range byClass {
		rng.Shuffle(len(members), func(i, j int) {
			members[i], members[j] = members[j], members[i]
		})
		nTest := int(float64(len(members)) * testFrac)
		test = append(test, members[:nTest]...)
		train = append(train, members[nTest:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test
}

// printReport writes per-class precision/recall/F1 and overall accuracy
// for the holdout set.
func printReport(out io.Writer, forest *classifier.Forest, encoder *classifier.LabelEncoder, X [][]float64, y []int, testIdx []int) {
	n := encoder.NumClasses()
	tp := make([]int, n)
	fp := make([]int, n)
	fn := make([]int, n)
	support := make([]int, n)
	correct := 0

	for _, idx := range testIdx {
		pred := forest.Predict(X[idx])
		truth := y[idx]
		support[truth]++
		if pred == truth {
			tp[truth]++
			correct++
		} else {
			fp[pred]++
			fn[truth]++
		}
	}

	fmt.Fprintln(out, "reporte de clasificación (test):")
	fmt.Fprintf(out, "%-14s %9s %9s %9s %9s\n", "", "precision", "recall", "f1-score", "support")
	for c := 0; c < n; c++ {
		precision := ratio(tp[c], tp[c]+fp[c])
		recall := ratio(tp[c], tp[c]+fn[c])
		f1 := 0.0
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}
		fmt.Fprintf(out, "%-14s %9.2f %9.2f %9.2f %9d\n", encoder.Classes[c], precision, recall, f1, support[c])
	}
	fmt.Fprintf(out, "%-14s %29.2f %9d\n", "accuracy", ratio(correct, len(testIdx)), len(testIdx))
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// WriteSampleDataset writes the canonical four-row illustrative dataset.
func WriteSampleDataset(path string) error {
	rows := []recordlog.PredictionRecord{
		{UserID: "1", UserName: "Tecnico A", UserType: "tecnico", DeviceType: "Celular", Brand: "Samsung", Model: "Galaxy S21", Year: "2021", PhysicalState: "bueno", PowersOn: "si", Faults: "no carga", RAM: "8GB", Storage: "128GB", Description: "Batería baja", Destination: "Reparación", Predicted: "Reparación"},
		{UserID: "2", UserName: "Cliente B", UserType: "cliente", DeviceType: "Celular", Brand: "Apple", Model: "iPhone 11", Year: "2019", PhysicalState: "dañado", PowersOn: "parcial", Faults: "pantalla rota", RAM: "4GB", Storage: "64GB", Description: "Pantalla rota", Destination: "Reparación", Predicted: "Reparación"},
		{UserID: "3", UserName: "Tecnico C", UserType: "tecnico", DeviceType: "Tablet", Brand: "Xiaomi", Model: "Mi Pad", Year: "2020", PhysicalState: "bueno", PowersOn: "si", Faults: "audio", RAM: "4GB", Storage: "64GB", Description: "Problema audio", Destination: "Reparación", Predicted: "Reparación"},
		{UserID: "4", UserName: "Cliente D", UserType: "cliente", DeviceType: "Celular", Brand: "Generic", Model: "Modelo X", Year: "2015", PhysicalState: "dañado", PowersOn: "no", Faults: "muy viejo", RAM: "1GB", Storage: "8GB", Description: "Obsoleto", Destination: "Reciclaje", Predicted: "Reciclaje"},
	}

	log := recordlog.New(path)
	for _, row := range rows {
		if err := log.Append(row); err != nil {
			return err
		}
	}
	return nil
}
