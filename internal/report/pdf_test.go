package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderProducesPDF(t *testing.T) {
	fields := []Field{
		{Key: "modelo", Value: "Galaxy S21"},
		{Key: "marca", Value: "Samsung"},
		{Key: "estado_fisico", Value: "bueno"},
	}

	data, err := Render(fields, "Reparación")
	require.NoError(t, err)
	assert.True(t, len(data) > 4)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestRenderPartialFields(t *testing.T) {
	fields := []Field{
		{Key: "modelo", Value: "Mi Pad"},
		{Key: "marca", Value: ""},
		{Key: "fallas", Value: ""},
	}

	data, err := Render(fields, "Reparación")
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestRenderNoFields(t *testing.T) {
	data, err := Render(nil, "Reciclaje")
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestRenderSkipsRawPredictionKey(t *testing.T) {
	withKey, err := Render([]Field{{Key: "prediccion_ml", Value: "Reparación"}}, "Reparación")
	require.NoError(t, err)
	without, err := Render(nil, "Reparación")
	require.NoError(t, err)

	// The transient prediction key contributes nothing to the layout. The
	// documents differ only in embedded metadata (creation timestamp), so
	// compare sizes.
	assert.Equal(t, len(without), len(withKey))
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "Estado Fisico", humanize("estado_fisico"))
	assert.Equal(t, "Modelo", humanize("modelo"))
}
