package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	data := "label,p0,p1,p2,p3\n" +
		"2,0,255,51,0\n" +
		"0,255,255,255,255\n"

	samples, err := ReadCSV(strings.NewReader(data), CSVOptions{Width: 2, Height: 2, Classes: 3, HasHeader: true})
	require.NoError(t, err)
	require.Len(t, samples, 2)

	assert.Equal(t, 2, samples[0].Label.Argmax())
	assert.InDeltaSlice(t, []float32{0, 1, 0.2, 0}, samples[0].Input.Data(), 1e-6)
	assert.Equal(t, float32(1), samples[0].Input.At(1, 0, 0))
	assert.Equal(t, float32(0.2), samples[0].Input.At(0, 1, 0))
	assert.Equal(t, 0, samples[1].Label.Argmax())
}

func TestReadCSVLimitAndScale(t *testing.T) {
	data := "1,1\n0,0.5\n1,0\n"
	samples, err := ReadCSV(strings.NewReader(data), CSVOptions{Width: 1, Height: 1, Classes: 2, MaxPixel: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, float32(0.5), samples[1].Input.Data()[0])
}

func TestReadCSVErrors(t *testing.T) {
	opts := CSVOptions{Width: 1, Height: 2, Classes: 10}
	tests := map[string]string{
		"wrong column count": "1,0\n",
		"bad label":          "x,0,0\n",
		"label out of range": "10,0,0\n",
		"bad pixel":          "1,0,abc\n",
		"empty":              "",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(data), opts)
			assert.Error(t, err)
		})
	}

	_, err := ReadCSV(strings.NewReader("1,0,0\n"), CSVOptions{})
	assert.Error(t, err)
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digits.csv")
	require.NoError(t, os.WriteFile(path, []byte("3,0,128\n"), 0o644))

	samples, err := LoadCSV(path, CSVOptions{Width: 2, Height: 1, Classes: 10})
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, 3, samples[0].Label.Argmax())

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"), CSVOptions{Width: 2, Height: 1, Classes: 10})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
