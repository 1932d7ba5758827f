package dataset

import (
	"path/filepath"
	"testing"

	"github.com/petar/GoMNIST"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImage(t *testing.T) {
	img, err := Image([]byte{0, 255, 51, 102, 0, 0}, 3, 2)
	require.NoError(t, err)

	w, h, c := img.Shape()
	assert.Equal(t, [3]int{3, 2, 1}, [3]int{w, h, c})
	assert.Equal(t, float32(1), img.At(1, 0, 0))
	assert.InDelta(t, 0.4, img.At(0, 1, 0), 1e-6)

	_, err = Image([]byte{1, 2, 3}, 2, 2)
	assert.Error(t, err)
}

func TestFromSet(t *testing.T) {
	set := &GoMNIST.Set{
		NRow:   2,
		NCol:   2,
		Images: []GoMNIST.RawImage{{0, 0, 0, 255}, {255, 0, 0, 0}},
		Labels: []GoMNIST.Label{7, 1},
	}

	samples, err := FromSet(set)
	require.NoError(t, err)
	require.Len(t, samples, 2)

	assert.Equal(t, 7, samples[0].Label.Argmax())
	assert.Equal(t, Classes, samples[0].Label.Len())
	assert.Equal(t, float32(1), samples[0].Input.At(1, 1, 0))
	assert.Equal(t, 1, samples[1].Label.Argmax())
}

func TestFromSetRejectsBadData(t *testing.T) {
	_, err := FromSet(&GoMNIST.Set{NRow: 1, NCol: 1, Images: []GoMNIST.RawImage{{0}}, Labels: []GoMNIST.Label{12}})
	assert.Error(t, err)

	_, err = FromSet(&GoMNIST.Set{NRow: 2, NCol: 2, Images: []GoMNIST.RawImage{{0}}, Labels: []GoMNIST.Label{1}})
	assert.Error(t, err)
}

func TestLoadMNISTMissingDir(t *testing.T) {
	_, _, err := LoadMNIST(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
