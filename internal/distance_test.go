package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tkrajina/gpxgo/gpx"
)

var (
	paris = [2]float64{2.3522, 48.8566}
	lyon  = [2]float64{4.8430, 45.7540}
)

func TestDistance_Self(t *testing.T) {
	for _, p := range [][2]float64{paris, lyon, {0, 0}, {-179.9, -89.9}} {
		assert.Equal(t, 0.0, Distance(p[0], p[1], p[0], p[1]))
	}
}

func TestDistance_Symmetric(t *testing.T) {
	points := [][2]float64{paris, lyon, {-1.5536, 47.2184}, {7.2620, 43.7102}, {0, 0}}
	for _, a := range points {
		for _, b := range points {
			assert.Equal(t, Distance(a[0], a[1], b[0], b[1]), Distance(b[0], b[1], a[0], a[1]))
		}
	}
}

func TestDistance_ParisLyon(t *testing.T) {
	assert.InDelta(t, 392.8, Distance(paris[0], paris[1], lyon[0], lyon[1]), 0.1)
}

func TestDistance_AgreesWithGPX(t *testing.T) {
	// gpxgo uses a slightly larger earth radius, so allow half a percent.
	expected := gpx.Distance2D(paris[1], paris[0], lyon[1], lyon[0], true) / 1000
	assert.InEpsilon(t, expected, Distance(paris[0], paris[1], lyon[0], lyon[1]), 0.005)
}

func TestDistance_Rounded(t *testing.T) {
	d := Distance(2.3522, 48.8566, 2.2945, 48.8584)
	assert.Equal(t, d, float64(int(d*100+0.5))/100)
}
