package internal

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCheck(t *testing.T) {
	fc := newFakeCatalog(t, func(url.Values) (int, any) {
		return http.StatusOK, records(0)
	})
	reg := NewStationRegistry(fc.client(), nil, zerolog.Nop())
	check := RegistryCheck(reg)

	assert.Equal(t, "registry", check.Name())
	assert.False(t, check.Pass())

	require.NoError(t, reg.UpdatePrices(context.Background()))
	assert.True(t, check.Pass())
}
