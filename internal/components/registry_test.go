package components

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tverberg/blogsmith/internal/markdown"
)

func demoRegistry() *Registry {
	return NewRegistry(
		Component{
			Name:        "MonteCarloPi",
			Description: "Interactive Monte Carlo estimation of pi",
			Props: map[string]PropSpec{
				"samples": {Type: PropInt, Required: true},
				"seed":    {Type: PropInt, Default: "1"},
				"animate": {Type: PropBool, Default: "true"},
			},
		},
		Component{
			Name: "QuantileBand",
			Props: map[string]PropSpec{
				"drift":      {Type: PropFloat, Default: "0.05"},
				"volatility": {Type: PropFloat, Default: "0.2"},
			},
		},
	)
}

func TestResolveAppliesDefaultsAndTypes(t *testing.T) {
	reg := demoRegistry()
	res, err := reg.Resolve(markdown.ComponentRef{
		Name:  "MonteCarloPi",
		Props: map[string]string{"samples": "5000"},
	})
	require.NoError(t, err)
	assert.Equal(t, 5000, res.Props["samples"])
	assert.Equal(t, 1, res.Props["seed"])
	assert.Equal(t, true, res.Props["animate"])
}

func TestResolveUnknownComponent(t *testing.T) {
	reg := demoRegistry()
	_, err := reg.Resolve(markdown.ComponentRef{Name: "Nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown component "Nope"`)
	assert.Contains(t, err.Error(), "MonteCarloPi", "error lists registered names")
}

func TestResolveUndeclaredProp(t *testing.T) {
	reg := demoRegistry()
	_, err := reg.Resolve(markdown.ComponentRef{
		Name:  "QuantileBand",
		Props: map[string]string{"colour": "red"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no prop "colour"`)
}

func TestResolveTypeMismatch(t *testing.T) {
	reg := demoRegistry()
	_, err := reg.Resolve(markdown.ComponentRef{
		Name:  "MonteCarloPi",
		Props: map[string]string{"samples": "lots"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want int")
}

func TestResolveMissingRequiredProp(t *testing.T) {
	reg := demoRegistry()
	_, err := reg.Resolve(markdown.ComponentRef{Name: "MonteCarloPi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing required prop "samples"`)
}

func TestMountHTMLDeterministic(t *testing.T) {
	reg := demoRegistry()
	res, err := reg.Resolve(markdown.ComponentRef{
		Name:  "MonteCarloPi",
		Props: map[string]string{"samples": "100", "seed": "7"},
	})
	require.NoError(t, err)

	html1, err := res.MountHTML()
	require.NoError(t, err)
	html2, err := res.MountHTML()
	require.NoError(t, err)
	assert.Equal(t, html1, html2)
	assert.Contains(t, html1, `data-component="monte-carlo-pi"`)
	assert.Contains(t, html1, `"samples":100`)
}

func TestMountID(t *testing.T) {
	assert.Equal(t, "monte-carlo-pi", MountID("MonteCarloPi"))
	assert.Equal(t, "quantile-band", MountID("QuantileBand"))
	assert.Equal(t, "widget", MountID("Widget"))
}
