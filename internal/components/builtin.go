package components

// Builtin returns the registry of components the site's client runtime
// ships with. Posts reference these by tag name; adding a component here and
// to the runtime bundle makes it embeddable.
func Builtin() *Registry {
	return NewRegistry(
		Component{
			Name:        "MonteCarloPi",
			Description: "Interactive Monte Carlo estimation of pi",
			Props: map[string]PropSpec{
				"samples": {Type: PropInt, Default: "1000"},
				"seed":    {Type: PropInt, Default: "0"},
			},
		},
		Component{
			Name:        "QuantileBand",
			Description: "Quantile band chart over an inline data series",
			Props: map[string]PropSpec{
				"series": {Type: PropString, Required: true},
				"lower":  {Type: PropFloat, Default: "0.1"},
				"upper":  {Type: PropFloat, Default: "0.9"},
			},
		},
		Component{
			Name:        "CodePlayground",
			Description: "Editable, runnable code snippet",
			Props: map[string]PropSpec{
				"lang":     {Type: PropString, Default: "javascript"},
				"source":   {Type: PropString, Required: true},
				"autorun":  {Type: PropBool, Default: "false"},
				"maxLines": {Type: PropInt, Default: "40"},
			},
		},
	)
}
