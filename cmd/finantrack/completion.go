package main

import (
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

var (
	predictType   = predict.Set{"income", "expense"}
	filterPredict = map[string]complete.Predictor{
		"type": predictType,
		"q":    predict.Something,
		"from": predict.Something,
		"to":   predict.Something,
	}
)

func withFilters(extra map[string]complete.Predictor) map[string]complete.Predictor {
	flags := make(map[string]complete.Predictor, len(filterPredict)+len(extra))
	for k, v := range filterPredict {
		flags[k] = v
	}
	for k, v := range extra {
		flags[k] = v
	}
	return flags
}

// completion describes the command line for shell completion. Install it
// with COMP_INSTALL=1 <name>.
func completion(name string) *complete.Command {
	return &complete.Command{
		Flags: map[string]complete.Predictor{
			"user":     predict.Something,
			"backend":  predict.Set{"postgres", "bigquery"},
			"locale":   predict.Set{"es", "en"},
			"currency": predict.Something,
			"timezone": predict.Something,
		},
		Sub: map[string]*complete.Command{
			"history": {Flags: withFilters(map[string]complete.Predictor{
				"json":  predict.Nothing,
				"plain": predict.Nothing,
				"width": predict.Something,
			})},
			"chart": {Flags: withFilters(map[string]complete.Predictor{
				"o": predict.Files("*.svg"),
			})},
			"export": {Flags: withFilters(map[string]complete.Predictor{
				"o": predict.Files("*.csv"),
			})},
			"report": {Flags: withFilters(map[string]complete.Predictor{
				"format": predict.Set{"term", "md", "html"},
				"o":      predict.Files("*"),
				"width":  predict.Something,
			})},
			"categories": {Flags: map[string]complete.Predictor{
				"type":    predictType,
				"create":  predict.Something,
				"color":   predict.Something,
				"delete":  predict.Something,
				"suggest": predict.Something,
			}},
			"record": {Flags: map[string]complete.Predictor{
				"type":        predictType,
				"amount":      predict.Something,
				"note":        predict.Something,
				"category":    predict.Something,
				"association": predict.Something,
				"at":          predict.Something,
			}},
			"help":     {},
			"flags":    {},
			"commands": {},
		},
	}
}
