package main

import (
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

var classNames = predict.Set{"Acción/ETF", "Cripto", "CETES", "Inmueble", "Otro"}

func entryCompletion() *complete.Command {
	return &complete.Command{
		Flags: map[string]complete.Predictor{
			"date":   predict.Nothing,
			"type":   classNames,
			"ticker": predict.Something,
			"qty":    predict.Something,
			"price":  predict.Something,
			"op":     predict.Set{"Compra", "Venta"},
			"venue":  predict.Something,
			"sector": predict.Something,
			"fee":    predict.Something,
			"manual": predict.Something,
		},
	}
}

// completion describes the command tree for shell completion. Running the
// binary with COMP_LINE set prints candidates and exits.
func completion() *complete.Command {
	return &complete.Command{
		Flags: map[string]complete.Predictor{
			"config": predict.Files("*.toml"),
			"user":   predict.Something,
		},
		Sub: map[string]*complete.Command{
			"add":    entryCompletion(),
			"edit":   entryCompletion(),
			"delete": {},
			"list":   {Flags: map[string]complete.Predictor{"raw": predict.Nothing}},
			"import": {Args: predict.Files("*.csv")},
			"export": {Flags: map[string]complete.Predictor{
				"valued": predict.Nothing,
				"o":      predict.Files("*.csv"),
			}},
			"value": {Flags: map[string]complete.Predictor{
				"rows": predict.Nothing,
				"raw":  predict.Nothing,
			}},
			"set-price": {},
			"simulate": {Flags: map[string]complete.Predictor{
				"days":  predict.Something,
				"class": predict.Set{"equity", "crypto"},
				"raw":   predict.Nothing,
			}},
			"version": {Flags: map[string]complete.Predictor{"short": predict.Nothing}},
			"help":    {},
			"flags":   {},
		},
	}
}
