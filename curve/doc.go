// Package curve holds the raw data model for time-temperature
// superposition analysis: observations of a material property grouped by
// measurement temperature.
//
// A Set is constructed once from in-memory observations and is read-only
// afterwards. The external loader is responsible for parsing tabular
// sources; this package only requires finite numeric values:
//
//	obs := []curve.Observation{
//	    {X: -2, Y: 9.1, Temperature: 20},
//	    {X: -1, Y: 8.7, Temperature: 20},
//	    // ...
//	}
//	set, err := curve.NewSet(obs)
//
// Each temperature group must contain at least two points; groups are
// sorted by X during ingestion.
package curve
