// Package mastercurve assembles time-temperature superposition master
// curves from multi-temperature measurements.
//
// The pipeline runs four stages in strict order: shift estimation,
// fusion into one curve, penalized-spline smoothing, and a bootstrap
// confidence band. Each stage is available individually through a
// Pipeline, or all together through Run:
//
//	result, err := mastercurve.Run(ctx, observations,
//		mastercurve.WithMethod(shift.WLF),
//		mastercurve.WithReferenceTemperature(300),
//		mastercurve.WithReplicates(500),
//		mastercurve.WithSeed(1),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	y := result.Evaluate(2.5)
//	a, _ := result.Shifts.Factor(320)
//
// Calling a stage method out of sequence fails with ErrStageOrder, so a
// half-built pipeline can never produce a band for a stale fit.
package mastercurve
