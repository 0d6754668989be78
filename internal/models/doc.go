// Package models fits the statistical models used to test ice-storm treatment
// effects on fine-root Δ14C.
//
//   - [FitOLS]: linear model on a treatment-coded [Design]
//   - [SequentialANOVA]: type I sums of squares for the terms of a linear model
//   - [OneWayANOVA], [TukeyHSD], [PairwiseT]: one-way ANOVA and post-hoc contrasts
//   - [FitRandomIntercept]: mixed model with a random intercept per plot, fitted
//     by ML or REML
//   - [LikelihoodRatio], [RandomEffectTest], [MixedFit.Wald]: significance tests
//
// # Fitting a mixed model
//
//	d, _ := models.NewDesign(len(y), []models.Factor{trt}, false)
//	full, _ := models.FitRandomIntercept(y, d, plots, models.ML)
//	null, _ := models.FitRandomIntercept(y, models.InterceptOnly(len(y)), plots, models.ML)
//	lrt, _ := models.LikelihoodRatio(null, full)
package models
