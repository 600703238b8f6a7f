// Package scoring folds pattern validation results into a single truth
// score in [0,1].
//
// The overall score is a weighted sum of three clamped components:
//
//	security    = max(0, 1 - 0.3*critical - 0.15*high - 0.05*medium)
//	quality     = post-validation quality score / 100
//	performance = 1.0 when pre-validation met its budget, else 0.8
//
// Weights, penalties and status thresholds come from Config. Scores
// recorded through CalculateScore or Verify are kept in a bounded history
// that feeds Dashboard.
package scoring
