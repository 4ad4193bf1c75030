package model

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"DemandCast/internal/domain/models"
)

// TrainOptions controls the training run. The seed fixes the validation
// split and every stochastic element, so two runs with the same seed and the
// same matrix produce the same artifact weights and metrics.
type TrainOptions struct {
	ValidationSplit float64
	Seed            int64
	Ridge           float64
}

// Train fits a ridge regressor on the labeled matrix and returns a new
// immutable artifact. Features are standardized with training-set statistics;
// the closed-form normal equations keep the fit deterministic.
func Train(samples []models.TrainingSample, schema []string, opts TrainOptions) (*models.ModelArtifact, error) {
	n := len(samples)
	d := len(schema)
	if n < 4 {
		return nil, models.ErrInsufficientData
	}
	for i, s := range samples {
		if len(s.Features) != d {
			return nil, fmt.Errorf("sample %d: expected %d features, got %d: %w", i, d, len(s.Features), models.ErrFeatureSchema)
		}
	}
	if opts.ValidationSplit <= 0 || opts.ValidationSplit >= 1 {
		opts.ValidationSplit = 0.2
	}
	if opts.Ridge <= 0 {
		opts.Ridge = 1.0
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	perm := rng.Perm(n)

	nVal := int(math.Round(opts.ValidationSplit * float64(n)))
	if n-nVal < d+1 {
		// Too few rows to hold anything out; validate on the training set.
		nVal = 0
	}
	trainIdx := perm[nVal:]
	valIdx := perm[:nVal]
	if nVal == 0 {
		valIdx = trainIdx
	}

	means, stds := featureStats(samples, trainIdx, d)

	// Centered target and standardized features.
	meanY := 0.0
	for _, i := range trainIdx {
		meanY += samples[i].Label
	}
	meanY /= float64(len(trainIdx))

	// Normal equations: (Z'Z + ridge*I) w = Z'(y - meanY)
	zz := make([][]float64, d)
	zy := make([]float64, d)
	for i := range zz {
		zz[i] = make([]float64, d)
	}
	for _, i := range trainIdx {
		z := standardize(samples[i].Features, means, stds)
		y := samples[i].Label - meanY
		for a := 0; a < d; a++ {
			zy[a] += z[a] * y
			for b := 0; b < d; b++ {
				zz[a][b] += z[a] * z[b]
			}
		}
	}
	for a := 0; a < d; a++ {
		zz[a][a] += opts.Ridge
	}

	weights, err := solve(zz, zy)
	if err != nil {
		return nil, fmt.Errorf("fit regressor: %w", err)
	}

	trainedAt := time.Now().UTC()
	artifact := &models.ModelArtifact{
		Version:         "v" + trainedAt.Format("20060102_150405"),
		TrainedAt:       trainedAt,
		FeatureSchema:   append([]string(nil), schema...),
		Weights:         weights,
		Intercept:       meanY,
		FeatureMeans:    means,
		FeatureStds:     stds,
		TrainingSamples: len(trainIdx),
	}

	artifact.Metrics = evaluate(artifact, samples, valIdx)
	artifact.ResidualStd = artifact.Metrics.RMSE
	return artifact, nil
}

func featureStats(samples []models.TrainingSample, idx []int, d int) (means, stds []float64) {
	means = make([]float64, d)
	stds = make([]float64, d)
	n := float64(len(idx))
	for _, i := range idx {
		for j, v := range samples[i].Features {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= n
	}
	for _, i := range idx {
		for j, v := range samples[i].Features {
			dv := v - means[j]
			stds[j] += dv * dv
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / n)
		if stds[j] == 0 {
			// Constant feature; keep it neutral after centering.
			stds[j] = 1
		}
	}
	return means, stds
}

func standardize(x, means, stds []float64) []float64 {
	z := make([]float64, len(x))
	for i := range x {
		z[i] = (x[i] - means[i]) / stds[i]
	}
	return z
}

// evaluate computes validation metrics. MAPE uses max(actual, 1) as the
// denominator so zero-actual periods never divide by zero.
func evaluate(a *models.ModelArtifact, samples []models.TrainingSample, idx []int) models.ModelMetrics {
	var sumAbs, sumSq, sumPct float64
	for _, i := range idx {
		pred := rawPredict(a, samples[i].Features)
		diff := math.Abs(pred - samples[i].Label)
		sumAbs += diff
		sumSq += diff * diff
		sumPct += diff / math.Max(samples[i].Label, 1)
	}
	n := float64(len(idx))
	return models.ModelMetrics{
		MAE:  sumAbs / n,
		MAPE: sumPct / n * 100,
		RMSE: math.Sqrt(sumSq / n),
	}
}

func rawPredict(a *models.ModelArtifact, x []float64) float64 {
	y := a.Intercept
	for i, w := range a.Weights {
		y += w * (x[i] - a.FeatureMeans[i]) / a.FeatureStds[i]
	}
	return y
}

// solve performs Gaussian elimination with partial pivoting on a copy of the
// inputs.
func solve(m [][]float64, b []float64) ([]float64, error) {
	d := len(b)
	a := make([][]float64, d)
	for i := range m {
		a[i] = append(append([]float64(nil), m[i]...), b[i])
	}
	for col := 0; col < d; col++ {
		pivot := col
		for r := col + 1; r < d; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("singular system at column %d", col)
		}
		a[col], a[pivot] = a[pivot], a[col]
		for r := col + 1; r < d; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c <= d; c++ {
				a[r][c] -= f * a[col][c]
			}
		}
	}
	x := make([]float64, d)
	for i := d - 1; i >= 0; i-- {
		sum := a[i][d]
		for j := i + 1; j < d; j++ {
			sum -= a[i][j] * x[j]
		}
		x[i] = sum / a[i][i]
	}
	return x, nil
}
