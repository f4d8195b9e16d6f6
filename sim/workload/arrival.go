package workload

import (
	"math"
	"math/rand/v2"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"
)

// ArrivalSampler generates inter-event times for one traffic process.
type ArrivalSampler interface {
	// SampleIAT returns the next inter-event time in microseconds.
	// Always returns a positive value (>= 1).
	SampleIAT(rng *rand.Rand) int64
}

// PoissonSampler draws exponential gaps (CV=1).
type PoissonSampler struct {
	rateMicros float64 // events per microsecond
}

func (s *PoissonSampler) SampleIAT(rng *rand.Rand) int64 {
	return atLeastOneTick(rng.ExpFloat64() / s.rateMicros)
}

// GammaSampler draws Gamma gaps with a given mean and CV.
// CV > 1 gives bursty traffic, e.g. trucks released by a gate in platoons.
type GammaSampler struct {
	alpha float64 // shape, 1/CV²
	beta  float64 // rate per microsecond, alpha/mean
}

func (s *GammaSampler) SampleIAT(rng *rand.Rand) int64 {
	d := distuv.Gamma{Alpha: s.alpha, Beta: s.beta, Src: rng}
	return atLeastOneTick(d.Rand())
}

// WeibullSampler draws Weibull gaps with a given mean and CV.
type WeibullSampler struct {
	k      float64
	lambda float64 // microseconds
}

func (s *WeibullSampler) SampleIAT(rng *rand.Rand) int64 {
	d := distuv.Weibull{K: s.k, Lambda: s.lambda, Src: rng}
	return atLeastOneTick(d.Rand())
}

// ConstantArrivalSampler produces evenly spaced events, e.g. a fixed gate schedule.
// It never consumes from the stream.
type ConstantArrivalSampler struct {
	iat int64
}

func (s *ConstantArrivalSampler) SampleIAT(_ *rand.Rand) int64 {
	return s.iat
}

func atLeastOneTick(us float64) int64 {
	if math.IsInf(us, 1) || us > math.MaxInt64/2 {
		return math.MaxInt64 / 2
	}
	iat := int64(math.Round(us))
	if iat < 1 {
		return 1
	}
	return iat
}

// NewArrivalSampler builds the sampler for spec at ratePerMicrosecond
// events per microsecond.
func NewArrivalSampler(spec ArrivalSpec, ratePerMicrosecond float64) ArrivalSampler {
	if ratePerMicrosecond < 1e-15 {
		ratePerMicrosecond = 1e-15
	}
	mean := 1.0 / ratePerMicrosecond

	switch spec.Process {
	case "gamma":
		cv := cvOrDefault(spec)
		alpha := 1.0 / (cv * cv)
		if alpha < 0.01 {
			logrus.Warnf("gamma shape %.4f (CV=%.1f) is too small; using exponential gaps", alpha, cv)
			return &PoissonSampler{rateMicros: ratePerMicrosecond}
		}
		return &GammaSampler{alpha: alpha, beta: alpha / mean}

	case "weibull":
		k := weibullShapeFromCV(cvOrDefault(spec))
		return &WeibullSampler{k: k, lambda: mean / math.Gamma(1.0+1.0/k)}

	case "constant":
		iat := int64(math.Round(mean))
		if iat < 1 {
			iat = 1
		}
		return &ConstantArrivalSampler{iat: iat}

	default:
		// "" and "poisson"; other names are rejected by Validate.
		return &PoissonSampler{rateMicros: ratePerMicrosecond}
	}
}

func cvOrDefault(spec ArrivalSpec) float64 {
	if spec.CV == nil || *spec.CV <= 0 {
		return 1.0
	}
	return *spec.CV
}

// weibullShapeFromCV solves CV² = Γ(1+2/k)/Γ(1+1/k)² - 1 for k by bisection
// over [0.1, 100]. CV decreases in k.
func weibullShapeFromCV(targetCV float64) float64 {
	lo, hi := 0.1, 100.0
	for range 100 {
		mid := (lo + hi) / 2.0
		cv := weibullCV(mid)
		if math.Abs(cv-targetCV) < 0.001 {
			return mid
		}
		if cv > targetCV {
			lo = mid
		} else {
			hi = mid
		}
	}
	logrus.Warnf("weibull shape for CV=%.3f did not converge; using k=%.3f", targetCV, (lo+hi)/2.0)
	return (lo + hi) / 2.0
}

func weibullCV(k float64) float64 {
	g1 := math.Gamma(1.0 + 1.0/k)
	g2 := math.Gamma(1.0 + 2.0/k)
	return math.Sqrt(g2/(g1*g1) - 1.0)
}
