package arimax

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

var errFilter = errors.New("kalman filter diverged")

// stateSpace is the Harvey representation of a zero-mean ARMA(p, q):
//
//	w_t       = Z a_t
//	a_{t+1}   = T a_t + R e_{t+1}
//
// with r = max(p, q+1) states, T the companion matrix of the AR
// coefficients and R = [1, theta_1, ..., theta_{r-1}]'.
type stateSpace struct {
	r  int
	T  *mat.Dense
	R  *mat.VecDense
	RR *mat.Dense
}

func newStateSpace(ar, ma []float64) *stateSpace {
	r := max(len(ar), len(ma)+1)

	T := mat.NewDense(r, r, nil)
	for i, phi := range ar {
		T.Set(i, 0, phi)
	}
	for i := 0; i+1 < r; i++ {
		T.Set(i, i+1, 1)
	}

	R := mat.NewVecDense(r, nil)
	R.SetVec(0, 1)
	for i, theta := range ma {
		R.SetVec(i+1, theta)
	}

	RR := mat.NewDense(r, r, nil)
	RR.Outer(1, R, R)

	return &stateSpace{r: r, T: T, R: R, RR: RR}
}

// stationaryCov solves P = T P T' + R R' for the unconditional state
// covariance through vec(P) = (I - T⊗T)^-1 vec(RR').
func (s *stateSpace) stationaryCov() (*mat.Dense, error) {
	r := s.r
	var kron mat.Dense
	kron.Kronecker(s.T, s.T)

	A := mat.NewDense(r*r, r*r, nil)
	for i := 0; i < r*r; i++ {
		A.Set(i, i, 1)
	}
	A.Sub(A, &kron)

	b := mat.NewVecDense(r*r, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < r; j++ {
			b.SetVec(i*r+j, s.RR.At(i, j))
		}
	}

	var x mat.VecDense
	if err := x.SolveVec(A, b); err != nil {
		// An ill-conditioned system still yields a solution.
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, err
		}
	}

	P := mat.NewDense(r, r, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < r; j++ {
			P.Set(i, j, x.AtVec(i*r+j))
		}
	}
	return P, nil
}

// filterResult is the output of one pass of the filter with unit
// innovation variance.
type filterResult struct {
	innovations []float64
	variances   []float64
	// state and cov are the one-step-ahead prediction after the last
	// observation.
	state *mat.VecDense
	cov   *mat.Dense
}

// sigma2 is the concentrated maximum-likelihood innovation variance.
func (f *filterResult) sigma2() float64 {
	s := 0.0
	for i, v := range f.innovations {
		s += v * v / f.variances[i]
	}
	return s / float64(len(f.innovations))
}

// logLik is the exact Gaussian log-likelihood with sigma2 concentrated out.
func (f *filterResult) logLik() float64 {
	n := float64(len(f.innovations))
	sumLogF := 0.0
	for _, F := range f.variances {
		sumLogF += math.Log(F)
	}
	return -n/2*(math.Log(2*math.Pi)+1+math.Log(f.sigma2())) - sumLogF/2
}

// filter runs the Kalman filter over w starting from the stationary
// distribution.
func (s *stateSpace) filter(w []float64) (*filterResult, error) {
	P, err := s.stationaryCov()
	if err != nil {
		return nil, err
	}

	r := s.r
	a := mat.NewVecDense(r, nil)
	out := &filterResult{
		innovations: make([]float64, len(w)),
		variances:   make([]float64, len(w)),
	}

	var (
		Ta   mat.VecDense
		TP   mat.Dense
		TPT  mat.Dense
		gain = mat.NewVecDense(r, nil)
		kk   = mat.NewDense(r, r, nil)
	)
	for t, obs := range w {
		v := obs - a.AtVec(0)
		F := P.At(0, 0)
		if !(F > 0) || math.IsInf(F, 0) {
			return nil, errFilter
		}
		out.innovations[t] = v
		out.variances[t] = F

		// K = T P Z' / F
		TP.Mul(s.T, P)
		for i := 0; i < r; i++ {
			gain.SetVec(i, TP.At(i, 0)/F)
		}

		Ta.MulVec(s.T, a)
		a.AddScaledVec(&Ta, v, gain)

		TPT.Mul(&TP, s.T.T())
		kk.Outer(F, gain, gain)
		next := mat.NewDense(r, r, nil)
		next.Add(&TPT, s.RR)
		next.Sub(next, kk)
		P = next
	}
	out.state = a
	out.cov = P
	return out, nil
}
