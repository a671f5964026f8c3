package stats

import "math"

// InformationCriteria holds likelihood-based model selection scores.
type InformationCriteria struct {
	AIC  float64 `json:"aic"`
	AICc float64 `json:"aicc"`
	BIC  float64 `json:"bic"`
}

// CalculateIC computes AIC, AICc and BIC from a log-likelihood, the number
// of estimated parameters k and the number of observations n.
func CalculateIC(logLik float64, k, n int) InformationCriteria {
	kf := float64(k)
	nf := float64(n)

	ic := InformationCriteria{
		AIC: -2*logLik + 2*kf,
		BIC: -2*logLik + kf*math.Log(nf),
	}

	// AICc is undefined once k+1 reaches n.
	if nf-kf-1 > 0 {
		ic.AICc = ic.AIC + 2*kf*(kf+1)/(nf-kf-1)
	} else {
		ic.AICc = math.Inf(1)
	}
	return ic
}
