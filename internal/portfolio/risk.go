package portfolio

// RiskLevel classifies how much of the portfolio is committed to open positions
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Exposure thresholds for the risk levels, as fractions of total value
const (
	CriticalExposure = 0.15
	HighExposure     = 0.10
	MediumExposure   = 0.05
)

// ClassifyRisk maps an exposure fraction onto a risk level
func ClassifyRisk(exposureFraction float64) RiskLevel {
	switch {
	case exposureFraction > CriticalExposure:
		return RiskCritical
	case exposureFraction > HighExposure:
		return RiskHigh
	case exposureFraction > MediumExposure:
		return RiskMedium
	default:
		return RiskLow
	}
}

// IsWithinRiskLimits checks exposure against the critical ceiling
func IsWithinRiskLimits(exposure, totalValue float64) bool {
	if totalValue <= 0 {
		return false
	}
	return exposure/totalValue <= CriticalExposure
}
