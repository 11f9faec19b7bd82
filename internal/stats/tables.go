package stats

import "math"

// TMM returns the target movement modifier for a movement point value.
func TMM(mp int) int {
	switch {
	case mp <= 2:
		return 0
	case mp <= 4:
		return 1
	case mp <= 6:
		return 2
	case mp <= 9:
		return 3
	case mp <= 12:
		return 4
	case mp <= 17:
		return 5
	case mp <= 24:
		return 6
	default:
		return 7
	}
}

// SpeedFactor uses the greater of run MP and run MP plus half the jump MP,
// rounded to two decimals.
func SpeedFactor(runMP, jumpMP int) float64 {
	speedMP := runMP
	if jumpMP > 0 {
		speedMP = max(speedMP, runMP+int(math.Ceil(float64(jumpMP)/2)))
	}
	base := max(1.0+float64(speedMP-5)/10.0, 0.1)
	return math.Round(math.Pow(base, 1.2)*100) / 100
}

// MovementHeat is the heat of the most heat-intensive movement mode: running or jumping.
func MovementHeat(jumpMP int) int {
	heat := 2
	if jumpMP > 0 {
		heat = max(heat, jumpMP, 3)
	}
	return heat
}
