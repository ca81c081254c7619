package service

import "math"

func BMI(weightKg, heightCm *float64) *float64 {
	if weightKg == nil || heightCm == nil || *heightCm <= 0 || *weightKg <= 0 {
		return nil
	}
	h := *heightCm / 100
	v := math.Round(*weightKg/(h*h)*10) / 10
	return &v
}

func BMICategory(v *float64) string {
	switch {
	case v == nil:
		return "unknown"
	case *v < 18.5:
		return "Underweight"
	case *v < 25:
		return "Normal"
	case *v < 30:
		return "Overweight"
	default:
		return "Obese"
	}
}
