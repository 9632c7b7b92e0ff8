package aio

import "math"

// Pigeon scaling constants.
//
// ADC: 10 bit code, full scale 1023 = 10.065 V.
// DAC: the value 1000 corresponds to an output of 10 V (100 %).
const (
	adcFullScaleVolts  = 10.065
	adcFullScaleCode   = 1023.0
	dacCodesPerPercent = 10

	voltsPrecision = 1000 // 3 decimals
)

// Decode converts a raw ADC code into volts, rounded to 3 decimals.
func Decode(raw uint16) float64 {
	v := float64(raw) * adcFullScaleVolts / adcFullScaleCode
	return math.Round(v*voltsPrecision) / voltsPrecision
}

// Encode converts an output percentage into a raw DAC code.
func Encode(percent float64) int16 {
	return int16(math.Round(percent * dacCodesPerPercent))
}
