package tts

// Speed limits accepted by every engine.
const (
	MinSpeed     = 0.5
	MaxSpeed     = 2.0
	DefaultSpeed = 1.0
)

// ValidateSpeed returns ErrInvalidSpeed when speed is outside the supported
// range.
func ValidateSpeed(speed float64) error {
	if speed < MinSpeed || speed > MaxSpeed {
		return ErrInvalidSpeed
	}
	return nil
}

// NormalizeSpeed maps an unset speed to DefaultSpeed and clamps the rest into
// range.
func NormalizeSpeed(speed float64) float64 {
	switch {
	case speed == 0:
		return DefaultSpeed
	case speed < MinSpeed:
		return MinSpeed
	case speed > MaxSpeed:
		return MaxSpeed
	default:
		return speed
	}
}

// LengthScale converts a speed multiplier to the length scale used by VITS
// style engines: 0.5 speed is scale 2.0, 2.0 speed is scale 0.5.
func LengthScale(speed float64) float64 {
	return 1 / NormalizeSpeed(speed)
}
