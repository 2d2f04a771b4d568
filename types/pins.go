package types

// PinMode mirrors the three digital pin configurations the hardware
// distinguishes, plus an explicit invalid marker for pins whose state
// cannot be resolved.
type PinMode uint8

const (
	Input PinMode = iota
	Output
	InputPullup
	PinModeInvalid
)

func (m PinMode) String() string {
	switch m {
	case Input:
		return "input"
	case Output:
		return "output"
	case InputPullup:
		return "input_pullup"
	default:
		return "invalid"
	}
}

// AnalogRef selects the ADC reference voltage.
type AnalogRef uint8

const (
	RefSupply AnalogRef = iota // the supply rail (AVcc)
	RefBandgap1V1
	RefExternal
	RefInvalid
)

func (r AnalogRef) String() string {
	switch r {
	case RefSupply:
		return "supply"
	case RefBandgap1V1:
		return "bandgap_1v1"
	case RefExternal:
		return "external"
	default:
		return "invalid"
	}
}
