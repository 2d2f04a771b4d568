package types

// ------------------------
// Power measurement model
// ------------------------

// Sentinel measurement values. Real readings never reach these: supply and
// feedback voltages are bounded by the 6 V rail ceiling, and the feedback
// resistor floor (see conf.MinProgResistorOhms) caps computed charging
// current well below UnknownMilliAmps.
const (
	InvalidMilliVolts uint16 = 0xFFFF
	InvalidMilliAmps  uint16 = 0xFFFF
	UnknownMilliAmps  uint16 = 0xFFFE
)

// InvalidResistance marks an unusable feedback-resistor value in the
// persisted configuration.
const InvalidResistance uint16 = 1

// PowerReading is one refresh's worth of raw samples. It is overwritten by
// each refresh and read-only in between.
type PowerReading struct {
	SupplyMilliVolts  uint16
	ProgMilliVolts    uint16 // charger feedback pin, after the RC filter
	ProgPinMode       PinMode
	ProgPinLevel      bool
	ChargingMilliAmps uint16
}

// Valid reports whether every measured field carries a real value.
func (r PowerReading) Valid() bool {
	return r.SupplyMilliVolts != InvalidMilliVolts &&
		r.ProgMilliVolts != InvalidMilliVolts &&
		r.ChargingMilliAmps != InvalidMilliAmps &&
		r.ProgPinMode != PinModeInvalid
}

// ------------------------
// Charger / battery states
// ------------------------

// ChargerState classifies what the charger IC is doing.
type ChargerState uint8

const (
	ChargerError ChargerState = iota
	ChargerUnknown
	ChargerCC // constant-current phase
	ChargerCV // constant-voltage phase
	ChargerFloating
	ChargerOff
)

func (s ChargerState) String() string {
	switch s {
	case ChargerError:
		return "error"
	case ChargerCC:
		return "charging_cc"
	case ChargerCV:
		return "charging_cv"
	case ChargerFloating:
		return "floating"
	case ChargerOff:
		return "turned_off"
	default:
		return "unknown"
	}
}

// Charging reports whether the charger is actively pushing current.
func (s ChargerState) Charging() bool {
	return s == ChargerCC || s == ChargerCV
}

// BatteryState classifies the battery from the supply rail and the charger
// state.
type BatteryState uint8

const (
	BatteryError BatteryState = iota
	BatteryUnknown
	BatteryEmpty
	BatteryNotCharging
	BatteryCharging
	BatteryFull
)

func (s BatteryState) String() string {
	switch s {
	case BatteryError:
		return "error"
	case BatteryEmpty:
		return "empty"
	case BatteryNotCharging:
		return "not_charging"
	case BatteryCharging:
		return "charging"
	case BatteryFull:
		return "fully_charged"
	default:
		return "unknown"
	}
}
