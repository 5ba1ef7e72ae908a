package hal

// RegAddress identifies a logical register by the control-port strobe line
// that latches it.
type RegAddress uint8

const (
	AddressLow  RegAddress = 0x01
	AddressHigh RegAddress = 0x02
	Control     RegAddress = 0x04
)

func (a RegAddress) String() string {
	switch a {
	case AddressLow:
		return "address-low"
	case AddressHigh:
		return "address-high"
	case Control:
		return "control"
	}
	return "unknown"
}

// Line is a control-port line that is not a strobe.
type Line uint8

const (
	LineOutputEnable Line = 0x08
	LineChipEnable   Line = 0x10
	LineReadWrite    Line = 0x20
)

// ControlLines is every line on the control port.
const ControlLines = uint8(AddressLow) | uint8(AddressHigh) | uint8(Control) |
	uint8(LineOutputEnable) | uint8(LineChipEnable) | uint8(LineReadWrite)

type Register interface {
	GetAddress() RegAddress
	GetValue() uint8
	SetValue(value uint8)
}
