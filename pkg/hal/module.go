package hal

// Programmer is the set of operations the command layer uses to drive a shield.
type Programmer interface {
	EnterCommunicationMode() error
	EnterProgrammerMode() error
	WriteRegister(reg RegAddress, value uint8) error
	ReadRegister(reg RegAddress) uint8
	WriteDataBus(value uint8) error
	ReadDataBus() (uint8, error)
	SetControlLine(line Line, state bool) error
	Log(severity string, msg string)
}
