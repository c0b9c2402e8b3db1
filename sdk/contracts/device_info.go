package contracts

// DeviceInfo contains information about a MIDI input port.
type DeviceInfo struct {
	Name         string // Port name.
	Manufacturer string // Device manufacturer, when the backend knows it.
	EntityName   string // Name of the entity to which the port belongs.
}
