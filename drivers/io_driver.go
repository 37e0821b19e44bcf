package drivers

import "context"

// IoDriver supplies digital pins to the board and the kit things. The
// board only ever asks for outputs (the 3-wire shift bus plus the
// relay output-enable line); inputs feed push events and the frequency
// switch producer.
type IoDriver interface {
	Setup(ctx context.Context, inputs []uint16, outputs []uint16) error
	Close() error
	String() string
	IsReady() bool
	GetInput(pin uint16) (DigitalInput, error)
	GetOutput(pin uint16) (DigitalOutput, error)
	GetAllIo() (inputs []uint16, outputs []uint16)
}

func MapAllIoDrivers() map[string]IoDriver {
	drivers := []IoDriver{
		&GpIO{},
		&McpIO{},
		&MockIoDriver{},
	}

	mapped := make(map[string]IoDriver)
	for _, driver := range drivers {
		mapped[driver.String()] = driver
	}
	return mapped
}

type DigitalInput interface {
	GetState() (bool, error)
	SubscribeToPushEvent(EventListener) error
}

type DigitalOutput interface {
	GetState() (bool, error)
	Set(bool) error
}

// EdgePoller is implemented by inputs that can latch rising edges in
// hardware between polls. The frequency switch producer prefers this
// over raw state sampling, which can miss short pulses.
type EdgePoller interface {
	StartEdgeDetect() error
	EdgeDetected() bool
	StopEdgeDetect()
}

// PushEvent kinds delivered to an EventListener. Edge discrimination
// (debounce, click vs long press) is the driver's business; the kit
// only consumes the resulting events.
type PushEvent int

const (
	PushEventSinglePress PushEvent = 0
	PushEventDoublePress PushEvent = 1
	PushEventLongPress   PushEvent = 2
	PushEventPressed     PushEvent = 3
	PushEventReleased    PushEvent = 4
)

type EventListener interface {
	FireEvent(PushEvent)
}
