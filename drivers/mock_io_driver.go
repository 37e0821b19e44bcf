package drivers

import (
	"context"
	"fmt"
	"io"
)

// MockOutput is a fake output pin. Set states are remembered and can
// optionally be streamed to a writer for debugging.
type MockOutput struct {
	state            bool
	pin              uint16
	writeTo          io.Writer
	writeStateChange bool
}

func (mo *MockOutput) GetState() (bool, error) {
	return mo.state, nil
}

func (mo *MockOutput) Set(state bool) error {
	if mo.writeStateChange && state != mo.state {
		fmt.Fprintf(mo.writeTo, "[pin %d] state changed to %v\n", mo.pin, state)
	}
	mo.state = state
	return nil
}

// MockInput is a fake input pin. Tests flip State directly, feed edges
// through TriggerEdge and deliver push events through FirePush.
type MockInput struct {
	State bool
	pin   uint16

	listener    EventListener
	edgePending bool
	edgeArmed   bool
}

func (mi *MockInput) GetState() (bool, error) {
	return mi.State, nil
}

func (mi *MockInput) SubscribeToPushEvent(listener EventListener) error {
	mi.listener = listener
	return nil
}

// FirePush delivers a push event to the subscribed listener, if any.
func (mi *MockInput) FirePush(event PushEvent) {
	if mi.listener != nil {
		mi.listener.FireEvent(event)
	}
}

func (mi *MockInput) StartEdgeDetect() error {
	mi.edgeArmed = true
	return nil
}

func (mi *MockInput) EdgeDetected() bool {
	detected := mi.edgePending
	mi.edgePending = false
	return detected
}

func (mi *MockInput) StopEdgeDetect() {
	mi.edgeArmed = false
}

// TriggerEdge simulates a rising edge on the pin, latched until the
// next EdgeDetected poll.
func (mi *MockInput) TriggerEdge() {
	if mi.edgeArmed {
		mi.edgePending = true
	}
}

type MockIoDriver struct {
	inputs  []*MockInput
	outputs []*MockOutput
	ready   bool
}

func (md *MockIoDriver) Setup(ctx context.Context, inputs []uint16, outputs []uint16) error {
	for _, inPin := range inputs {
		md.inputs = append(md.inputs, &MockInput{pin: inPin})
	}
	for _, outPin := range outputs {
		md.outputs = append(md.outputs, &MockOutput{pin: outPin})
	}
	md.ready = true
	return nil
}

func (md *MockIoDriver) Close() error {
	md.ready = false
	return nil
}

func (md *MockIoDriver) String() string {
	return "mock_driver"
}

func (md *MockIoDriver) IsReady() bool {
	return md.ready
}

func (md *MockIoDriver) GetInput(pin uint16) (DigitalInput, error) {
	for _, input := range md.inputs {
		if pin == input.pin {
			return input, nil
		}
	}
	return nil, fmt.Errorf("mock input %d not found", pin)
}

func (md *MockIoDriver) GetOutput(pin uint16) (DigitalOutput, error) {
	for _, output := range md.outputs {
		if pin == output.pin {
			return output, nil
		}
	}
	return nil, fmt.Errorf("mock output %d not found", pin)
}

func (md *MockIoDriver) GetAllIo() (inputs []uint16, outputs []uint16) {
	for _, input := range md.inputs {
		inputs = append(inputs, input.pin)
	}
	for _, output := range md.outputs {
		outputs = append(outputs, output.pin)
	}
	return
}

// GetMockInput returns the concrete mock input, for tests that need to
// trigger edges or push events.
func (md *MockIoDriver) GetMockInput(pin uint16) (*MockInput, error) {
	for _, input := range md.inputs {
		if pin == input.pin {
			return input, nil
		}
	}
	return nil, fmt.Errorf("mock input %d not found", pin)
}

// MonitorStateChanges streams output pin transitions to writer.
func (md *MockIoDriver) MonitorStateChanges(writer io.Writer) {
	for _, out := range md.outputs {
		out.writeTo = writer
		out.writeStateChange = true
	}
}
