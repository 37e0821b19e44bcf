// Package io22d08 runs the eletechsup IO22D08 relay/display board as a
// small controller kit: relay channels with delayed-off timers,
// frequency-controlled relays, the multiplexed 7-segment display, and
// HomeKit/MQTT/HTTP surfaces on top.
package io22d08

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	dnslog "github.com/brutella/dnssd/log"
	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	hklog "github.com/brutella/hap/log"
	"github.com/pkg/errors"

	"github.com/hubertat/io22d08/board"
	"github.com/hubertat/io22d08/drivers"
	"github.com/hubertat/io22d08/mqtt"
)

const defaultHomeKitDirectory = "./homekit"
const homeKitBridgeName = "io22d08"
const homeKitBridgeAuthor = "github.com/hubertat"

const colonFlashInterval = 500 * time.Millisecond

type Kit struct {
	Name string

	Board      *board.Board
	Channels   []*Channel
	FreqInputs []*FreqInput

	HkPin       string
	HkDirectory string
	HkAddress   string
	HkDebug     bool

	MqttBroker string
	HttpAddr   string

	Gpio       *drivers.GpIO
	Mcp23017   *drivers.McpIO
	FakeDriver *drivers.MockIoDriver

	ioDrivers  map[string]drivers.IoDriver
	mqttClient *mqtt.MqttClient

	lastColonToggle time.Time
}

func (k *Kit) getInPins(driverName string) (pins []uint16) {
	for _, fi := range k.FreqInputs {
		if strings.EqualFold(fi.DriverName, driverName) {
			pins = append(pins, fi.InPin)
		}
	}
	for _, ch := range k.Channels {
		for _, controller := range ch.ControlBy {
			name := controller.DriverName
			if len(name) == 0 {
				name = k.Board.DriverName
			}
			if strings.EqualFold(name, driverName) {
				pins = append(pins, controller.Pin)
			}
		}
	}

	return
}

func (k *Kit) getOutPins(driverName string) (pins []uint16) {
	if strings.EqualFold(k.Board.DriverName, driverName) {
		pins = append(pins, k.Board.Pins()...)
	}

	return
}

func (k *Kit) InitDrivers(ctx context.Context) error {
	if k.Board == nil {
		return errors.New("board configuration missing")
	}

	k.ioDrivers = make(map[string]drivers.IoDriver)

	if k.Gpio != nil {
		k.ioDrivers[k.Gpio.String()] = k.Gpio
	}

	if k.Mcp23017 != nil {
		k.ioDrivers[k.Mcp23017.String()] = k.Mcp23017
	}

	if k.FakeDriver != nil {
		k.ioDrivers[k.FakeDriver.String()] = k.FakeDriver
	}

	for _, driver := range k.ioDrivers {
		err := driver.Setup(ctx, k.getInPins(driver.String()), k.getOutPins(driver.String()))
		if err != nil {
			return errors.Wrapf(err, "failed to setup %s driver", driver)
		}
	}

	_, boardDriverFound := k.ioDrivers[k.Board.DriverName]
	if !boardDriverFound {
		return errors.Errorf("board driver %s not set up", k.Board.DriverName)
	}

	for _, fi := range k.FreqInputs {
		_, driverFound := k.ioDrivers[fi.GetDriverName()]
		if !driverFound {
			return errors.Errorf("driver %s not set up", fi.GetDriverName())
		}
	}

	return nil
}

func (k *Kit) InitIos() error {
	err := k.Board.Init(k.ioDrivers[k.Board.DriverName])
	if err != nil {
		return errors.Wrap(err, "failed to init board")
	}

	for _, ch := range k.Channels {
		err = ch.Init(k.Board)
		if err != nil {
			return errors.Wrap(err, "failed to init channel")
		}
	}

	for _, fi := range k.FreqInputs {
		err = fi.Init(k.ioDrivers[fi.GetDriverName()], k.Board)
		if err != nil {
			return errors.Wrap(err, "failed to init freq input")
		}
	}

	return nil
}

// MatchControllers subscribes channels to the push events of their
// configured control inputs.
func (k *Kit) MatchControllers() error {
	for _, ch := range k.Channels {
		for _, controller := range ch.ControlBy {
			driverName := controller.DriverName
			if len(driverName) == 0 {
				driverName = k.Board.DriverName
			}

			driver, driverReady := k.ioDrivers[driverName]
			if !driverReady {
				return errors.Errorf("matching controller failed, driver (%s) not present or not ready", driverName)
			}

			input, err := driver.GetInput(controller.Pin)
			if err != nil {
				return errors.Wrapf(err, "matching controller failed for channel %s", ch.Name)
			}

			err = input.SubscribeToPushEvent(ch)
			if err != nil {
				return errors.Wrapf(err, "failed to subscribe channel %s to push event", ch.Name)
			}
		}
	}

	return nil
}

// StartSampling launches the frequency edge producers.
func (k *Kit) StartSampling(ctx context.Context) {
	for _, fi := range k.FreqInputs {
		fi.StartSampling(ctx)
	}
}

// StartRefresh drives the display/relay multiplexing. This is the only
// path that moves buffered state onto the hardware, so it runs on its
// own fast cadence, independent of the sync loop.
func (k *Kit) StartRefresh(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := k.Board.Refresh()
			if err != nil {
				log.Error("board refresh failed", "err", err)
				// buffer ERR so a recovering bus shows the failure
				k.Board.DisplayMessage(board.MessageErr)
				return
			}
		}
	}
}

// StartTicker runs the sync loop: countdowns, frequency evaluation,
// display composition, HomeKit/MQTT state propagation.
func (k *Kit) StartTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, ch := range k.Channels {
				err := ch.Sync()
				if err != nil {
					log.Warn("channel sync", "err", err)
				}
			}
			for _, fi := range k.FreqInputs {
				err := fi.Sync()
				if err != nil {
					log.Warn("freq input sync", "err", err)
				}
			}
			k.syncDisplay()
		}
	}
}

// syncDisplay composes what the display shows: the soonest-expiring
// delayed-off countdown in whole seconds with a flashing colon, or an
// On/OFF summary of the relays when nothing is counting down.
func (k *Kit) syncDisplay() {
	soonest := board.NoActiveTimer
	for _, ch := range k.Channels {
		remaining := ch.Remaining()
		if remaining < soonest {
			soonest = remaining
		}
	}

	if soonest == board.NoActiveTimer {
		k.Board.SetColon(false)
		message := board.MessageOff
		if k.Board.RelayGet(board.RelaysAll) != 0 {
			message = board.MessageOn
		}
		k.Board.DisplayMessage(message)
		return
	}

	seconds := int64(0)
	if soonest > 0 {
		seconds = int64((soonest + time.Second - 1) / time.Second)
	}
	if seconds > 9999 {
		seconds = 9999
	}
	k.Board.DisplayNumber(uint16(seconds))

	now := time.Now()
	if now.Sub(k.lastColonToggle) >= colonFlashInterval {
		k.Board.ToggleColon()
		k.lastColonToggle = now
	}
}

func (k *Kit) getHkAccessories(firmwareVersion string) (acc []*accessory.A) {
	acc = []*accessory.A{}

	for _, ch := range k.Channels {
		accessory := ch.GetHk()
		if accessory != nil {
			if accessory.Info != nil && accessory.Info.FirmwareRevision != nil {
				accessory.Info.FirmwareRevision.SetValue(firmwareVersion)
			}
			accessory.Id = ch.GetUniqueId()
			acc = append(acc, accessory)
		}
	}

	return
}

func (k *Kit) StartHomeKit(ctx context.Context, firmwareVersion string) error {
	hkName := k.Name
	if len(hkName) < 1 {
		hkName = homeKitBridgeName
	}
	bridge := accessory.NewBridge(accessory.Info{
		Name:         hkName,
		Manufacturer: homeKitBridgeAuthor,
		Firmware:     firmwareVersion,
	})

	var store hap.Store
	if len(k.HkDirectory) > 1 {
		store = hap.NewFsStore(k.HkDirectory)
	} else {
		store = hap.NewFsStore(defaultHomeKitDirectory)
	}
	hkServer, err := hap.NewServer(store, bridge.A, k.getHkAccessories(firmwareVersion)...)
	if err != nil {
		return errors.Wrap(err, "failed to create HomeKit server")
	}
	hkServer.Pin = k.HkPin
	if len(k.HkAddress) > 0 {
		hkServer.Addr = k.HkAddress
	}

	if k.HkDebug {
		hklog.Debug.Enable()
		dnslog.Debug.Enable()
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	signal.Notify(c, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		<-c
		// Stop delivering signals.
		signal.Stop(c)
		// Cancel the context to stop the server.
		cancel()
	}()

	return hkServer.ListenAndServe(ctx)
}

func (k *Kit) InitMqtt() (err error) {
	if len(k.MqttBroker) == 0 {
		err = errors.New("mqtt broker not set")
		return
	}

	kitName := k.Name
	if len(kitName) < 1 {
		kitName = homeKitBridgeName
	}

	mc, err := mqtt.NewMqttClient(k.MqttBroker, kitName)
	if err != nil {
		err = errors.Wrap(err, "failed to create mqtt client")
		return
	}

	k.mqttClient = mc

	mqttHandlers := []mqtt.MqttHandler{}
	for _, ch := range k.Channels {
		mqttHandlers = append(mqttHandlers, ch.SetMqtt(mc, kitName))
	}

	err = mc.Connect(mqttHandlers)
	if err != nil {
		err = errors.Wrap(err, "failed to connect to mqtt broker")
	}

	return
}

func (k *Kit) Close() (err error) {
	if k.Board != nil && k.Board.IsReady() {
		closeErr := k.Board.Close()
		if closeErr != nil {
			err = errors.Wrap(closeErr, "failed to close board")
		}
	}

	for _, driver := range k.ioDrivers {
		if driver == nil {
			continue
		}
		closeErr := driver.Close()
		if closeErr == nil {
			continue
		}
		if err == nil {
			err = closeErr
		} else {
			err = errors.Wrap(err, closeErr.Error())
		}
	}

	return
}

func (k *Kit) PrintIoStatus(writer io.Writer) {
	fmt.Fprintln(writer)
	fmt.Fprintln(writer, "=== active io drivers ===")
	for driverName, driver := range k.ioDrivers {
		fmt.Fprintln(writer, "________")
		fmt.Fprintf(writer, "| driver: %s\n", driverName)
		inputs, outputs := driver.GetAllIo()
		fmt.Fprintf(writer, "| in pins: ")
		for _, inpin := range inputs {
			fmt.Fprintf(writer, "%d, ", inpin)
		}
		fmt.Fprintf(writer, "\n| out pins: ")
		for _, outpin := range outputs {
			fmt.Fprintf(writer, "%d, ", outpin)
		}
		fmt.Fprintln(writer)
		fmt.Fprintln(writer, "--------")
	}
	fmt.Fprintln(writer, "-----------------------------")
	fmt.Fprintln(writer)
}
