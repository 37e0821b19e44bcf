package io22d08

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"

	"github.com/hubertat/io22d08/board"
)

const httpTimeoutsMs = 3000

type channelStatus struct {
	Name        string `json:"name"`
	Relay       uint8  `json:"relay"`
	On          bool   `json:"on"`
	RemainingMs int64  `json:"remaining_ms,omitempty"`
}

type freqInputStatus struct {
	Name     string `json:"name"`
	Relay    uint8  `json:"relay"`
	State    string `json:"state"`
	PeriodMs int64  `json:"period_ms"`
}

type kitStatus struct {
	Name       string            `json:"name"`
	Relays     uint8             `json:"relays"`
	Colon      bool              `json:"colon"`
	Channels   []channelStatus   `json:"channels"`
	FreqInputs []freqInputStatus `json:"freq_inputs"`
}

// StartHttpServer exposes kit status and relay control over HTTP.
// Runs the listener in the background, same as the remote io slave
// surface this is modeled on.
func (k *Kit) StartHttpServer() error {
	if len(k.HttpAddr) == 0 {
		return errors.New("http address not set")
	}

	handler := httprouter.New()
	handler.GET("/status", k.handleStatus)
	handler.PUT("/relay/:relay_no/set/:state", k.handleRelaySet)
	handler.POST("/display/number/:value", k.handleDisplayNumber)

	httpTimeout := httpTimeoutsMs * time.Millisecond

	server := &http.Server{
		Addr:              k.HttpAddr,
		Handler:           handler,
		ReadTimeout:       httpTimeout,
		ReadHeaderTimeout: httpTimeout,
		WriteTimeout:      httpTimeout,
		IdleTimeout:       2 * httpTimeout,
	}

	go server.ListenAndServe()

	return nil
}

func (k *Kit) handleStatus(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	status := kitStatus{
		Name:       k.Name,
		Relays:     k.Board.RelayGet(board.RelaysAll),
		Colon:      k.Board.ColonEnabled(),
		Channels:   []channelStatus{},
		FreqInputs: []freqInputStatus{},
	}

	for _, ch := range k.Channels {
		chStatus := channelStatus{
			Name:  ch.Name,
			Relay: ch.Relay,
			On:    ch.IsOn(),
		}
		if remaining := ch.Remaining(); remaining != board.NoActiveTimer {
			chStatus.RemainingMs = remaining.Milliseconds()
		}
		status.Channels = append(status.Channels, chStatus)
	}

	for _, fi := range k.FreqInputs {
		status.FreqInputs = append(status.FreqInputs, freqInputStatus{
			Name:     fi.Name,
			Relay:    fi.Relay,
			State:    fi.State().String(),
			PeriodMs: fi.Period().Milliseconds(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

func (k *Kit) handleRelaySet(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	relayNo, err := strconv.Atoi(p.ByName("relay_no"))
	if err != nil || relayNo < 1 || relayNo > board.NumRelays {
		http.Error(w, "relay number out of range", http.StatusNotFound)
		return
	}

	var state bool
	switch p.ByName("state") {
	case "on":
		state = true
	case "off":
		state = false
	default:
		http.Error(w, "state must be on or off", http.StatusBadRequest)
		return
	}

	// channels carry delayed-off behavior; bare relays switch directly
	for _, ch := range k.Channels {
		if int(ch.Relay) == relayNo {
			ch.SetValue(state)
			w.WriteHeader(http.StatusOK)
			return
		}
	}

	k.Board.RelaySetN(uint8(relayNo), state)
	w.WriteHeader(http.StatusOK)
}

func (k *Kit) handleDisplayNumber(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	value, err := strconv.ParseUint(p.ByName("value"), 10, 16)
	if err != nil {
		http.Error(w, "value must fit uint16", http.StatusBadRequest)
		return
	}

	k.Board.DisplayNumber(uint16(value))
	w.WriteHeader(http.StatusOK)
}
