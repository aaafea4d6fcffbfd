package event

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/doridoridoriand/netsav-go/internal/config"
	"github.com/doridoridoriand/netsav-go/internal/state"
)

// StateChangeEvent describes one state transition of a target. Events are
// passed by value and never modified after New returns.
type StateChangeEvent struct {
	ID       uuid.UUID
	Time     time.Time
	Name     string
	Address  string
	Port     int
	Interval int
	MinRetry int
	MaxRetry int
	Timeout  int
	Current  state.State
	Previous state.State
	Msg      string
	Brief    string
	Tag      string
}

// New builds the event emitted when target moves from previous to current.
func New(target config.TargetConfig, previous, current state.State) StateChangeEvent {
	msg := fmt.Sprintf("The network status of [%s] at %s:%d change to %s",
		target.Name, target.Address, target.Port, current)
	return StateChangeEvent{
		ID:       uuid.New(),
		Time:     time.Now(),
		Name:     target.Name,
		Address:  target.Address,
		Port:     target.Port,
		Interval: target.Interval,
		MinRetry: target.MinRetry,
		MaxRetry: target.MaxRetry,
		Timeout:  target.TCPTimeout,
		Current:  current,
		Previous: previous,
		Msg:      msg,
		Brief:    "Turn to " + current.String(),
		Tag:      target.Name,
	}
}

// Fields renders the payload keyed by its wire names.
func (e StateChangeEvent) Fields() map[string]string {
	return map[string]string{
		"name":               e.Name,
		"address":            e.Address,
		"port":               strconv.Itoa(e.Port),
		"interval":           strconv.Itoa(e.Interval),
		"min_retry":          strconv.Itoa(e.MinRetry),
		"max_retry":          strconv.Itoa(e.MaxRetry),
		"tcp_timeout":        strconv.Itoa(e.Timeout),
		"current_state":      strconv.Itoa(int(e.Current)),
		"current_state_str":  e.Current.String(),
		"previous_state":     strconv.Itoa(int(e.Previous)),
		"previous_state_str": e.Previous.String(),
		"msg":                e.Msg,
		"brief":              e.Brief,
		"tag":                e.Tag,
	}
}

// Payload is the JSON form handed to network plugins.
type Payload struct {
	ID               string    `json:"id"`
	Time             time.Time `json:"time"`
	Name             string    `json:"name"`
	Address          string    `json:"address"`
	Port             int       `json:"port"`
	Interval         int       `json:"interval"`
	MinRetry         int       `json:"min_retry"`
	MaxRetry         int       `json:"max_retry"`
	TCPTimeout       int       `json:"tcp_timeout"`
	CurrentState     int       `json:"current_state"`
	CurrentStateStr  string    `json:"current_state_str"`
	PreviousState    int       `json:"previous_state"`
	PreviousStateStr string    `json:"previous_state_str"`
	Msg              string    `json:"msg"`
	Brief            string    `json:"brief"`
	Tag              string    `json:"tag"`
}

// Payload returns the JSON-ready view of the event.
func (e StateChangeEvent) Payload() Payload {
	return Payload{
		ID:               e.ID.String(),
		Time:             e.Time,
		Name:             e.Name,
		Address:          e.Address,
		Port:             e.Port,
		Interval:         e.Interval,
		MinRetry:         e.MinRetry,
		MaxRetry:         e.MaxRetry,
		TCPTimeout:       e.Timeout,
		CurrentState:     int(e.Current),
		CurrentStateStr:  e.Current.String(),
		PreviousState:    int(e.Previous),
		PreviousStateStr: e.Previous.String(),
		Msg:              e.Msg,
		Brief:            e.Brief,
		Tag:              e.Tag,
	}
}
