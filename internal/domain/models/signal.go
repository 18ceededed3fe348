package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Signal is the ternary trading signal emitted by a strategy worker.
type Signal int8

const (
	SignalSell Signal = -1
	SignalHold Signal = 0
	SignalBuy  Signal = 1
)

// Action is the operation recorded for a signal.
type Action string

const (
	ActionBuy  Action = "Buy"
	ActionSell Action = "Sell"
	ActionHold Action = "Hold"
)

// ActionForSignal maps a ternary signal to its recorded action.
func ActionForSignal(s Signal) Action {
	switch s {
	case SignalBuy:
		return ActionBuy
	case SignalSell:
		return ActionSell
	default:
		return ActionHold
	}
}

// SignalForAction is the inverse of ActionForSignal.
func SignalForAction(a Action) Signal {
	switch a {
	case ActionBuy:
		return SignalBuy
	case ActionSell:
		return SignalSell
	default:
		return SignalHold
	}
}

// SignalPoint is one observation: unix-millisecond timestamp and signal.
type SignalPoint struct {
	Ts    int64
	Value Signal
}

// Time returns the observation time.
func (p SignalPoint) Time() time.Time {
	return time.UnixMilli(p.Ts)
}

// SignalSeries is a chronologically ordered signal history. On the wire it is
// a JSON object keyed by unix-millisecond timestamps; JSON objects carry no
// order, so decoding sorts keys ascending. The last point is the current
// signal.
type SignalSeries []SignalPoint

// Latest returns the most recent point, if any.
func (s SignalSeries) Latest() (SignalPoint, bool) {
	if len(s) == 0 {
		return SignalPoint{}, false
	}
	return s[len(s)-1], true
}

// Trimmed returns a series holding only the latest point.
func (s SignalSeries) Trimmed() SignalSeries {
	if last, ok := s.Latest(); ok {
		return SignalSeries{last}
	}
	return nil
}

func (s SignalSeries) MarshalJSON() ([]byte, error) {
	m := make(map[string]int8, len(s))
	for _, p := range s {
		m[strconv.FormatInt(p.Ts, 10)] = int8(p.Value)
	}
	return json.Marshal(m)
}

func (s *SignalSeries) UnmarshalJSON(b []byte) error {
	var raw map[string]json.Number
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(SignalSeries, 0, len(raw))
	for k, v := range raw {
		ts, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return fmt.Errorf("signal timestamp %q: %w", k, err)
		}
		val, err := v.Int64()
		if err != nil {
			return fmt.Errorf("signal value %q: %w", v, err)
		}
		if val < -1 || val > 1 {
			return fmt.Errorf("signal value out of range: %d", val)
		}
		out = append(out, SignalPoint{Ts: ts, Value: Signal(val)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ts < out[j].Ts })
	*s = out
	return nil
}
