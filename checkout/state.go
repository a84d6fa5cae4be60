package checkout

import (
	"fmt"
)

// State is the step of the checkout modal
type State int

const (
	Viewing State = iota
	Paying
	Processing
	Success
)

var stateNames = map[State]string{
	Viewing:    "viewing",
	Paying:     "paying",
	Processing: "processing",
	Success:    "success",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText encodes the state by name
func (s State) MarshalText() ([]byte, error) {
	if _, ok := stateNames[s]; !ok {
		return nil, fmt.Errorf("unknown checkout state %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name
func (s *State) UnmarshalText(b []byte) error {
	for st, name := range stateNames {
		if name == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown checkout state %q", string(b))
}
