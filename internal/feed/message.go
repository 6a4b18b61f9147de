package feed

import (
	"fmt"
	"strconv"
	"strings"
)

// bookMessage is the recognized feed message shape. Both sides carry
// [price, size] pairs; some venues encode the numbers as JSON strings, so
// each element is decoded through feedNumber.
type bookMessage struct {
	Asks []rawLevel `json:"asks"`
	Bids []rawLevel `json:"bids"`
}

// rawLevel is one [price, size] pair from the wire.
type rawLevel []feedNumber

// feedNumber is a float64 that unmarshals from either a JSON number or a
// quoted numeric string.
type feedNumber float64

func (n *feedNumber) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("feed: parse level value %q: %w", s, err)
	}
	*n = feedNumber(f)
	return nil
}
