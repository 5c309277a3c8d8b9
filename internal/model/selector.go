package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ScenarioSelector identifies the target scenario either by integer index
// into the option list or by free text matched against it. It unmarshals
// from a JSON number or string.
type ScenarioSelector struct {
	Index   int
	Text    string
	ByIndex bool
}

// ParseSelector interprets a command-line argument: an integer selects by
// index, anything else matches by text.
func ParseSelector(arg string) ScenarioSelector {
	if idx, err := strconv.Atoi(strings.TrimSpace(arg)); err == nil {
		return ScenarioSelector{Index: idx, ByIndex: true}
	}
	return ScenarioSelector{Text: arg}
}

func (s *ScenarioSelector) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return eris.Wrap(err, "model: decode selected_scenario")
	}
	switch tv := v.(type) {
	case float64:
		if tv != math.Trunc(tv) {
			return eris.Errorf("model: scenario index must be an integer, got %v", tv)
		}
		*s = ScenarioSelector{Index: int(tv), ByIndex: true}
	case string:
		*s = ScenarioSelector{Text: tv}
	case nil:
		return eris.New("model: selected_scenario is required")
	default:
		return eris.Errorf("model: selected_scenario must be an index or a string, got %T", v)
	}
	return nil
}

func (s ScenarioSelector) MarshalJSON() ([]byte, error) {
	if s.ByIndex {
		return json.Marshal(s.Index)
	}
	return json.Marshal(s.Text)
}

func (s ScenarioSelector) String() string {
	if s.ByIndex {
		return strconv.Itoa(s.Index)
	}
	return s.Text
}
