package provision

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Word is a 32-bit address or size in a layout file. It accepts plain
// numbers as well as strings such as "0x0800_0000", which JSON cannot
// express as number literals.
type Word uint32

// ParseWord parses a decimal, 0x hex, 0o octal or 0b binary value. Digits
// may be separated by underscores.
func ParseWord(s string) (Word, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid 32-bit value %q: %w", s, err)
	}
	return Word(v), nil
}

func (w Word) String() string {
	return fmt.Sprintf("0x%08x", uint32(w))
}

// Set implements pflag.Value so a Word can be a command-line flag.
func (w *Word) Set(s string) error {
	v, err := ParseWord(s)
	if err != nil {
		return err
	}
	*w = v
	return nil
}

// Type implements pflag.Value.
func (w *Word) Type() string { return "word" }

// MarshalJSON writes the value as a hex string.
func (w Word) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.String())
}

// UnmarshalJSON accepts a number or a string.
func (w *Word) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := ParseWord(s)
		if err != nil {
			return err
		}
		*w = v
		return nil
	}
	var n uint32
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid 32-bit value %s", data)
	}
	*w = Word(n)
	return nil
}

// UnmarshalYAML accepts any scalar strconv can parse with base prefixes,
// including YAML's own hex and octal forms.
func (w *Word) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a 32-bit value", value.Line)
	}
	v, err := ParseWord(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*w = v
	return nil
}
