package eutel

import (
	"fmt"
	"strconv"
	"strings"
)

// FloatArrayFlags collects a repeated float flag. The first Set replaces any
// default held in Array.
type FloatArrayFlags struct {
	Array   []float64
	beenSet bool
}

func (f *FloatArrayFlags) Set(valueStr string) error {
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return err
	}

	if !f.beenSet {
		f.beenSet = true
		f.Array = nil
	}

	f.Array = append(f.Array, value)
	return nil
}

func (f *FloatArrayFlags) String() string {
	return fmt.Sprint(f.Array)
}

// IsSet reports whether the flag appeared on the command line.
func (f *FloatArrayFlags) IsSet() bool { return f.beenSet }

type IntArrayFlags struct {
	Array   []int
	beenSet bool
}

func (f *IntArrayFlags) Set(valueStr string) error {
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return err
	}

	if !f.beenSet {
		f.beenSet = true
		f.Array = nil
	}

	f.Array = append(f.Array, value)
	return nil
}

func (f *IntArrayFlags) String() string {
	return fmt.Sprint(f.Array)
}

func (f *IntArrayFlags) IsSet() bool { return f.beenSet }

// SettingFlags collects repeated key=value configuration overrides.
type SettingFlags struct {
	Keys, Values []string
}

func (f *SettingFlags) Set(valueStr string) error {
	key, value, ok := strings.Cut(valueStr, "=")
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", valueStr)
	}
	f.Keys = append(f.Keys, key)
	f.Values = append(f.Values, value)
	return nil
}

func (f *SettingFlags) String() string {
	pairs := make([]string, len(f.Keys))
	for i := range f.Keys {
		pairs[i] = f.Keys[i] + "=" + f.Values[i]
	}
	return strings.Join(pairs, ",")
}

// Apply sets every collected override on config, in command line order.
func (f *SettingFlags) Apply(config *Configuration) error {
	for i := range f.Keys {
		if err := config.Set(f.Keys[i], f.Values[i]); err != nil {
			return err
		}
	}
	return nil
}
