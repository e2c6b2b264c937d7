package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Decimal is a decimal read from YAML or a command-line flag. It remembers
// whether a value was supplied so optional prices can stay unset.
type Decimal struct {
	decimal.Decimal
	set bool
}

func (d *Decimal) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("decimal must be a scalar")
	}
	return d.Set(value.Value)
}

func (d Decimal) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// Set implements flag.Value.
func (d *Decimal) Set(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		d.Decimal = decimal.Zero
		d.set = false
		return nil
	}
	dec, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("invalid decimal %q: %w", raw, err)
	}
	d.Decimal = dec
	d.set = true
	return nil
}

func (d Decimal) IsSet() bool { return d.set }

func (d Decimal) Null() decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d.Decimal, Valid: d.set}
}
