// Package patternfile reads IR key definitions stored as XML:
//
//	<IR_PATTERN>
//	  <SOURCE>Deco TV</SOURCE>
//	  <ID>CH+</ID>
//	  <CARRIER unit="31.25 ns">
//	    <PERIOD>842</PERIOD>
//	    <DUTY_CYCLE>281</DUTY_CYCLE>
//	  </CARRIER>
//	  <PATTERN unit="carrier cycles">
//	    <PULSE><HIGH>342</HIGH><LOW>171</LOW></PULSE>
//	  </PATTERN>
//	</IR_PATTERN>
//
// DUTY_CYCLE is the carrier high time in the same unit as PERIOD. Both count
// protocol.CarrierClockHz cycles, so 842/281 is a 38 kHz carrier at one third
// duty.
package patternfile

import (
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"irproxy/protocol"
)

var ErrMissingField = errors.New("missing field")

type xmlCarrier struct {
	Unit      string `xml:"unit,attr"`
	Period    string `xml:"PERIOD"`
	DutyCycle string `xml:"DUTY_CYCLE"`
}

type xmlPulse struct {
	High string `xml:"HIGH"`
	Low  string `xml:"LOW"`
}

type xmlPattern struct {
	Unit   string     `xml:"unit,attr"`
	Pulses []xmlPulse `xml:"PULSE"`
}

type xmlDefinition struct {
	Source  string      `xml:"SOURCE"`
	ID      string      `xml:"ID"`
	Carrier *xmlCarrier `xml:"CARRIER"`
	Pattern *xmlPattern `xml:"PATTERN"`
}

// Definition is one key loaded from a pattern file
type Definition struct {
	Source      string
	ID          string
	CarrierUnit string
	PulseUnit   string
	Pattern     protocol.Pattern
}

// Decode reads a definition and validates its pattern
func Decode(r io.Reader) (*Definition, error) {
	var x xmlDefinition
	if err := xml.NewDecoder(r).Decode(&x); err != nil {
		return nil, err
	}
	if x.Carrier == nil {
		return nil, fmt.Errorf("%w: CARRIER", ErrMissingField)
	}
	if x.Pattern == nil {
		return nil, fmt.Errorf("%w: PATTERN", ErrMissingField)
	}

	def := &Definition{
		Source:      strings.TrimSpace(x.Source),
		ID:          strings.TrimSpace(x.ID),
		CarrierUnit: strings.TrimSpace(x.Carrier.Unit),
		PulseUnit:   strings.TrimSpace(x.Pattern.Unit),
	}

	var err error
	if def.Pattern.CarrierPeriod, err = parseCount("PERIOD", x.Carrier.Period); err != nil {
		return nil, err
	}
	if def.Pattern.CarrierHigh, err = parseCount("DUTY_CYCLE", x.Carrier.DutyCycle); err != nil {
		return nil, err
	}
	for i, p := range x.Pattern.Pulses {
		var pulse protocol.Pulse
		if pulse.High, err = parseCount(fmt.Sprintf("PULSE[%d]/HIGH", i), p.High); err != nil {
			return nil, err
		}
		if pulse.Low, err = parseCount(fmt.Sprintf("PULSE[%d]/LOW", i), p.Low); err != nil {
			return nil, err
		}
		def.Pattern.Pulses = append(def.Pattern.Pulses, pulse)
	}

	if err := def.Pattern.Validate(); err != nil {
		return nil, fmt.Errorf("pattern %q: %w", def.ID, err)
	}
	return def, nil
}

// Load reads a definition from a file
func Load(path string) (*Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	def, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Payload returns the frame as the upper case hex string published to the
// broker
func (d *Definition) Payload() (string, error) {
	data, err := d.Pattern.Bytes()
	if err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(data)), nil
}

func parseCount(field, text string) (uint16, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	v, err := strconv.ParseUint(text, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if v > protocol.VarintMax {
		return 0, fmt.Errorf("%s: %w", field, protocol.ErrVarintRange)
	}
	return uint16(v), nil
}
