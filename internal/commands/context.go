// internal/commands/context.go
package commands

import (
	"errors"
	"fmt"

	"github.com/xkilldash9x/pagedriver/internal/locator"
)

// ErrInvalidArgument is returned for absent or non-positive command arguments.
var ErrInvalidArgument = errors.New("invalid argument")

// unknownLocation stands in when the session cannot report where it is.
const unknownLocation = "<unknown location>"

// CommandContext is the diagnostic state recorded at the start of each command.
type CommandContext struct {
	LastCommand string
	Location    string
}

func (c CommandContext) String() string {
	return fmt.Sprintf("%s on %s", c.LastCommand, c.Location)
}

// describe renders "<verb> Using <loc>", or "<verb> '<label>' Using <loc>" when labeled.
func describe(verb string, loc locator.Locator, o commandOptions) string {
	if o.label == "" {
		return fmt.Sprintf("%s Using %s", verb, loc)
	}
	return fmt.Sprintf("%s '%s' Using %s", verb, o.label, loc)
}

func describeType(input string, loc locator.Locator, o commandOptions) string {
	if o.label == "" {
		return fmt.Sprintf("Type '%s' Using %s", input, loc)
	}
	return fmt.Sprintf("Type '%s' into %s Using %s", input, o.label, loc)
}

func describeComboBoxByText(text string, loc locator.Locator, o commandOptions) string {
	if o.label == "" {
		return fmt.Sprintf("ComboBoxByText '%s' Using %s", text, loc)
	}
	return fmt.Sprintf("ComboBoxByText '%s' from '%s' Using %s", text, o.label, loc)
}

func describeComboBoxRandom(loc locator.Locator, o commandOptions) string {
	if o.label == "" {
		return fmt.Sprintf("ComboBoxRandom Using %s", loc)
	}
	return fmt.Sprintf("ComboBoxRandom from '%s' Using %s", o.label, loc)
}
