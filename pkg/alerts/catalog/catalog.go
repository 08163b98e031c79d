// Package catalog wires every shipped alert into the default registry.
// Adding an alert means one new package plus one line here.
package catalog

import (
	"github.com/moonwalker/linewatch/pkg/alerts"
	"github.com/moonwalker/linewatch/pkg/alerts/overunder"
)

// Register adds every shipped alert to the default registry. Call once
// at startup, a duplicate registration is reported as an error.
func Register() error {
	descriptors := []*alerts.Descriptor{
		overunder.Descriptor(),
	}

	for _, d := range descriptors {
		err := alerts.Register(d)
		if err != nil {
			return err
		}
	}

	return nil
}
