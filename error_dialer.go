package datapool

import (
	"context"

	"github.com/goforj/datapool/poolcore"
)

// errorDialer is returned when a driver fails to initialize; it
// preserves the driver identity while surfacing the construction error
// on every dial.
type errorDialer struct {
	driver poolcore.Driver
	err    error
}

func (e *errorDialer) Driver() poolcore.Driver { return e.driver }

func (e *errorDialer) Dial(context.Context) (poolcore.Conn, error) { return nil, e.err }
