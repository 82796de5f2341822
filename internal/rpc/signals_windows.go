//go:build windows

package rpc

import "os"

var brokerSignals = []os.Signal{os.Interrupt}
