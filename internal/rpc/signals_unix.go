//go:build !windows

package rpc

import (
	"os"
	"syscall"
)

var brokerSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
