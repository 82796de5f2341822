//go:build unix || linux || darwin

package main

import (
	"os"
	"os/exec"
	"syscall"
)

// configureDaemonProcess detaches the daemon into its own session so it
// survives the parent terminal.
func configureDaemonProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

func sendStopSignal(process *os.Process) error {
	return process.Signal(syscall.SIGTERM)
}
