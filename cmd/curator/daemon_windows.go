//go:build windows

package main

import (
	"os"
	"os/exec"
	"syscall"
)

// configureDaemonProcess detaches the daemon from the parent console.
func configureDaemonProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP | 0x00000008, // DETACHED_PROCESS
	}
}

// Windows has no SIGTERM; Kill is the only reliable stop.
func sendStopSignal(process *os.Process) error {
	return process.Kill()
}
