//go:build !windows

package procadapter

import (
	"os/exec"
	"syscall"
)

// setProcessGroup puts the child in its own process group so Kill can
// terminate the whole subtree instead of just the shell.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup sends signal to the process group. "KILL" and "SIGKILL"
// send SIGKILL; "SIGINT" sends SIGINT; anything else (including the
// default "SIGTERM") sends SIGTERM.
func killProcessGroup(cmd *exec.Cmd, signal string) error {
	if cmd.Process == nil {
		return nil
	}
	sig := signalFor(signal)
	pgid := -cmd.Process.Pid
	return syscall.Kill(pgid, sig)
}

func signalFor(name string) syscall.Signal {
	switch name {
	case "KILL", "SIGKILL":
		return syscall.SIGKILL
	case "SIGINT":
		return syscall.SIGINT
	default:
		return syscall.SIGTERM
	}
}

// decodeExit inspects the error returned by cmd.Wait() and reports the
// exit code and, if the process was killed by a signal, its name.
func decodeExit(err error) (exitCode int, exitSignal string) {
	if err == nil {
		return 0, ""
	}
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return 1, ""
	}
	waitStatus, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return 1, ""
	}
	if waitStatus.Signaled() {
		return 128 + int(waitStatus.Signal()), waitStatus.Signal().String()
	}
	return waitStatus.ExitStatus(), ""
}

// terminatePTY sends SIGTERM to the PTY child for graceful shutdown,
// regardless of the signal name requested (per spec.md §4.4: the PTY
// variant ignores the signal name and sends the platform default).
func terminatePTY(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Signal(syscall.SIGTERM)
}

// waitPTYProcess waits for the PTY child to exit and decodes its exit
// status the same way decodeExit does for the plain adapter.
func waitPTYProcess(cmd *exec.Cmd) (exitCode int, exitSignal string, err error) {
	err = cmd.Wait()
	if err == nil {
		return 0, "", nil
	}
	code, signal := decodeExit(err)
	return code, signal, err
}
