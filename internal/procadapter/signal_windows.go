//go:build windows

package procadapter

import (
	"os/exec"
)

// setProcessGroup is a no-op on Windows: ConPTY/job-object based process
// trees are managed by the PTY layer itself, and plain-adapter children
// are killed individually.
func setProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup terminates the child. Windows has no SIGTERM; every
// signal name results in immediate termination.
func killProcessGroup(cmd *exec.Cmd, signal string) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

func decodeExit(err error) (exitCode int, exitSignal string) {
	if err == nil {
		return 0, ""
	}
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return 1, ""
	}
	return exitErr.ExitCode(), ""
}

// terminatePTY kills the PTY child. Windows does not support SIGTERM;
// process termination is immediate.
func terminatePTY(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

// waitPTYProcess waits for the PTY child to exit via cmd.Process.Wait(),
// since the process may have been started via ConPTY rather than cmd.Start().
func waitPTYProcess(cmd *exec.Cmd) (exitCode int, exitSignal string, err error) {
	state, werr := cmd.Process.Wait()
	if werr != nil {
		return 1, "", werr
	}
	code := state.ExitCode()
	if code != 0 {
		return code, "", &exec.ExitError{ProcessState: state}
	}
	return 0, "", nil
}
