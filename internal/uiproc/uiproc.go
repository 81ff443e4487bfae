// Package uiproc supervises the optional external UI process (spec §4.10's
// "…startui, …stopui → supervise an external UI process (out of core)").
// Grounded on the original's MQTTRelay.start_ui/stop_ui in main.py, which
// shells out to `streamlit run ui.py`; generalized here to an arbitrary
// command so the bridge doesn't hard-depend on a Python UI toolchain.
package uiproc

import (
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/user/loxrelay"
)

// Supervisor owns at most one running UI subprocess at a time.
type Supervisor struct {
	mu      sync.Mutex
	cmdName string
	args    []string
	proc    *exec.Cmd
	headless bool
	log     loxrelay.Logger
	status  func(msg string)
}

// New builds a Supervisor. headless, set from the --headless CLI flag,
// makes Start a no-op (spec §6's CLI surface).
func New(cmdName string, args []string, headless bool, log loxrelay.Logger, status func(msg string)) *Supervisor {
	return &Supervisor{cmdName: cmdName, args: args, headless: headless, log: log, status: status}
}

// Start launches the UI process if it isn't already running.
func (s *Supervisor) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.headless {
		return
	}
	if s.proc != nil && s.proc.ProcessState == nil {
		s.report("UI is already running")
		return
	}

	cmd := exec.Command(s.cmdName, s.args...)
	if err := cmd.Start(); err != nil {
		s.report(fmt.Sprintf("Failed to start UI: %v", err))
		return
	}
	s.proc = cmd
	s.report("UI started successfully")
}

// Stop terminates the UI process, escalating to a kill if it doesn't exit
// within 5 seconds (spec §9/original's subprocess.TimeoutExpired handling).
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc == nil || s.proc.ProcessState != nil {
		s.report("UI is not running")
		return
	}

	done := make(chan error, 1)
	go func() { done <- s.proc.Wait() }()

	_ = s.proc.Process.Signal(syscall.SIGTERM)
	select {
	case <-done:
		s.proc = nil
		s.report("UI stopped successfully")
	case <-time.After(5 * time.Second):
		_ = s.proc.Process.Kill()
		<-done
		s.proc = nil
		s.report("UI process killed after timeout")
	}
}

func (s *Supervisor) report(msg string) {
	if s.log != nil {
		s.log.Info("uiproc: " + msg)
	}
	if s.status != nil {
		s.status(msg)
	}
}
