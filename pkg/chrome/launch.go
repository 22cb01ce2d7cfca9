package chrome

import (
	"fmt"
	"os/exec"
)

// Process is a launched browser process.
type Process interface {
	Pid() int
	// Done is closed once the process has exited and been waited on
	Done() <-chan struct{}
}

// Launcher starts the browser executable.
type Launcher interface {
	Launch(executable string, args []string) (Process, error)
}

// ExecLauncher starts the browser as a detached OS process with its
// standard streams discarded.
type ExecLauncher struct{}

// Launch implements Launcher.
func (ExecLauncher) Launch(executable string, args []string) (Process, error) {
	cmd := exec.Command(executable, args...)
	// nil streams are connected to the null device
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = detachedProcAttr()

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", executable, err)
	}
	recordLaunch()

	p := &execProcess{cmd: cmd, done: make(chan struct{})}
	go func() {
		_ = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

type execProcess struct {
	cmd  *exec.Cmd
	done chan struct{}
}

func (p *execProcess) Pid() int              { return p.cmd.Process.Pid }
func (p *execProcess) Done() <-chan struct{} { return p.done }
