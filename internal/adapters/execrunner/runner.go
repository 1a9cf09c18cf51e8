// Package execrunner launches and supervises external tool invocations.
// It is the single place that touches os/exec: every other component works
// through the ports.ProcessRunner contract.
package execrunner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/zorenko/aircap/internal/core/ports"
)

// ErrToolNotFound signals that the executable is absent from the
// environment. Callers surface it distinctly from a non-zero exit so the
// operator gets an actionable "install the tool" message.
var ErrToolNotFound = errors.New("executable not found")

// Test seams for exec functions.
var (
	execCommand        = exec.Command
	execCommandContext = exec.CommandContext
	lookPath           = exec.LookPath
)

// Runner implements ports.ProcessRunner on top of os/exec.
type Runner struct{}

var _ ports.ProcessRunner = (*Runner)(nil)

// New creates a process runner.
func New() *Runner {
	return &Runner{}
}

// LookPath reports whether the executable is resolvable via PATH.
func (r *Runner) LookPath(tool string) error {
	if _, err := lookPath(tool); err != nil {
		return fmt.Errorf("%s: %w", tool, ErrToolNotFound)
	}
	return nil
}

// RunToCompletion runs the command, captures stdout and stderr, and bounds
// execution time. A deadline hit is reported in the result, not as an
// error; so is a non-zero exit status.
func (r *Runner) RunToCompletion(ctx context.Context, timeout time.Duration, name string, args ...string) (ports.RunResult, error) {
	if err := r.LookPath(name); err != nil {
		return ports.RunResult{}, err
	}

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := execCommandContext(runCtx, name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := ports.RunResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		return res, nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("failed to run %s: %w", name, err)
	}
	return res, nil
}

// StreamingProcess is a running command whose combined stdout/stderr is
// exposed as a non-blocking line stream.
type StreamingProcess struct {
	cmd     *exec.Cmd
	lines   chan string
	quit    chan struct{}
	done    chan struct{}
	waitErr error

	quitOnce sync.Once
	termOnce sync.Once
	killOnce sync.Once
}

var _ ports.StreamHandle = (*StreamingProcess)(nil)

// StartStreaming launches the command in its own process group and begins
// consuming its output line by line.
func (r *Runner) StartStreaming(name string, args ...string) (ports.StreamHandle, error) {
	if err := r.LookPath(name); err != nil {
		return nil, err
	}

	cmd := execCommand(name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	p := &StreamingProcess{
		cmd:   cmd,
		lines: make(chan string, 256),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}

	var readers sync.WaitGroup
	readers.Add(2)
	go p.consume(stdout, &readers)
	go p.consume(stderr, &readers)

	go func() {
		readers.Wait()
		p.waitErr = cmd.Wait()
		close(p.lines)
		close(p.done)
	}()

	return p, nil
}

// consume scans one output pipe into the shared line channel. The quit
// escape keeps a slow or stopped consumer from wedging process teardown.
func (p *StreamingProcess) consume(r io.Reader, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Split(scanLines)
	for scanner.Scan() {
		select {
		case p.lines <- scanner.Text():
		case <-p.quit:
			// Drain the pipe so the child never blocks on a full buffer.
			for scanner.Scan() {
			}
			return
		}
	}
}

// scanLines splits on both LF and CR: capture tools redraw status lines
// with bare carriage returns, and the handshake marker can arrive on one.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[0:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// NextLine returns the next buffered output line without blocking.
func (p *StreamingProcess) NextLine() (string, bool) {
	select {
	case line, ok := <-p.lines:
		if !ok {
			return "", false
		}
		return line, true
	default:
		return "", false
	}
}

// Signal delivers a signal to the process. Signalling an exited process
// returns os.ErrProcessDone, which callers may ignore.
func (p *StreamingProcess) Signal(sig os.Signal) error {
	return p.cmd.Process.Signal(sig)
}

// stopReaders releases the consumer goroutines so teardown can never wedge
// on a full line buffer.
func (p *StreamingProcess) stopReaders() {
	p.quitOnce.Do(func() { close(p.quit) })
}

// Terminate requests graceful termination of the process group. Idempotent;
// a no-op once the process has exited.
func (p *StreamingProcess) Terminate() {
	p.stopReaders()
	p.termOnce.Do(func() {
		if !p.Exited() {
			_ = syscall.Kill(-p.cmd.Process.Pid, syscall.SIGTERM)
		}
	})
}

// kill escalates to SIGKILL on the whole process group.
func (p *StreamingProcess) kill() {
	p.stopReaders()
	p.killOnce.Do(func() {
		_ = syscall.Kill(-p.cmd.Process.Pid, syscall.SIGKILL)
	})
}

// Wait blocks until the process exits or the timeout elapses. On expiry the
// process group is killed and Wait reports the overrun.
func (p *StreamingProcess) Wait(timeout time.Duration) error {
	select {
	case <-p.done:
		return p.waitErr
	case <-time.After(timeout):
	}

	p.kill()
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
	}
	return fmt.Errorf("process %s did not exit within %s", p.cmd.Path, timeout)
}

// Exited reports whether the process has terminated.
func (p *StreamingProcess) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return p.cmd.ProcessState != nil
	}
}
