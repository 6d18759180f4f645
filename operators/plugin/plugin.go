// Package plugin implements an out-of-process operator bridge, directly
// adapted from server/cborplugin/client.go's scheme for running mix
// network services written in any language: a child process is exec'd,
// its first line of stdout names a Unix domain socket to dial, its
// stderr is proxied to the debug log (halting the bridge if the process
// crashes), and a worker goroutine sends SIGTERM and reaps the process on
// Halt. Requests and responses are CBOR-encoded, length-prefixed frames
// over that socket. This is the seam operators/nne uses to run a model
// evaluation process written outside this module.
package plugin

import (
	"bufio"
	"encoding/binary"
	"io"
	"net"
	"os/exec"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fxamacker/cbor/v2"

	"github.com/saf-project/saf/errs"
	"github.com/saf-project/saf/internal/worker"
)

// Request is sent to the external plugin process for evaluation.
type Request struct {
	ID      uint64
	Method  string
	Payload []byte
}

// Response is returned by the external plugin process.
type Response struct {
	ID      uint64
	Payload []byte
	Err     string
}

// Client execs and supervises a single plugin process, proxying
// length-prefixed CBOR requests and responses over the Unix socket path
// the process announces on its first line of stdout.
type Client struct {
	worker.Worker

	logger     *log.Logger
	cmd        *exec.Cmd
	socketPath string
	conn       net.Conn

	reqMu  chan struct{} // one in flight request at a time, mirroring a single-threaded plugin
	nextID uint64
}

// NewClient constructs an unstarted plugin bridge.
func NewClient(logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{logger: logger, reqMu: make(chan struct{}, 1)}
}

// Start execs command with args, waits for the plugin to announce its
// socket path on stdout, dials it, and spawns the reaper goroutine that
// terminates the process on Halt.
func (c *Client) Start(command string, args ...string) error {
	if err := c.launch(command, args); err != nil {
		return err
	}
	c.Go(c.reaper)

	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return errs.NewRuntimeError("plugin: dial %s: %v", c.socketPath, err)
	}
	c.conn = conn
	return nil
}

func (c *Client) launch(command string, args []string) error {
	c.cmd = exec.Command(command, args...)
	stdout, err := c.cmd.StdoutPipe()
	if err != nil {
		return errs.NewRuntimeError("plugin: stdout pipe: %v", err)
	}
	stderr, err := c.cmd.StderrPipe()
	if err != nil {
		return errs.NewRuntimeError("plugin: stderr pipe: %v", err)
	}
	if err := c.cmd.Start(); err != nil {
		return errs.NewRuntimeError("plugin: exec %s: %v", command, err)
	}

	c.Go(func() { c.proxyStderr(stderr) })

	scanner := bufio.NewScanner(stdout)
	if !scanner.Scan() {
		return errs.NewRuntimeError("plugin: %s exited before announcing a socket path", command)
	}
	c.socketPath = scanner.Text()
	return nil
}

func (c *Client) proxyStderr(stderr io.ReadCloser) {
	buf := make([]byte, 4096)
	for {
		n, err := stderr.Read(buf)
		if n > 0 {
			c.logger.Debug("plugin stderr", "line", string(buf[:n]))
		}
		if err != nil {
			break
		}
	}
	// Halt waits for every Go-launched goroutine, this one included, so
	// it must run outside this goroutine.
	go c.Halt()
}

// reaper waits for Halt, sends SIGTERM to the plugin process and reaps it.
func (c *Client) reaper() {
	<-c.HaltCh()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	if c.cmd == nil || c.cmd.Process == nil {
		return
	}
	if err := c.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		c.logger.Error("plugin: SIGTERM failed", "err", err)
	}
	if err := c.cmd.Wait(); err != nil {
		c.logger.Debug("plugin: process exited", "err", err)
	}
}

// Call sends req and blocks for the matching response, or until the
// plugin halts or the timeout elapses.
func (c *Client) Call(req *Request, timeout time.Duration) (*Response, error) {
	select {
	case c.reqMu <- struct{}{}:
		defer func() { <-c.reqMu }()
	case <-c.HaltCh():
		return nil, &errs.StoppedError{What: "plugin client"}
	}

	c.nextID++
	req.ID = c.nextID

	if err := writeFrame(c.conn, req); err != nil {
		return nil, errs.NewRuntimeError("plugin: write request: %v", err)
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, errs.NewRuntimeError("plugin: set deadline: %v", err)
	}
	var resp Response
	if err := readFrame(c.conn, &resp); err != nil {
		return nil, errs.NewRuntimeError("plugin: read response: %v", err)
	}
	return &resp, nil
}

func writeFrame(w io.Writer, v interface{}) error {
	data, err := cbor.Marshal(v)
	if err != nil {
		return err
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(data)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func readFrame(r io.Reader, v interface{}) error {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return err
	}
	return cbor.Unmarshal(data, v)
}
