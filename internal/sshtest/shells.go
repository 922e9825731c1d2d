package sshtest

import (
	"bytes"
	"io"
	"sync"

	gliderssh "github.com/gliderlabs/ssh"
)

// Recorder collects bytes written by the client.
type Recorder struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write implements io.Writer.
func (r *Recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Write(p)
}

// String returns everything recorded so far.
func (r *Recorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String()
}

// Script is a canned shell: each time the client input ends with a trigger,
// the matching reply is written back. Input containing Exit ends the
// session with Status.
type Script struct {
	Greeting string
	Replies  map[string]string
	Exit     string
	Status   int
	Input    *Recorder
}

// Run implements ShellFunc.
func (sc *Script) Run(sess gliderssh.Session) int {
	if sc.Greeting != "" {
		_, _ = io.WriteString(sess, sc.Greeting)
	}
	var seen []byte
	buf := make([]byte, 1024)
	for {
		n, err := sess.Read(buf)
		if n > 0 {
			if sc.Input != nil {
				_, _ = sc.Input.Write(buf[:n])
			}
			seen = append(seen, buf[:n]...)
			for trigger, reply := range sc.Replies {
				if bytes.HasSuffix(seen, []byte(trigger)) {
					_, _ = io.WriteString(sess, reply)
				}
			}
			if sc.Exit != "" && bytes.Contains(seen, []byte(sc.Exit)) {
				return sc.Status
			}
		}
		if err != nil {
			return sc.Status
		}
	}
}
