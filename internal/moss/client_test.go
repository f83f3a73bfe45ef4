package moss

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarkUsProject/markusmoss/internal/errors"
)

// fakeMossServer speaks the upload protocol: it acknowledges the language
// line, consumes file uploads, and answers the query with a report URL.
type fakeMossServer struct {
	addr      string
	reportURL string
	language  string // language to accept; others get "no"
	done      chan struct{}

	mu    sync.Mutex
	lines []string
	files map[string]string
}

func newFakeMossServer(t *testing.T, language string) *fakeMossServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	s := &fakeMossServer{
		addr:      ln.Addr().String(),
		reportURL: "http://moss.example.edu/results/123456789",
		language:  language,
		done:      make(chan struct{}),
		files:     make(map[string]string),
	}
	go func() {
		defer close(s.done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		s.serve(conn)
	}()
	return s
}

func (s *fakeMossServer) serve(conn net.Conn) {
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSuffix(line, "\n")
		s.mu.Lock()
		s.lines = append(s.lines, line)
		s.mu.Unlock()

		fields := strings.Fields(line)
		switch {
		case len(fields) > 0 && fields[0] == "language":
			if fields[1] == s.language {
				fmt.Fprint(conn, "yes\n")
			} else {
				fmt.Fprint(conn, "no\n")
			}
		case len(fields) >= 5 && fields[0] == "file":
			size, _ := strconv.Atoi(fields[3])
			content := make([]byte, size)
			if _, err := io.ReadFull(r, content); err != nil {
				return
			}
			s.mu.Lock()
			s.files[fields[4]] = string(content)
			s.mu.Unlock()
		case len(fields) > 0 && fields[0] == "query":
			fmt.Fprint(conn, s.reportURL+"\n")
		case line == "end":
			return
		}
	}
}

func (s *fakeMossServer) received() ([]string, map[string]string) {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.lines...), s.files
}

func TestClient_Submit(t *testing.T) {
	srv := newFakeMossServer(t, "python")
	c := NewClient(987654, "python",
		WithServer(srv.addr), WithMaxMatches(10), WithShowResults(250))

	url, err := c.Submit(context.Background(),
		[]File{{DisplayName: "starter_files/org/starter.py", Content: []byte("# starter\n")}},
		[]File{
			{DisplayName: "submission_files/group 001/main.py", Content: []byte("print(1)\n")},
			{DisplayName: "submission_files/group_002/main.py", Content: []byte("print(2)\n")},
		},
		"a1 submissions")
	require.NoError(t, err)
	assert.Equal(t, srv.reportURL, url)

	lines, files := srv.received()
	assert.Contains(t, lines, "moss 987654")
	assert.Contains(t, lines, "directory 0")
	assert.Contains(t, lines, "X 0")
	assert.Contains(t, lines, "maxmatches 10")
	assert.Contains(t, lines, "show 250")
	assert.Contains(t, lines, "language python")
	assert.Contains(t, lines, "query 0 a1 submissions")
	assert.Contains(t, lines, "end")

	// Base files upload under id 0, submissions under 1..n, and display
	// names never carry spaces.
	assert.Contains(t, lines, "file 0 python 10 starter_files/org/starter.py")
	assert.Contains(t, lines, "file 1 python 9 submission_files/group_001/main.py")
	assert.Contains(t, lines, "file 2 python 9 submission_files/group_002/main.py")
	assert.Equal(t, "print(1)\n", files["submission_files/group_001/main.py"])
}

func TestClient_SubmitLanguageRejected(t *testing.T) {
	srv := newFakeMossServer(t, "python")
	c := NewClient(987654, "cobol", WithServer(srv.addr))

	_, err := c.Submit(context.Background(), nil, nil, "")
	var validation *errors.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "cobol", validation.Value)
}

func TestClient_SubmitConnectionRefused(t *testing.T) {
	c := NewClient(987654, "python", WithServer("127.0.0.1:1"))

	_, err := c.Submit(context.Background(), nil, nil, "")
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))
}
