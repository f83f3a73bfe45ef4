// Package moss submits files to the MOSS similarity-detection service
// over its TCP upload protocol, mirrors the resulting web report, and
// parses the mirrored pages into a match ledger.
package moss

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/MarkUsProject/markusmoss/internal/errors"
	"github.com/MarkUsProject/markusmoss/internal/logging"
)

const (
	serviceName = "moss"

	// DefaultServer is the public MOSS upload endpoint.
	DefaultServer = "moss.stanford.edu:7690"
)

// File is one file in a submission batch. DisplayName is the path the
// report will show; it must be unique across the batch.
type File struct {
	DisplayName string
	Content     []byte
}

// Client submits batches to a MOSS server.
type Client struct {
	userID     int64
	language   string
	maxMatches int
	show       int
	server     string
	dialer     net.Dialer
	log        *logging.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithServer overrides the upload endpoint.
func WithServer(addr string) ClientOption {
	return func(c *Client) { c.server = addr }
}

// WithMaxMatches sets how many times a passage may appear before it is
// ignored as boilerplate.
func WithMaxMatches(n int) ClientOption {
	return func(c *Client) { c.maxMatches = n }
}

// WithShowResults sets how many matches the report shows.
func WithShowResults(n int) ClientOption {
	return func(c *Client) { c.show = n }
}

// WithClientLogger attaches a logger for upload tracing.
func WithClientLogger(log *logging.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// NewClient returns a Client for the given account and submission language.
func NewClient(userID int64, language string, opts ...ClientOption) *Client {
	c := &Client{
		userID:     userID,
		language:   language,
		maxMatches: 10,
		show:       250,
		server:     DefaultServer,
		dialer:     net.Dialer{Timeout: 30 * time.Second},
		log:        logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit uploads base files and submission files in one session and
// returns the report URL the server hands back. Base files mark content
// (starter code) that should never count as a match.
func (c *Client) Submit(ctx context.Context, baseFiles, files []File, comment string) (string, error) {
	conn, err := c.dialer.DialContext(ctx, "tcp", c.server)
	if err != nil {
		return "", errors.NewRemoteServiceError("connecting to upload server", err).
			WithService(serviceName).WithEndpoint(c.server)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))

	fmt.Fprintf(rw, "moss %d\n", c.userID)
	fmt.Fprintf(rw, "directory 0\n")
	fmt.Fprintf(rw, "X 0\n")
	fmt.Fprintf(rw, "maxmatches %d\n", c.maxMatches)
	fmt.Fprintf(rw, "show %d\n", c.show)
	fmt.Fprintf(rw, "language %s\n", c.language)
	if err := rw.Flush(); err != nil {
		return "", c.protoErr("sending header", err)
	}

	// The server acknowledges the language line with "yes" or "no".
	ack, err := rw.ReadString('\n')
	if err != nil {
		return "", c.protoErr("reading language acknowledgement", err)
	}
	if strings.TrimSpace(ack) != "yes" {
		fmt.Fprintf(rw, "end\n")
		rw.Flush()
		return "", errors.NewValidationError("language rejected by upload server").
			WithField("language").WithValue(c.language)
	}

	for _, f := range baseFiles {
		c.sendFile(rw, 0, f)
	}
	for i, f := range files {
		c.sendFile(rw, i+1, f)
	}

	fmt.Fprintf(rw, "query 0 %s\n", comment)
	if err := rw.Flush(); err != nil {
		return "", c.protoErr("sending query", err)
	}

	c.log.Info("upload complete, awaiting report url", "files", len(files), "base_files", len(baseFiles))
	reply, err := rw.ReadString('\n')
	if err != nil {
		return "", c.protoErr("reading report url", err)
	}

	fmt.Fprintf(rw, "end\n")
	rw.Flush()

	url := strings.TrimSpace(reply)
	if !strings.HasPrefix(url, "http") {
		return "", errors.NewRemoteServiceError("server returned no report url: "+url, nil).
			WithService(serviceName).WithEndpoint(c.server)
	}
	return url, nil
}

func (c *Client) sendFile(rw *bufio.ReadWriter, id int, f File) {
	// The upload protocol cannot carry spaces in display names.
	name := strings.ReplaceAll(f.DisplayName, " ", "_")
	fmt.Fprintf(rw, "file %d %s %d %s\n", id, c.language, len(f.Content), name)
	rw.Write(f.Content)
	c.log.Debug("file sent", "id", id, "name", name, "bytes", len(f.Content))
}

func (c *Client) protoErr(message string, cause error) error {
	return errors.NewRemoteServiceError(message, cause).
		WithService(serviceName).WithEndpoint(c.server)
}
