// Package markus talks to the MarkUs course-management REST API: course
// and assignment lookup, group and roster listings, and submission and
// starter-file archive downloads.
package markus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/MarkUsProject/markusmoss/internal/errors"
	"github.com/MarkUsProject/markusmoss/internal/logging"
)

const serviceName = "markus"

// Client is a MarkUs API client. Requests authenticate with the MarkUsAuth
// scheme; non-2xx responses become RemoteServiceError values carrying the
// endpoint and status code.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger attaches a logger for request tracing.
func WithLogger(log *logging.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient returns a Client for the MarkUs instance at baseURL.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 5 * time.Minute},
		log:     logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Course is a MarkUs course listing entry.
type Course struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Assignment is a MarkUs assignment listing entry.
type Assignment struct {
	ID              int    `json:"id"`
	ShortIdentifier string `json:"short_identifier"`
}

// GroupMembership links a group member to a role record.
type GroupMembership struct {
	RoleID int `json:"role_id"`
}

// Group is a MarkUs grouping for an assignment.
type Group struct {
	ID      int               `json:"id"`
	Name    string            `json:"group_name"`
	Members []GroupMembership `json:"members"`
}

// Role is a MarkUs role record; student roles carry the roster fields.
type Role struct {
	ID        int    `json:"id"`
	UserName  string `json:"user_name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	IDNumber  string `json:"id_number"`
}

// StarterFileGroup is a MarkUs starter-file group listing entry.
type StarterFileGroup struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CourseByName resolves a course name to its listing entry.
func (c *Client) CourseByName(ctx context.Context, name string) (Course, error) {
	var courses []Course
	if err := c.getJSON(ctx, "/api/courses.json", &courses); err != nil {
		return Course{}, err
	}
	for _, course := range courses {
		if course.Name == name {
			return course, nil
		}
	}
	return Course{}, errors.NewNotFoundError("course", name)
}

// AssignmentByIdentifier resolves an assignment short identifier within a
// course.
func (c *Client) AssignmentByIdentifier(ctx context.Context, courseID int, short string) (Assignment, error) {
	var assignments []Assignment
	endpoint := fmt.Sprintf("/api/courses/%d/assignments.json", courseID)
	if err := c.getJSON(ctx, endpoint, &assignments); err != nil {
		return Assignment{}, err
	}
	for _, a := range assignments {
		if a.ShortIdentifier == short {
			return a, nil
		}
	}
	return Assignment{}, errors.NewNotFoundError("assignment", short)
}

// Groups lists the groupings for an assignment.
func (c *Client) Groups(ctx context.Context, courseID, assignmentID int) ([]Group, error) {
	var groups []Group
	endpoint := fmt.Sprintf("/api/courses/%d/assignments/%d/groups.json", courseID, assignmentID)
	if err := c.getJSON(ctx, endpoint, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// Roles lists every role in a course, keyed later by role ID to resolve
// group memberships into roster rows.
func (c *Client) Roles(ctx context.Context, courseID int) ([]Role, error) {
	var roles []Role
	endpoint := fmt.Sprintf("/api/courses/%d/roles.json", courseID)
	if err := c.getJSON(ctx, endpoint, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// SubmissionZip downloads one group's collected submission as a zip archive.
func (c *Client) SubmissionZip(ctx context.Context, courseID, assignmentID, groupID int) ([]byte, error) {
	endpoint := fmt.Sprintf("/api/courses/%d/assignments/%d/groups/%d/submission_files",
		courseID, assignmentID, groupID)
	return c.getRaw(ctx, endpoint+"?collected=true", "application/zip")
}

// StarterFileGroups lists the starter-file groups for an assignment.
func (c *Client) StarterFileGroups(ctx context.Context, courseID, assignmentID int) ([]StarterFileGroup, error) {
	var groups []StarterFileGroup
	endpoint := fmt.Sprintf("/api/courses/%d/assignments/%d/starter_file_groups.json", courseID, assignmentID)
	if err := c.getJSON(ctx, endpoint, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// StarterFileZip downloads one starter-file group's entries as a zip archive.
func (c *Client) StarterFileZip(ctx context.Context, courseID, assignmentID, starterGroupID int) ([]byte, error) {
	endpoint := fmt.Sprintf("/api/courses/%d/assignments/%d/starter_file_groups/%d/download_entries",
		courseID, assignmentID, starterGroupID)
	return c.getRaw(ctx, endpoint, "application/zip")
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	data, err := c.getRaw(ctx, endpoint, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.NewRemoteServiceError("decoding response", err).
			WithService(serviceName).WithEndpoint(endpoint)
	}
	return nil
}

func (c *Client) getRaw(ctx context.Context, endpoint, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, errors.NewRemoteServiceError("building request", err).
			WithService(serviceName).WithEndpoint(endpoint)
	}
	req.Header.Set("Authorization", "MarkUsAuth "+c.apiKey)
	req.Header.Set("Accept", accept)

	c.log.Debug("markus request", "endpoint", endpoint)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.NewRemoteServiceError("sending request", err).
			WithService(serviceName).WithEndpoint(endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.NewRemoteServiceError("unexpected status "+strconv.Itoa(resp.StatusCode), nil).
			WithService(serviceName).WithEndpoint(endpoint).WithStatus(resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewRemoteServiceError("reading response", err).
			WithService(serviceName).WithEndpoint(endpoint)
	}
	return data, nil
}
