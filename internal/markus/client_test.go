package markus

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarkUsProject/markusmoss/internal/errors"
)

// fakeMarkus serves a minimal MarkUs API: one course, one assignment, two
// groups with one member each, and a submission archive per group.
func fakeMarkus(t *testing.T, apiKey string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/courses.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 1, "name": "csc108"}, {"id": 2, "name": "csc207"}]`))
	})
	mux.HandleFunc("/api/courses/1/assignments.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 10, "short_identifier": "a1"}]`))
	})
	mux.HandleFunc("/api/courses/1/assignments/10/groups.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id": 100, "group_name": "group_001", "members": [{"role_id": 7}]},
			{"id": 101, "group_name": "group_002", "members": [{"role_id": 8}]}
		]`))
	})
	mux.HandleFunc("/api/courses/1/roles.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id": 7, "user_name": "alove", "first_name": "Ada", "last_name": "Lovelace", "email": "ada@example.com", "id_number": "1001"},
			{"id": 8, "user_name": "aturing", "first_name": "Alan", "last_name": "Turing", "email": "alan@example.com", "id_number": "1002"}
		]`))
	})
	mux.HandleFunc("/api/courses/1/assignments/10/groups/100/submission_files", func(w http.ResponseWriter, r *http.Request) {
		w.Write(zipArchive(t, map[string]string{"group_001/main.py": "print(1)\n"}))
	})
	mux.HandleFunc("/api/courses/1/assignments/10/groups/101/submission_files", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/api/courses/1/assignments/10/starter_file_groups.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 20, "name": "default"}, {"id": 21, "name": "alternate"}]`))
	})
	mux.HandleFunc("/api/courses/1/assignments/10/starter_file_groups/20/download_entries", func(w http.ResponseWriter, r *http.Request) {
		w.Write(zipArchive(t, map[string]string{"starter.py": "# starter\n"}))
	})
	mux.HandleFunc("/api/courses/1/assignments/10/starter_file_groups/21/download_entries", func(w http.ResponseWriter, r *http.Request) {
		w.Write(zipArchive(t, map[string]string{"starter.py": "# alternate starter\n"}))
	})

	auth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "MarkUsAuth "+apiKey {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	srv := httptest.NewServer(auth(mux))
	t.Cleanup(srv.Close)
	return srv
}

func zipArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := zw.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestClient_CourseByName(t *testing.T) {
	srv := fakeMarkus(t, "token")
	c := NewClient(srv.URL, "token")

	course, err := c.CourseByName(context.Background(), "csc108")
	require.NoError(t, err)
	assert.Equal(t, 1, course.ID)

	_, err = c.CourseByName(context.Background(), "csc999")
	var notFound *errors.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestClient_AuthRejection(t *testing.T) {
	srv := fakeMarkus(t, "token")
	c := NewClient(srv.URL, "wrong")

	_, err := c.CourseByName(context.Background(), "csc108")
	var remote *errors.RemoteServiceError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusForbidden, remote.StatusCode)
	assert.Equal(t, "/api/courses.json", remote.Endpoint)
	assert.True(t, errors.IsRetryable(err))
}

func TestClient_AssignmentByIdentifier(t *testing.T) {
	srv := fakeMarkus(t, "token")
	c := NewClient(srv.URL, "token")

	a, err := c.AssignmentByIdentifier(context.Background(), 1, "a1")
	require.NoError(t, err)
	assert.Equal(t, 10, a.ID)

	_, err = c.AssignmentByIdentifier(context.Background(), 1, "a9")
	var notFound *errors.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestClient_GroupsAndRoles(t *testing.T) {
	srv := fakeMarkus(t, "token")
	c := NewClient(srv.URL, "token")

	groups, err := c.Groups(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "group_001", groups[0].Name)
	assert.Equal(t, []GroupMembership{{RoleID: 7}}, groups[0].Members)

	roles, err := c.Roles(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, "Lovelace", roles[0].LastName)
}
