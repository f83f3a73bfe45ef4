package markus

import (
	"context"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/MarkUsProject/markusmoss/internal/errors"
	"github.com/MarkUsProject/markusmoss/internal/logging"
	"github.com/MarkUsProject/markusmoss/internal/roster"
	"github.com/MarkUsProject/markusmoss/internal/workspace"
)

// downloadConcurrency bounds parallel archive downloads per run.
const downloadConcurrency = 4

// Downloader fetches submissions and starter files for an assignment into
// the workspace layout, building the group roster along the way.
type Downloader struct {
	client *Client
	layout workspace.Layout
	log    *logging.Logger
}

// NewDownloader returns a Downloader writing under the given layout.
func NewDownloader(client *Client, layout workspace.Layout, log *logging.Logger) *Downloader {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Downloader{client: client, layout: layout, log: log}
}

// DownloadSubmissions downloads every group's collected submission into
// submission_files/<group>/ and returns the roster store. When only is
// non-empty the run is restricted to those group names. Groups without a
// collected submission are logged and skipped, not treated as failures.
func (d *Downloader) DownloadSubmissions(ctx context.Context, course, assignment string, only []string) (*roster.Store, error) {
	courseID, assignmentID, err := d.resolve(ctx, course, assignment)
	if err != nil {
		return nil, err
	}
	apiGroups, rolesByID, err := d.fetchGroups(ctx, courseID, assignmentID, only)
	if err != nil {
		return nil, err
	}

	groups := make([]roster.Group, len(apiGroups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(downloadConcurrency)
	for i, ag := range apiGroups {
		g.Go(func() error {
			members := groupMembers(ag, rolesByID)

			data, err := d.client.SubmissionZip(gctx, courseID, assignmentID, ag.ID)
			if err != nil {
				var remote *errors.RemoteServiceError
				if errors.As(err, &remote) && remote.StatusCode == http.StatusNotFound {
					d.log.Warn("no collected submission", "group", ag.Name)
					groups[i] = roster.Group{Name: ag.Name, ID: ag.ID, Members: members}
					return nil
				}
				return errors.Wrapf(err, "downloading submission for %s", ag.Name)
			}

			dest := d.layout.GroupSubmission(ag.Name)
			if err := unpackZip(data, dest); err != nil {
				return errors.Wrapf(err, "unpacking submission for %s", ag.Name)
			}
			files, err := workspace.GlobFiles(dest, "")
			if err != nil {
				return err
			}

			d.log.Info("submission downloaded", "group", ag.Name, "files", len(files))
			groups[i] = roster.Group{Name: ag.Name, ID: ag.ID, Members: members, Files: files}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return roster.NewStore(groups), nil
}

// FetchRoster builds the group roster without downloading any archives.
// File lists come from whatever a previous download left on disk under
// submission_files/, so later pipeline stages can re-derive the roster
// cheaply.
func (d *Downloader) FetchRoster(ctx context.Context, course, assignment string, only []string) (*roster.Store, error) {
	courseID, assignmentID, err := d.resolve(ctx, course, assignment)
	if err != nil {
		return nil, err
	}
	apiGroups, rolesByID, err := d.fetchGroups(ctx, courseID, assignmentID, only)
	if err != nil {
		return nil, err
	}

	groups := make([]roster.Group, len(apiGroups))
	for i, ag := range apiGroups {
		files, err := workspace.GlobFiles(d.layout.GroupSubmission(ag.Name), "")
		if err != nil {
			return nil, err
		}
		groups[i] = roster.Group{Name: ag.Name, ID: ag.ID, Members: groupMembers(ag, rolesByID), Files: files}
	}
	return roster.NewStore(groups), nil
}

func (d *Downloader) fetchGroups(ctx context.Context, courseID, assignmentID int, only []string) ([]Group, map[int]Role, error) {
	apiGroups, err := d.client.Groups(ctx, courseID, assignmentID)
	if err != nil {
		return nil, nil, err
	}
	roles, err := d.client.Roles(ctx, courseID)
	if err != nil {
		return nil, nil, err
	}
	rolesByID := make(map[int]Role, len(roles))
	for _, r := range roles {
		rolesByID[r.ID] = r
	}

	if len(only) > 0 {
		filtered := apiGroups[:0]
		for _, g := range apiGroups {
			if slices.Contains(only, g.Name) {
				filtered = append(filtered, g)
			}
		}
		apiGroups = filtered
	}
	return apiGroups, rolesByID, nil
}

func groupMembers(g Group, rolesByID map[int]Role) []roster.Member {
	members := make([]roster.Member, 0, len(g.Members))
	for _, m := range g.Members {
		role, ok := rolesByID[m.RoleID]
		if !ok {
			continue
		}
		members = append(members, roster.Member{
			UserName:  role.UserName,
			FirstName: role.FirstName,
			LastName:  role.LastName,
			Email:     role.Email,
			IDNumber:  role.IDNumber,
		})
	}
	return members
}

// DownloadStarterFiles downloads every starter-file group's entries into
// starter_files/org/.
func (d *Downloader) DownloadStarterFiles(ctx context.Context, course, assignment string) error {
	courseID, assignmentID, err := d.resolve(ctx, course, assignment)
	if err != nil {
		return err
	}

	starterGroups, err := d.client.StarterFileGroups(ctx, courseID, assignmentID)
	if err != nil {
		return err
	}

	for _, sg := range starterGroups {
		data, err := d.client.StarterFileZip(ctx, courseID, assignmentID, sg.ID)
		if err != nil {
			return errors.Wrapf(err, "downloading starter files %q", sg.Name)
		}
		// Each starter group gets its own subdirectory; groups may carry
		// same-named entries.
		dest := filepath.Join(d.layout.StarterFilesOrg(), strconv.Itoa(sg.ID))
		if err := unpackZip(data, dest); err != nil {
			return errors.Wrapf(err, "unpacking starter files %q", sg.Name)
		}
		d.log.Info("starter files downloaded", "starter_group", sg.Name)
	}
	return nil
}

func (d *Downloader) resolve(ctx context.Context, course, assignment string) (courseID, assignmentID int, err error) {
	c, err := d.client.CourseByName(ctx, course)
	if err != nil {
		return 0, 0, err
	}
	a, err := d.client.AssignmentByIdentifier(ctx, c.ID, assignment)
	if err != nil {
		return 0, 0, err
	}
	return c.ID, a.ID, nil
}
