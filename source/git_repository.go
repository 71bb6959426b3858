package source

import (
	"context"
	"io"
	"net/url"
	"path"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/sirupsen/logrus"
)

// GitRepository is a struct that implements the Repository interface for a
// configuration document kept in a Git repository. The repository is cloned
// into memory on the first Refresh and pulled on later ones.
type GitRepository struct {
	sync.RWMutex                          // RWMutex to synchronize access to data during refresh
	Name          string                  // Name of the configuration source
	URL           *url.URL                // URL of the Git repository
	Path          string                  // Path to the document within the repository
	Branch        string                  // Branch to check out, remote HEAD when empty
	Auth          transport.AuthMethod    // Optional credentials used for clone and pull
	gitRepository *git.Repository         // In-memory clone
	fs            billy.Filesystem        // Worktree of the in-memory clone
	rawData       []byte                  // Raw content of the document
	cloneMu       sync.Mutex              // Serializes clone and pull
}

// GetName returns the name of the configuration source.
func (g *GitRepository) GetName() string {
	return g.Name
}

// GetRawData returns the raw content read by the last successful Refresh.
func (g *GitRepository) GetRawData() []byte {
	g.RLock()
	defer g.RUnlock()
	return g.rawData
}

// SetBasicAuth configures HTTP basic credentials; tokens go in password.
func (g *GitRepository) SetBasicAuth(username, password string) {
	g.Auth = &http.BasicAuth{Username: username, Password: password}
}

// Refresh clones or pulls the repository and reads the document at Path.
func (g *GitRepository) Refresh(ctx context.Context) error {
	g.cloneMu.Lock()
	defer g.cloneMu.Unlock()

	if g.gitRepository == nil {
		fs := memfs.New()
		logrus.Debugf("Cloning %s into memory", g.URL.Redacted())
		options := &git.CloneOptions{
			URL:  g.URL.String(),
			Auth: g.Auth,
		}
		if g.Branch != "" {
			options.ReferenceName = plumbing.NewBranchReferenceName(g.Branch)
			options.SingleBranch = true
		}
		r, err := git.CloneContext(ctx, memory.NewStorage(), fs, options)
		if err != nil {
			return err
		}
		logrus.Debug("Cloned")
		g.gitRepository = r
		g.fs = fs
	} else {
		w, err := g.gitRepository.Worktree()
		if err != nil {
			return err
		}
		pullOptions := &git.PullOptions{Auth: g.Auth}
		if g.Branch != "" {
			pullOptions.ReferenceName = plumbing.NewBranchReferenceName(g.Branch)
			pullOptions.SingleBranch = true
			pullOptions.Force = true
		}
		err = w.PullContext(ctx, pullOptions)
		if err != nil && err != git.NoErrAlreadyUpToDate {
			return err
		}
		if err == git.NoErrAlreadyUpToDate {
			logrus.Debug("Already up to date")
		} else {
			logrus.Debug("Pulled")
		}
	}

	file, err := g.fs.Open(g.Path)
	if err != nil {
		return err
	}
	defer func(file billy.File) {
		err := file.Close()
		if err != nil {
			logrus.WithError(err).Error("error closing file")
		}
	}(file)

	fileContent, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	g.Lock()
	g.rawData = fileContent
	g.Unlock()

	return nil
}

// NewGitRepository creates a GitRepository for the document at filePath
// inside the repository at rawURL.
func NewGitRepository(rawURL, filePath string) (*GitRepository, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return &GitRepository{Name: path.Base(filePath), URL: u, Path: filePath}, nil
}
