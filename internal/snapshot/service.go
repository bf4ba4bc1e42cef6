// Package snapshot records each user's bookmark tree in a local git
// repository. Every mutating operation commits the full tree as JSON, which
// gives drag-and-drop reordering an inspectable paper trail without storing
// any ordering state outside the primary database.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const treeFile = "bookmarks.json"

// CategoryTree is one category and its ordered links as committed to the
// snapshot repository.
type CategoryTree struct {
	CategoryID int64      `json:"categoryId"`
	Name       string     `json:"name"`
	Links      []LinkLeaf `json:"links"`
}

type LinkLeaf struct {
	LinkID int64  `json:"linkId"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Icon   string `json:"icon,omitempty"`
}

// CommitInfo describes one snapshot commit.
type CommitInfo struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	When    time.Time `json:"when"`
}

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[int64]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[int64]*sync.Mutex),
	}
}

// Commit writes the user's full bookmark tree and commits it. An unchanged
// tree is a no-op.
func (s *Service) Commit(userID int64, tree []CategoryTree, author, message string) (CommitInfo, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.ensureRepo(userID)
	if err != nil {
		return CommitInfo{}, err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return CommitInfo{}, fmt.Errorf("open worktree: %w", err)
	}

	if tree == nil {
		tree = []CategoryTree{}
	}
	payload, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return CommitInfo{}, fmt.Errorf("marshal bookmark tree: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.repoPath(userID), treeFile), append(payload, '\n'), 0o644); err != nil {
		return CommitInfo{}, fmt.Errorf("write bookmark tree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return CommitInfo{}, fmt.Errorf("worktree status: %w", err)
	}
	if status.IsClean() {
		return s.head(repo)
	}

	if _, err := worktree.Add(treeFile); err != nil {
		return CommitInfo{}, fmt.Errorf("git add bookmark tree: %w", err)
	}

	if author == "" {
		author = "linkboard"
	}
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: author + "@snapshots.linkboard.local",
			When:  time.Now(),
		},
	})
	if err != nil {
		return CommitInfo{}, fmt.Errorf("commit bookmark tree: %w", err)
	}

	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return CommitInfo{}, fmt.Errorf("read commit object: %w", err)
	}
	return toCommitInfo(commitObj), nil
}

// History lists the user's snapshot commits, newest first.
func (s *Service) History(userID int64, limit int) ([]CommitInfo, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(userID))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return []CommitInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open snapshot repo: %w", err)
	}

	headRef, err := repo.Head()
	if err != nil {
		// Repository exists but has no commits yet.
		return []CommitInfo{}, nil
	}

	iter, err := repo.Log(&git.LogOptions{From: headRef.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read snapshot log: %w", err)
	}
	defer iter.Close()

	items := make([]CommitInfo, 0, limit)
	count := 0
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toCommitInfo(commitObj))
		count++
		if limit > 0 && count >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate snapshot log: %w", err)
	}
	return items, nil
}

// TreeAt reads the bookmark tree committed at the given hash.
func (s *Service) TreeAt(userID int64, hash string) ([]CategoryTree, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(userID))
	if err != nil {
		return nil, fmt.Errorf("open snapshot repo: %w", err)
	}

	commitObj, err := repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}

	file, err := commitObj.File(treeFile)
	if err != nil {
		return nil, fmt.Errorf("read %s at %s: %w", treeFile, hash, err)
	}
	contents, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("read file contents: %w", err)
	}

	var tree []CategoryTree
	if err := json.Unmarshal([]byte(contents), &tree); err != nil {
		return nil, fmt.Errorf("unmarshal bookmark tree: %w", err)
	}
	return tree, nil
}

func (s *Service) ensureRepo(userID int64) (*git.Repository, error) {
	path := s.repoPath(userID)
	repo, err := git.PlainOpen(path)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open snapshot repo: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init snapshot repo: %w", err)
	}
	return repo, nil
}

func (s *Service) head(repo *git.Repository) (CommitInfo, error) {
	headRef, err := repo.Head()
	if err != nil {
		return CommitInfo{}, nil
	}
	commitObj, err := repo.CommitObject(headRef.Hash())
	if err != nil {
		return CommitInfo{}, fmt.Errorf("read head commit: %w", err)
	}
	return toCommitInfo(commitObj), nil
}

func (s *Service) repoPath(userID int64) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("user-%d", userID))
}

func (s *Service) userLock(userID int64) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

func toCommitInfo(commitObj *object.Commit) CommitInfo {
	return CommitInfo{
		Hash:    commitObj.Hash.String(),
		Message: commitObj.Message,
		Author:  commitObj.Author.Name,
		When:    commitObj.Author.When,
	}
}
