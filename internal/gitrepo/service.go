// Package gitrepo keeps the revision history of each VAL in its own git
// repository. Every save commits the per-section markup as content.json.
package gitrepo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/rickylandino/val-builder-sub000/internal/detail"
	"github.com/rickylandino/val-builder-sub000/internal/store"
)

const (
	contentFile = "content.json"
	branchName  = "main"
)

// ErrNoHistory is returned when a VAL has never been committed.
var ErrNoHistory = errors.New("val has no revision history")

// Content is the snapshot committed for a VAL: the encoded markup of every
// non-empty section keyed by section id.
type Content struct {
	ValID    string            `json:"valId"`
	Name     string            `json:"name"`
	Sections map[string]string `json:"sections"`
}

// Snapshot builds Content from the saved paragraphs of a VAL.
func Snapshot(valID, name string, blocks []detail.ContentBlock) Content {
	bySection := map[string][]detail.ContentBlock{}
	for _, block := range blocks {
		bySection[block.SectionID] = append(bySection[block.SectionID], block)
	}
	sections := make(map[string]string, len(bySection))
	for sectionID, items := range bySection {
		sections[sectionID] = detail.Encode(items)
	}
	return Content{ValID: valID, Name: name, Sections: sections}
}

// SaveMessage is the commit message for a save of n change records.
func SaveMessage(n int) string {
	if n == 1 {
		return "Save 1 change"
	}
	return fmt.Sprintf("Save %d changes", n)
}

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Commit writes content as the next revision of valID, creating the
// repository on first use.
func (s *Service) Commit(valID string, content Content, author, message string) (store.CommitInfo, error) {
	lock := s.valLock(valID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.openOrInit(valID)
	if err != nil {
		return store.CommitInfo{}, err
	}

	hash, err := commit(repo, content, author, message)
	if err != nil {
		return store.CommitInfo{}, err
	}

	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return store.CommitInfo{}, fmt.Errorf("read commit object: %w", err)
	}
	return toCommitInfo(commitObj), nil
}

// HeadContent returns the latest committed snapshot of valID.
func (s *Service) HeadContent(valID string) (Content, store.CommitInfo, error) {
	lock := s.valLock(valID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.open(valID)
	if err != nil {
		return Content{}, store.CommitInfo{}, err
	}

	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branchName), true)
	if err != nil {
		return Content{}, store.CommitInfo{}, fmt.Errorf("resolve branch %s: %w", branchName, err)
	}

	commitObj, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return Content{}, store.CommitInfo{}, fmt.Errorf("load commit object: %w", err)
	}

	content, err := readContentFromCommit(commitObj)
	if err != nil {
		return Content{}, store.CommitInfo{}, err
	}
	return content, toCommitInfo(commitObj), nil
}

// ContentAt returns the snapshot committed at hash (full or abbreviated).
func (s *Service) ContentAt(valID, hash string) (Content, error) {
	lock := s.valLock(valID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.open(valID)
	if err != nil {
		return Content{}, err
	}

	resolvedHash, err := resolveHash(repo, hash)
	if err != nil {
		return Content{}, err
	}
	commitObj, err := repo.CommitObject(resolvedHash)
	if err != nil {
		return Content{}, fmt.Errorf("read commit %s: %w", hash, err)
	}
	return readContentFromCommit(commitObj)
}

// History lists commits newest first. limit <= 0 means no limit.
func (s *Service) History(valID string, limit int) ([]store.CommitInfo, error) {
	lock := s.valLock(valID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.open(valID)
	if errors.Is(err, ErrNoHistory) {
		return []store.CommitInfo{}, nil
	}
	if err != nil {
		return nil, err
	}

	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branchName), true)
	if err != nil {
		return nil, fmt.Errorf("resolve branch %s: %w", branchName, err)
	}

	iter, err := repo.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]store.CommitInfo, 0)
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toCommitInfo(commitObj))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// SectionChange is one section whose markup differs between two snapshots.
type SectionChange struct {
	SectionID string `json:"sectionId"`
	Before    string `json:"before"`
	After     string `json:"after"`
}

// DiffSections lists the sections whose markup changed, ordered by id.
func DiffSections(from, to Content) []SectionChange {
	ids := map[string]struct{}{}
	for id := range from.Sections {
		ids[id] = struct{}{}
	}
	for id := range to.Sections {
		ids[id] = struct{}{}
	}

	result := make([]SectionChange, 0)
	for id := range ids {
		before, after := from.Sections[id], to.Sections[id]
		if before == after {
			continue
		}
		result = append(result, SectionChange{SectionID: id, Before: before, After: after})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SectionID < result[j].SectionID
	})
	return result
}

func (s *Service) repoPath(valID string) string {
	return filepath.Join(s.baseDir, valID)
}

func (s *Service) valLock(valID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[valID]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[valID] = lock
	return lock
}

func (s *Service) open(valID string) (*git.Repository, error) {
	repo, err := git.PlainOpen(s.repoPath(valID))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, ErrNoHistory
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	return repo, nil
}

func (s *Service) openOrInit(valID string) (*git.Repository, error) {
	repo, err := s.open(valID)
	if !errors.Is(err, ErrNoHistory) {
		return repo, err
	}

	path := s.repoPath(valID)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(branchName))
	if err := repo.Storer.SetReference(head); err != nil {
		return nil, fmt.Errorf("set HEAD to %s: %w", branchName, err)
	}
	return repo, nil
}

func commit(repo *git.Repository, content Content, author, message string) (plumbing.Hash, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("open worktree: %w", err)
	}

	if content.Sections == nil {
		content.Sections = map[string]string{}
	}
	payload, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("marshal content: %w", err)
	}

	repoRoot := worktree.Filesystem.Root()
	if err := os.WriteFile(filepath.Join(repoRoot, contentFile), append(payload, '\n'), 0o644); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("write %s: %w", contentFile, err)
	}

	if _, err := worktree.Add(contentFile); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("git add content: %w", err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@local.valbuilder.dev", sanitizeEmail(author)),
			When:  time.Now(),
		},
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("commit content: %w", err)
	}
	return hash, nil
}

func readContentFromCommit(commitObj *object.Commit) (Content, error) {
	file, err := commitObj.File(contentFile)
	if err != nil {
		return Content{}, fmt.Errorf("load %s from commit: %w", contentFile, err)
	}
	reader, err := file.Reader()
	if err != nil {
		return Content{}, fmt.Errorf("open content reader: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return Content{}, fmt.Errorf("read content bytes: %w", err)
	}

	var content Content
	if err := json.Unmarshal(raw, &content); err != nil {
		return Content{}, fmt.Errorf("decode commit content: %w", err)
	}
	return content, nil
}

func toCommitInfo(commitObj *object.Commit) store.CommitInfo {
	return store.CommitInfo{
		Hash:      commitObj.Hash.String()[:7],
		Message:   commitObj.Message,
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}

func resolveHash(repo *git.Repository, hash string) (plumbing.Hash, error) {
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve hash %s: %w", hash, err)
	}
	return *resolved, nil
}
