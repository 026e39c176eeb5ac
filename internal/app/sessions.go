package app

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rickylandino/val-builder-sub000/internal/changes"
	"github.com/rickylandino/val-builder-sub000/internal/detail"
	"github.com/rickylandino/val-builder-sub000/internal/gitrepo"
	"github.com/rickylandino/val-builder-sub000/internal/session"
	"github.com/rickylandino/val-builder-sub000/internal/store"
	"github.com/rickylandino/val-builder-sub000/internal/tracker"
	"github.com/rickylandino/val-builder-sub000/internal/util"
)

// editSession is one user's working copy of a VAL. The mutex serializes the
// coordinator the way a single editor event loop would.
type editSession struct {
	id     string
	valID  string
	author string

	mu        sync.Mutex
	coord     *tracker.Coordinator
	expiresAt time.Time
}

// SessionView is what every session operation reports back to the editor.
type SessionView struct {
	SessionID         string                `json:"sessionId"`
	ValID             string                `json:"valId"`
	Author            string                `json:"author"`
	SectionID         string                `json:"sectionId"`
	Markup            string                `json:"markup"`
	Blocks            []detail.ContentBlock `json:"blocks"`
	TrackedSections   []string              `json:"trackedSections"`
	HasPendingChanges bool                  `json:"hasPendingChanges"`
	ExpiresAt         time.Time             `json:"expiresAt"`
}

func (e *editSession) view() SessionView {
	tracked := e.coord.TrackedSections()
	if tracked == nil {
		tracked = []string{}
	}
	return SessionView{
		SessionID:         e.id,
		ValID:             e.valID,
		Author:            e.author,
		SectionID:         e.coord.CurrentSection(),
		Markup:            e.coord.CurrentMarkup(),
		Blocks:            e.coord.CurrentBlocks(),
		TrackedSections:   tracked,
		HasPendingChanges: e.coord.HasPendingChanges() || len(e.coord.PendingChanges()) > 0,
		ExpiresAt:         e.expiresAt,
	}
}

func (e *editSession) requireActiveSection() error {
	if e.coord.CurrentSection() == "" {
		return domainError(http.StatusConflict, "NO_ACTIVE_SECTION", "Switch to a section first", nil)
	}
	return nil
}

type OpenSessionInput struct {
	Author    string `json:"author"`
	SectionID string `json:"sectionId"`
}

// OpenSession starts an editing session seeded with the VAL's saved details.
func (s *Service) OpenSession(ctx context.Context, valID string, input OpenSessionInput) (SessionView, error) {
	if _, err := s.store.GetVal(ctx, valID); err != nil {
		return SessionView{}, err
	}
	details, err := s.store.ListDetails(ctx, valID)
	if err != nil {
		return SessionView{}, err
	}

	sess := &editSession{
		id:        util.NewID("sess"),
		valID:     valID,
		author:    firstNonBlank(input.Author, "Unknown"),
		coord:     tracker.New(valID, details),
		expiresAt: s.now().Add(s.sessionTTL),
	}
	if sectionID := strings.TrimSpace(input.SectionID); sectionID != "" {
		if err := s.requireSection(ctx, sectionID); err != nil {
			return SessionView{}, err
		}
		sess.coord.SwitchToSection(sectionID)
	}

	s.sessionsMu.Lock()
	s.sessions[sess.id] = sess
	s.sessionsMu.Unlock()
	log.Printf("app: session %s opened on %s by %s", sess.id, valID, sess.author)
	return sess.view(), nil
}

// lookupSession returns a live session and extends its expiry. Expired
// sessions are swept on the way.
func (s *Service) lookupSession(sessionID string) (*editSession, error) {
	now := s.now()
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	for key, sess := range s.sessions {
		if now.After(sess.expiresAt) {
			delete(s.sessions, key)
		}
	}
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, domainError(http.StatusNotFound, "SESSION_NOT_FOUND", "Editing session not found or expired", map[string]any{"sessionId": sessionID})
	}
	sess.expiresAt = now.Add(s.sessionTTL)
	return sess, nil
}

// withSession runs fn with the session locked.
func (s *Service) withSession(sessionID string, fn func(*editSession) error) (SessionView, error) {
	sess, err := s.lookupSession(sessionID)
	if err != nil {
		return SessionView{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := fn(sess); err != nil {
		return SessionView{}, err
	}
	return sess.view(), nil
}

func (s *Service) GetSession(sessionID string) (SessionView, error) {
	return s.withSession(sessionID, func(*editSession) error { return nil })
}

// CloseSession drops a session and any unsaved edits in it.
func (s *Service) CloseSession(sessionID string) error {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return domainError(http.StatusNotFound, "SESSION_NOT_FOUND", "Editing session not found or expired", map[string]any{"sessionId": sessionID})
	}
	delete(s.sessions, sessionID)
	return nil
}

func (s *Service) SwitchSection(ctx context.Context, sessionID, sectionID string) (SessionView, error) {
	sectionID = strings.TrimSpace(sectionID)
	if sectionID == "" {
		return SessionView{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "sectionId is required", nil)
	}
	if err := s.requireSection(ctx, sectionID); err != nil {
		return SessionView{}, err
	}
	return s.withSession(sessionID, func(sess *editSession) error {
		sess.coord.SwitchToSection(sectionID)
		return nil
	})
}

// ApplyMarkup stores editor markup for the active section. It is decoded
// lazily, on the next structural operation or save.
func (s *Service) ApplyMarkup(sessionID, markup string) (SessionView, error) {
	return s.withSession(sessionID, func(sess *editSession) error {
		if err := sess.requireActiveSection(); err != nil {
			return err
		}
		sess.coord.ApplyMarkupEdit(markup)
		return nil
	})
}

// SyncMarkup decodes pending markup into the active section's details.
func (s *Service) SyncMarkup(sessionID string) (SessionView, error) {
	return s.withSession(sessionID, func(sess *editSession) error {
		if err := sess.requireActiveSection(); err != nil {
			return err
		}
		sess.coord.SyncMarkupToBlocks()
		return nil
	})
}

func detailNotFound(detailID string) error {
	return domainError(http.StatusNotFound, "DETAIL_NOT_FOUND", "Detail not found in the active section", map[string]any{"detailId": detailID})
}

func (s *Service) MoveDetail(sessionID, detailID string, targetIndex int) (SessionView, error) {
	return s.withSession(sessionID, func(sess *editSession) error {
		if err := sess.requireActiveSection(); err != nil {
			return err
		}
		if !sess.coord.MoveBlock(detailID, targetIndex) {
			return detailNotFound(detailID)
		}
		return nil
	})
}

func (s *Service) DeleteDetail(sessionID, detailID string) (SessionView, error) {
	return s.withSession(sessionID, func(sess *editSession) error {
		if err := sess.requireActiveSection(); err != nil {
			return err
		}
		if !sess.coord.DeleteBlock(detailID) {
			return detailNotFound(detailID)
		}
		return nil
	})
}

// InsertTemplate drops a library paragraph into the active section at index.
func (s *Service) InsertTemplate(ctx context.Context, sessionID, templateID string, index int) (SessionView, detail.ContentBlock, error) {
	tmpl, err := s.store.GetTemplate(ctx, templateID)
	if err != nil {
		if isNotFound(err) {
			return SessionView{}, detail.ContentBlock{}, domainError(http.StatusNotFound, "TEMPLATE_NOT_FOUND", "Template not found", map[string]any{"templateId": templateID})
		}
		return SessionView{}, detail.ContentBlock{}, err
	}

	var created detail.ContentBlock
	view, err := s.withSession(sessionID, func(sess *editSession) error {
		if err := sess.requireActiveSection(); err != nil {
			return err
		}
		created, _ = sess.coord.InsertBlock(tmpl.Block(), index)
		return nil
	})
	return view, created, err
}

// optionalInt distinguishes an absent JSON field from an explicit null.
type optionalInt struct {
	Set   bool
	Value *int
}

func (o *optionalInt) UnmarshalJSON(raw []byte) error {
	o.Set = true
	if string(raw) == "null" {
		o.Value = nil
		return nil
	}
	var v int
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// DetailPatch is the format dialog's edit. Absent fields are left alone;
// indent and blankLineAfter accept null to clear them.
type DetailPatch struct {
	Content         *string     `json:"content"`
	Bold            *bool       `json:"bold"`
	Bullet          *bool       `json:"bullet"`
	Center          *bool       `json:"center"`
	TightLineHeight *bool       `json:"tightLineHeight"`
	Indent          optionalInt `json:"indent"`
	BlankLineAfter  optionalInt `json:"blankLineAfter"`
}

func (p DetailPatch) apply(block detail.ContentBlock) detail.ContentBlock {
	if p.Content != nil {
		block.Content = *p.Content
	}
	if p.Bold != nil {
		block.Bold = *p.Bold
	}
	if p.Bullet != nil {
		block.Bullet = *p.Bullet
	}
	if p.Center != nil {
		block.Center = *p.Center
	}
	if p.TightLineHeight != nil {
		block.TightLineHeight = *p.TightLineHeight
	}
	if p.Indent.Set {
		block.Indent = p.Indent.Value
	}
	if p.BlankLineAfter.Set {
		block.BlankLineAfter = p.BlankLineAfter.Value
	}
	return block
}

func (s *Service) PatchDetail(sessionID, detailID string, patch DetailPatch) (SessionView, error) {
	if err := validateSpacing(patch.Indent.Value, patch.BlankLineAfter.Value); err != nil {
		return SessionView{}, err
	}
	return s.withSession(sessionID, func(sess *editSession) error {
		if err := sess.requireActiveSection(); err != nil {
			return err
		}
		block, ok := sess.coord.Block(detailID)
		if !ok {
			return detailNotFound(detailID)
		}
		sess.coord.UpdateSingleBlock(patch.apply(block))
		return nil
	})
}

// PendingChanges is the change set a save would apply right now.
type PendingChanges struct {
	Records []changes.Record `json:"changes"`
	Summary changes.Summary  `json:"summary"`
}

func (s *Service) PendingChanges(sessionID string) (PendingChanges, error) {
	var pending PendingChanges
	_, err := s.withSession(sessionID, func(sess *editSession) error {
		sess.coord.SyncMarkupToBlocks()
		pending.Records = sess.coord.PendingChanges()
		pending.Summary = changes.Summarize(pending.Records)
		return nil
	})
	return pending, err
}

func (s *Service) ResetSession(sessionID string) (SessionView, error) {
	return s.withSession(sessionID, func(sess *editSession) error {
		sess.coord.ResetAll()
		return nil
	})
}

// SaveResult reports what a save persisted.
type SaveResult struct {
	Summary changes.Summary   `json:"summary"`
	Commit  *store.CommitInfo `json:"commit,omitempty"`
	SavedAt time.Time         `json:"savedAt"`
	Session SessionView       `json:"session"`
}

// Save persists every tracked section of the session in one transaction. Only
// one save per VAL may be in flight; a second one is refused. If the transaction
// fails the session keeps its edits so the user can retry.
func (s *Service) Save(ctx context.Context, sessionID string) (SaveResult, error) {
	sess, err := s.lookupSession(sessionID)
	if err != nil {
		return SaveResult{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.coord.SyncMarkupToBlocks()
	records := sess.coord.PendingChanges()
	result := SaveResult{Summary: changes.Summarize(records), SavedAt: s.now().UTC()}
	if len(records) == 0 {
		result.Session = sess.view()
		return result, nil
	}

	if s.gate != nil {
		if err := s.gate.AcquireSaveLock(ctx, sess.valID, sess.id, s.cfg.SaveLockTTL); err != nil {
			if errors.Is(err, session.ErrSaveInProgress) {
				return SaveResult{}, domainError(http.StatusConflict, "SAVE_IN_PROGRESS", "Another save of this VAL is in progress", map[string]any{"valId": sess.valID})
			}
			return SaveResult{}, err
		}
		defer func() {
			if _, err := s.gate.ReleaseSaveLock(context.WithoutCancel(ctx), sess.valID, sess.id); err != nil {
				log.Printf("app: release save lock for %s: %v", sess.valID, err)
			}
		}()
	}

	if err := s.store.ApplyChanges(ctx, sess.valID, sess.author, records); err != nil {
		return SaveResult{}, err
	}
	// The change set is durable from here on. Later failures are only logged.
	sess.coord.CheckpointAfterSave()

	saved, err := s.store.ListDetails(ctx, sess.valID)
	if err != nil {
		log.Printf("app: reload details for %s after save: %v", sess.valID, err)
	} else {
		sess.coord.SetAllBlocks(saved)
		if s.git != nil {
			result.Commit = s.commitHistory(ctx, sess, saved, len(records))
		}
	}

	if s.gate != nil {
		record := session.SaveRecord{
			SessionID: sess.id,
			Author:    sess.author,
			Created:   result.Summary.Created,
			Updated:   result.Summary.Updated,
			Deleted:   result.Summary.Deleted,
			SavedAt:   result.SavedAt,
		}
		if result.Commit != nil {
			record.Commit = result.Commit.Hash
		}
		if err := s.gate.RecordSave(ctx, sess.valID, record); err != nil {
			log.Printf("app: record save for %s failed: %v", sess.valID, err)
		}
	}

	log.Printf("app: session %s saved %d changes to %s", sess.id, len(records), sess.valID)

	result.Session = sess.view()
	return result, nil
}

func (s *Service) commitHistory(ctx context.Context, sess *editSession, saved []detail.ContentBlock, changeCount int) *store.CommitInfo {
	val, err := s.store.GetVal(ctx, sess.valID)
	if err != nil {
		log.Printf("app: history commit for %s skipped: %v", sess.valID, err)
		return nil
	}
	commit, err := s.git.Commit(sess.valID, gitrepo.Snapshot(sess.valID, val.Name, saved), sess.author, gitrepo.SaveMessage(changeCount))
	if err != nil {
		log.Printf("app: history commit for %s failed: %v", sess.valID, err)
		return nil
	}
	return &commit
}
