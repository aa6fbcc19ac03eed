package app

import (
	"crypto/sha256"
	"os"
	"sync"

	"github.com/ninelines/scribe/internal/engine/buffer"
	"github.com/ninelines/scribe/internal/engine/event"
	"github.com/ninelines/scribe/internal/engine/eventstate"
)

// document pairs one open file's EditorState with the bookkeeping the
// editor keeps outside the event-sourced state: the digest of the content
// last written to (or read from) disk, which auto-revert compares against
// to decide whether an external change is benign.
type document struct {
	state *eventstate.EditorState

	recoveryID string
	savedSum   [sha256.Size]byte
	savedLen   int64
	haveSum    bool
}

// Editor owns every open document's EditorState and tracks which one is
// active. It is the top-level aggregate the dispatcher drives: one
// Editor per running process, one EditorState per open file.
type Editor struct {
	mu       sync.Mutex
	running  bool
	docs     map[string]*document
	activeID string
	logger   *Logger
}

// NewEditor creates an Editor with no open documents.
func NewEditor() *Editor {
	return &Editor{
		docs:   make(map[string]*document),
		logger: GetLogger(),
	}
}

// Start marks the editor running. Calling Start twice returns
// ErrAlreadyRunning.
func (ed *Editor) Start() error {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	if ed.running {
		return ErrAlreadyRunning
	}
	ed.running = true
	return nil
}

// Stop marks the editor stopped. Calling Stop when not running returns
// ErrNotRunning.
func (ed *Editor) Stop() error {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	if !ed.running {
		return ErrNotRunning
	}
	ed.running = false
	return nil
}

// OpenPath opens path as a new document and makes it active. Returns
// ErrDocumentAlreadyOpen if path is already open.
func (ed *Editor) OpenPath(path string, opts ...buffer.Option) error {
	ed.mu.Lock()
	defer ed.mu.Unlock()

	if _, exists := ed.docs[path]; exists {
		return ErrDocumentAlreadyOpen
	}
	buf, err := buffer.Open(path, opts...)
	if err != nil {
		return err
	}
	doc := &document{state: eventstate.New(buf)}
	doc.recordSavedContent()
	ed.docs[path] = doc
	ed.activeID = path
	ed.logger.Info("opened document %s", path)
	return nil
}

// OpenScratch opens an unnamed in-memory document under id and makes it
// active.
func (ed *Editor) OpenScratch(id, content string) error {
	ed.mu.Lock()
	defer ed.mu.Unlock()

	if _, exists := ed.docs[id]; exists {
		return ErrDocumentAlreadyOpen
	}
	ed.docs[id] = &document{state: eventstate.New(buffer.NewBufferFromString(content))}
	ed.activeID = id
	return nil
}

// Save writes a document's buffer to its backing path, marks the save
// point, and refreshes the saved-content digest auto-revert compares
// against.
func (ed *Editor) Save(id string) error {
	ed.mu.Lock()
	doc, ok := ed.docs[id]
	ed.mu.Unlock()
	if !ok {
		return ErrDocumentNotFound
	}

	if err := doc.state.Buf.Save(""); err != nil {
		return err
	}
	doc.state.MarkSaved()
	doc.recordSavedContent()
	ed.logger.Info("saved document %s", id)
	return nil
}

// recordSavedContent digests the buffer's current content as the
// on-disk baseline. Failure to read (a chunked buffer whose backing file
// vanished mid-flight) just leaves the digest unset; auto-revert then
// treats any external change as a real change.
func (d *document) recordSavedContent() {
	snap, err := d.state.Buf.Snapshot()
	if err != nil {
		d.haveSum = false
		return
	}
	d.savedSum = sha256.Sum256([]byte(snap.Text()))
	d.savedLen = snap.Len()
	d.haveSum = true
}

// RevertOutcome reports what HandleFileChanged did with a change notice.
type RevertOutcome uint8

const (
	// RevertNotOpen: no open document holds the changed path.
	RevertNotOpen RevertOutcome = iota
	// RevertSkippedUnchanged: file content equals the saved snapshot; the
	// notice was benign (editor's own save, touch, or a tool rewriting
	// identical bytes) and the event log was left untouched.
	RevertSkippedUnchanged
	// RevertSkippedDirty: the buffer has unsaved local edits; reverting
	// would lose them, so only a warning is emitted.
	RevertSkippedDirty
	// Reverted: buffer content was replaced with the file's new content
	// via a single Replace event.
	Reverted
)

// HandleFileChanged reconciles an on-disk change notice for path with the
// open buffer holding it. The debounced watcher is the producer; this is
// the auto-revert rule: skip when content is unchanged (never touching
// the event log, so undo history survives benign external saves), warn
// and skip when the buffer is dirty, otherwise replace the whole content
// with one logged Replace event. Cursors are clamped to the new length by
// the apply rule; viewports hold their top byte because only this
// buffer's state is touched.
func (ed *Editor) HandleFileChanged(path string) (RevertOutcome, error) {
	ed.mu.Lock()
	doc, ok := ed.docs[path]
	ed.mu.Unlock()
	if !ok {
		return RevertNotOpen, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return RevertNotOpen, err
	}

	if doc.haveSum && int64(len(data)) == doc.savedLen && sha256.Sum256(data) == doc.savedSum {
		return RevertSkippedUnchanged, nil
	}

	if doc.state.Log.IsModified() {
		ed.logger.Warn("%s changed on disk; buffer has unsaved edits, not reverting", path)
		return RevertSkippedDirty, nil
	}

	old, err := doc.state.Buf.Text()
	if err != nil {
		return RevertNotOpen, err
	}
	replace := event.NewReplace(buffer.Range{Start: 0, End: int64(len(old))}, string(data))
	if err := doc.state.Apply(replace); err != nil {
		return RevertNotOpen, err
	}
	doc.state.MarkSaved()
	doc.recordSavedContent()
	ed.logger.Info("reverted %s to on-disk content (%d bytes)", path, len(data))
	return Reverted, nil
}

// Close closes a document by id. Returns ErrUnsavedChanges if it has
// unsaved write events and force is false. Returns ErrDocumentNotFound
// if id is not open.
func (ed *Editor) Close(id string, force bool) error {
	ed.mu.Lock()
	defer ed.mu.Unlock()

	doc, ok := ed.docs[id]
	if !ok {
		return ErrDocumentNotFound
	}
	if !force && doc.state.Log.IsModified() {
		return ErrUnsavedChanges
	}
	delete(ed.docs, id)
	if ed.activeID == id {
		ed.activeID = ed.anyRemainingID()
	}
	return nil
}

func (ed *Editor) anyRemainingID() string {
	for id := range ed.docs {
		return id
	}
	return ""
}

// Active returns the active document's state. Returns ErrNoActiveDocument
// if no document is open.
func (ed *Editor) Active() (*eventstate.EditorState, error) {
	ed.mu.Lock()
	defer ed.mu.Unlock()

	if ed.activeID == "" {
		return nil, ErrNoActiveDocument
	}
	doc, ok := ed.docs[ed.activeID]
	if !ok {
		return nil, ErrNoActiveDocument
	}
	return doc.state, nil
}

// ActiveID returns the active document's id, or "" when none is open.
func (ed *Editor) ActiveID() string {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return ed.activeID
}

// SetActive switches the active document by id.
func (ed *Editor) SetActive(id string) error {
	ed.mu.Lock()
	defer ed.mu.Unlock()

	if _, ok := ed.docs[id]; !ok {
		return ErrDocumentNotFound
	}
	ed.activeID = id
	return nil
}

// Get returns the document state for id.
func (ed *Editor) Get(id string) (*eventstate.EditorState, bool) {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	doc, ok := ed.docs[id]
	if !ok {
		return nil, false
	}
	return doc.state, true
}

// Undo reverts the active document's most recent write event.
func (ed *Editor) Undo() (bool, error) {
	state, err := ed.Active()
	if err != nil {
		return false, err
	}
	return state.Undo()
}

// Redo re-applies the active document's next undone write event.
func (ed *Editor) Redo() (bool, error) {
	state, err := ed.Active()
	if err != nil {
		return false, err
	}
	return state.Redo()
}

// DocumentIDs returns the ids of every open document.
func (ed *Editor) DocumentIDs() []string {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	ids := make([]string, 0, len(ed.docs))
	for id := range ed.docs {
		ids = append(ids, id)
	}
	return ids
}

// HasUnsavedChanges reports whether any open document has unsaved writes.
func (ed *Editor) HasUnsavedChanges() bool {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	for _, doc := range ed.docs {
		if doc.state.Log.IsModified() {
			return true
		}
	}
	return false
}

// SetRecoveryID associates a recovery snapshot id with an open document.
func (ed *Editor) SetRecoveryID(id, recoveryID string) {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	if doc, ok := ed.docs[id]; ok {
		doc.recoveryID = recoveryID
	}
}

// RecoveryID returns the recovery snapshot id for a document, if set.
func (ed *Editor) RecoveryID(id string) (string, bool) {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	doc, ok := ed.docs[id]
	if !ok || doc.recoveryID == "" {
		return "", false
	}
	return doc.recoveryID, true
}
