// Package session runs the UI conversation over a loaded document: it
// turns scan and detach requests into result messages and pushes fresh
// scan results when the selection or the document changes.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gnana997/detachr/pkg/binding"
	"github.com/gnana997/detachr/pkg/detach"
	"github.com/gnana997/detachr/pkg/document"
	"github.com/gnana997/detachr/pkg/fonts"
	"github.com/gnana997/detachr/pkg/msglog"
	"github.com/gnana997/detachr/pkg/scanner"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session closed")

// Config configures a Session.
type Config struct {
	Scanner scanner.Config

	// FontDirs are searched for font files backing text rewrites.
	FontDirs []string

	// WriteBack, when set, is the path the document is saved to after a
	// live detach that changed something.
	WriteBack string

	Logger     *slog.Logger
	MessageLog *msglog.Logger
}

// Session owns one document and serializes every operation on it.
//
// **Thread Safety:** All methods are safe for concurrent use. Scans and
// detaches run one at a time; a selection change that arrives during a
// detach waits for it to finish.
type Session struct {
	id     string
	cfg    Config
	logger *slog.Logger
	audit  *msglog.Logger

	mu      sync.Mutex
	doc     *document.Document
	scanner *scanner.Scanner
	fonts   *fonts.Loader

	seq    atomic.Uint64
	closed atomic.Bool

	pushMu sync.Mutex
	push   func(Message)
}

// New creates a session over doc.
func New(doc *document.Document, cfg Config) (*Session, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		id:     uuid.NewString(),
		cfg:    cfg,
		logger: logger,
		audit:  cfg.MessageLog,
	}
	s.logger = logger.With("session", s.id)
	if err := s.attach(doc); err != nil {
		return nil, err
	}
	return s, nil
}

// attach wires doc into the session. Callers hold mu or own s exclusively.
func (s *Session) attach(doc *document.Document) error {
	sc, err := scanner.New(doc, s.cfg.Scanner, s.logger)
	if err != nil {
		return fmt.Errorf("create scanner: %w", err)
	}
	loader, err := fonts.NewLoader(doc.Fonts(), fonts.Config{Dirs: s.cfg.FontDirs, Logger: s.logger})
	if err != nil {
		return fmt.Errorf("create font loader: %w", err)
	}
	if s.fonts != nil {
		if err := s.fonts.Close(); err != nil {
			s.logger.Warn("failed to release fonts", "error", err)
		}
	}
	s.doc, s.scanner, s.fonts = doc, sc, loader
	return nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Closed reports whether a close request ended the session.
func (s *Session) Closed() bool { return s.closed.Load() }

// OnPush registers the receiver of unsolicited messages.
func (s *Session) OnPush(fn func(Message)) {
	s.pushMu.Lock()
	s.push = fn
	s.pushMu.Unlock()
}

func (s *Session) message(typ string, payload any) Message {
	return Message{Type: typ, Seq: s.seq.Add(1), Payload: payload}
}

func (s *Session) errorMessage(msg string) Message {
	return s.message(TypeError, ErrorPayload{Message: msg})
}

// Scan scans the selection, or the current page when nothing is selected.
func (s *Session) Scan(ctx context.Context) (*scanner.ScanResult, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanner.ScanSelection(ctx, s.doc)
}

// Detach plans and runs a detach. When write-back is configured and the
// run changed the document, the document is saved afterwards.
func (s *Session) Detach(ctx context.Context, bindings []binding.VariableBinding, opts binding.DetachOptions) (*detach.Result, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, err := detach.NewPlan(ctx, s.doc, bindings, opts)
	if err != nil {
		return nil, err
	}
	res, err := detach.NewExecutor(s.doc, s.fonts, s.logger).Run(ctx, plan)
	if err != nil {
		return nil, err
	}
	if !res.DryRun && len(res.Detached) > 0 && s.cfg.WriteBack != "" {
		if err := s.doc.Save(s.cfg.WriteBack); err != nil {
			return nil, fmt.Errorf("write back: %w", err)
		}
		s.logger.Info("document saved", "path", s.cfg.WriteBack)
	}
	return res, nil
}

// DynamicPage reports whether the current document loads pages on demand.
func (s *Session) DynamicPage() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.DynamicPage()
}

// Selection returns the ids of the selected nodes.
func (s *Session) Selection() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nodes, err := s.doc.Selection()
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID()
	}
	return ids, nil
}

// SetSelection replaces the selection and pushes fresh scan results.
func (s *Session) SetSelection(ctx context.Context, ids []string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.mu.Lock()
	err := s.doc.SetSelection(ids)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.Push(ctx)
	return nil
}

// Reload swaps in a freshly loaded document and pushes scan results for
// it. The previous document is closed.
func (s *Session) Reload(ctx context.Context, doc *document.Document) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.mu.Lock()
	prev := s.doc
	err := s.attach(doc)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	prev.Close()
	s.logger.Info("document reloaded", "name", doc.Name())
	s.Push(ctx)
	return nil
}

// SelectionChanged scans the current selection and returns the
// scan-results message, or an error message when the scan fails.
func (s *Session) SelectionChanged(ctx context.Context) Message {
	res, err := s.Scan(ctx)
	if err != nil {
		s.logger.Error("selection scan failed", "error", err)
		return s.errorMessage(scanErrorPrefix + err.Error())
	}
	return s.message(TypeScanResults, scanResults(res, false))
}

// Push delivers SelectionChanged to the OnPush receiver, if any.
func (s *Session) Push(ctx context.Context) {
	s.pushMu.Lock()
	fn := s.push
	s.pushMu.Unlock()
	if fn == nil || s.closed.Load() {
		return
	}
	fn(s.SelectionChanged(ctx))
}

func scanResults(res *scanner.ScanResult, afterDetach bool) ScanResults {
	return ScanResults{
		Bindings:    res.Bindings,
		Counts:      res.Counts,
		AfterDetach: afterDetach,
		NoSelection: res.NoSelection,
	}
}

// Dispatch decodes one raw request and handles it. Malformed input yields
// a single error message.
func (s *Session) Dispatch(ctx context.Context, raw []byte) []Message {
	start := time.Now()
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		out := []Message{s.errorMessage(handleErrorPrefix + err.Error())}
		s.record("", out[0].Seq, nil, start, out, err)
		return out
	}
	return s.Handle(ctx, req)
}

// Handle answers one request. A close request marks the session closed
// and produces no messages.
func (s *Session) Handle(ctx context.Context, req Request) []Message {
	start := time.Now()
	out, err := s.handle(ctx, req)

	var seq uint64
	if len(out) > 0 {
		seq = out[len(out)-1].Seq
	}
	s.record(req.Type, seq, requestParams(req), start, out, err)
	return out
}

// record writes a message log entry. A failed write is logged and never
// changes the response.
func (s *Session) record(name string, seq uint64, params map[string]any, start time.Time, out []Message, opErr error) {
	if err := s.audit.Record(s.id, msglog.KindMessage, name, seq, params, start, responseBytes(out), opErr); err != nil {
		s.logger.Warn("message log write failed", "type", name, "error", err)
	}
}

func (s *Session) handle(ctx context.Context, req Request) ([]Message, error) {
	s.logger.Debug("message received", "type", req.Type)

	switch req.Type {
	case TypeScan:
		res, err := s.Scan(ctx)
		if err != nil {
			s.logger.Error("scan failed", "error", err)
			return []Message{s.errorMessage(scanErrorPrefix + err.Error())}, err
		}
		return []Message{s.message(TypeScanResults, scanResults(res, req.AfterDetach))}, nil

	case TypeDetach:
		var out []Message
		var p DetachPayload
		if len(req.Payload) == 0 {
			err := errors.New("missing payload")
			return []Message{s.errorMessage(detachErrorPrefix + err.Error())}, err
		}
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return []Message{s.errorMessage(detachErrorPrefix + err.Error())}, err
		}
		if s.DynamicPage() {
			s.logger.Warn("detaching on a dynamic page")
			out = append(out, s.errorMessage(DynamicPageWarning))
		}
		res, err := s.Detach(ctx, p.Bindings, p.Options)
		if err != nil {
			s.logger.Error("detach failed", "error", err)
			return append(out, s.errorMessage(detachErrorPrefix+err.Error())), err
		}
		return append(out, s.message(TypeDetachResults, res)), nil

	case TypeClose:
		s.Close()
		return nil, nil

	default:
		err := fmt.Errorf("unknown message type %q", req.Type)
		return []Message{s.errorMessage(unknownTypePrefix + req.Type)}, err
	}
}

// Close ends the session and releases its fonts.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fonts.Close(); err != nil {
		s.logger.Warn("failed to release fonts", "error", err)
	}
	s.logger.Info("session closed")
}

func requestParams(req Request) map[string]any {
	params := map[string]any{"afterDetach": req.AfterDetach}
	if len(req.Payload) > 0 {
		var payload map[string]any
		if json.Unmarshal(req.Payload, &payload) == nil {
			params["payload"] = payload
		}
	}
	return params
}

func responseBytes(msgs []Message) int {
	n := 0
	for _, m := range msgs {
		b, err := json.Marshal(m)
		if err == nil {
			n += len(b)
		}
	}
	return n
}
