package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/joescharf/mergeq/internal/conflict"
	"github.com/joescharf/mergeq/internal/git"
	"github.com/joescharf/mergeq/internal/merge"
	"github.com/joescharf/mergeq/internal/models"
	"github.com/joescharf/mergeq/internal/shell"
)

type mockHost struct {
	mu        sync.Mutex
	prs       map[int][]*git.PullRequest
	open      []git.PullRequest
	fetchErr  error
	mergeErrs map[merge.Strategy]error
	comments  map[int][]string
	reviews   map[int][]string
	merges    []merge.Strategy
	fetches   int
}

func newMockHost() *mockHost {
	return &mockHost{
		prs:      map[int][]*git.PullRequest{},
		comments: map[int][]string{},
		reviews:  map[int][]string{},
	}
}

// addPR queues successive FetchPR answers; the last one repeats.
func (m *mockHost) addPR(prs ...*git.PullRequest) {
	m.prs[prs[0].Number] = append(m.prs[prs[0].Number], prs...)
}

func (m *mockHost) FetchPR(_ context.Context, number int) (*git.PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	queue := m.prs[number]
	if len(queue) == 0 {
		return nil, errors.New("no such PR")
	}
	pr := queue[0]
	if len(queue) > 1 {
		m.prs[number] = queue[1:]
	}
	return pr, nil
}

func (m *mockHost) ListOpenPRs(context.Context) ([]git.PullRequest, error) {
	return m.open, nil
}

func (m *mockHost) Diff(context.Context, int) (string, error) {
	return "diff --git a/x.go b/x.go\n+added line\n", nil
}

func (m *mockHost) PostComment(_ context.Context, number int, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments[number] = append(m.comments[number], body)
	return nil
}

func (m *mockHost) SubmitReview(_ context.Context, number int, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviews[number] = append(m.reviews[number], body)
	return nil
}

func (m *mockHost) Merge(_ context.Context, _ int, s merge.Strategy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.merges = append(m.merges, s)
	return m.mergeErrs[s]
}

func readyPR(number int) *git.PullRequest {
	return &git.PullRequest{
		Number:           number,
		Title:            "Add feature",
		State:            "OPEN",
		Mergeable:        "MERGEABLE",
		MergeStateStatus: "CLEAN",
		BaseRefName:      "main",
		HeadRefName:      "feature",
		CommitCount:      1,
		Files:            []string{"x.go"},
	}
}

func dirtyPR(number int) *git.PullRequest {
	pr := readyPR(number)
	pr.Mergeable = "CONFLICTING"
	pr.MergeStateStatus = "DIRTY"
	return pr
}

type stubProvider struct {
	name  string
	reply string
	err   error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Complete(context.Context, string) (string, error) {
	return s.reply, s.err
}

const (
	approveReply = "DECISION: APPROVE\nCONFIDENCE: HIGH\n\nSUMMARY:\nLooks good.\n"
	rejectReply  = "DECISION: REQUEST_CHANGES\nCONFIDENCE: HIGH\n\nCONCERNS:\n- Possible bug in retry loop\n"
)

type mockWorkspace struct {
	files       map[string]string
	sides       map[string]map[conflict.Side]string
	conflicted  []string
	mergeDirty  bool
	checkedOut  []int
	pushed      []string
	stagedAll   int
	cleanups    int
	stagedPaths map[string]bool
}

func newMockWorkspace() *mockWorkspace {
	return &mockWorkspace{
		files:       map[string]string{},
		sides:       map[string]map[conflict.Side]string{},
		stagedPaths: map[string]bool{},
	}
}

func (w *mockWorkspace) addConflict(path, content, ours, theirs string) {
	w.files[path] = content
	w.sides[path] = map[conflict.Side]string{conflict.SideOurs: ours, conflict.SideTheirs: theirs}
	w.conflicted = append(w.conflicted, path)
	w.mergeDirty = true
}

func (w *mockWorkspace) CheckoutPR(_ context.Context, number int) error {
	w.checkedOut = append(w.checkedOut, number)
	return nil
}

func (w *mockWorkspace) MergeBase(context.Context, string) (bool, error) {
	return w.mergeDirty, nil
}

func (w *mockWorkspace) ListConflictedPaths(context.Context) ([]string, error) {
	var out []string
	for _, p := range w.conflicted {
		if !w.stagedPaths[p] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (w *mockWorkspace) ReadArtifact(_ context.Context, path string) (string, error) {
	content, ok := w.files[path]
	if !ok {
		return "", errors.New("missing " + path)
	}
	return content, nil
}

func (w *mockWorkspace) CheckoutSide(_ context.Context, path string, side conflict.Side) error {
	w.files[path] = w.sides[path][side]
	return nil
}

func (w *mockWorkspace) StageForCommit(_ context.Context, path string, content []byte) error {
	if content != nil {
		w.files[path] = string(content)
	}
	w.stagedPaths[path] = true
	return nil
}

func (w *mockWorkspace) StageAll(context.Context) error {
	w.stagedAll++
	return nil
}

func (w *mockWorkspace) CommitAndPush(_ context.Context, message string) error {
	w.pushed = append(w.pushed, message)
	return nil
}

func (w *mockWorkspace) Cleanup(context.Context) error {
	w.cleanups++
	return nil
}

func (w *mockWorkspace) Dir() string { return "/work" }

type recordingRunner struct {
	scripts []string
}

func (r *recordingRunner) Run(_ context.Context, c shell.Command) (shell.Result, error) {
	r.scripts = append(r.scripts, strings.Join(c.Args, " "))
	return shell.Result{}, nil
}

type mockRegenerator struct{ paths []string }

func (m *mockRegenerator) Regenerate(_ context.Context, path string) error {
	m.paths = append(m.paths, path)
	return nil
}

type mockHistory struct {
	runs     []*models.Run
	finished map[string]models.RunStats
	results  []*models.PRResult
}

func newMockHistory() *mockHistory {
	return &mockHistory{finished: map[string]models.RunStats{}}
}

func (h *mockHistory) CreateRun(_ context.Context, run *models.Run) error {
	run.ID = "run-1"
	h.runs = append(h.runs, run)
	return nil
}

func (h *mockHistory) FinishRun(_ context.Context, id string, stats models.RunStats) error {
	h.finished[id] = stats
	return nil
}

func (h *mockHistory) RecordPRResult(_ context.Context, r *models.PRResult) error {
	h.results = append(h.results, r)
	return nil
}

// testConfig disables every delay.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RecheckDelay = 0
	cfg.BatchDelay = 0
	return cfg
}
