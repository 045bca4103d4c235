package task

import (
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-scraper/internal/model"
)

// Registry is a concurrent store of task snapshots keyed by task ID.
// Snapshots are immutable: updates replace the stored value atomically, and
// a task in a terminal state can no longer be replaced.
type Registry struct {
	tasks sync.Map // string -> *model.Task
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Create stores a new task. It fails if the ID is already taken.
func (r *Registry) Create(t model.Task) error {
	snap := t
	if _, loaded := r.tasks.LoadOrStore(t.ID, &snap); loaded {
		return eris.Errorf("task: duplicate task id %s", t.ID)
	}
	return nil
}

// Get returns the current snapshot for id.
func (r *Registry) Get(id string) (model.Task, bool) {
	v, ok := r.tasks.Load(id)
	if !ok {
		return model.Task{}, false
	}
	return *v.(*model.Task), true
}

// Update replaces the snapshot for id with fn's result and returns it.
func (r *Registry) Update(id string, fn func(model.Task) model.Task) (model.Task, error) {
	for {
		v, ok := r.tasks.Load(id)
		if !ok {
			return model.Task{}, ErrNotFound
		}
		cur := v.(*model.Task)
		if cur.Status.Terminal() {
			return *cur, ErrTerminal
		}
		next := fn(*cur)
		next.ID = cur.ID
		if r.tasks.CompareAndSwap(id, cur, &next) {
			return next, nil
		}
	}
}

// Len returns the number of stored tasks.
func (r *Registry) Len() int {
	n := 0
	r.tasks.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
