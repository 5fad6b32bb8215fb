package machine

import (
	"sync"

	"github.com/cosmopole-org/elpian-vm/internal/compiler"
	"github.com/cosmopole-org/elpian-vm/internal/value"
)

// Registry is the minimal in-process home for create/exists/destroy (§2's
// EXPANSION). Its mutex protects only the map of machines, never a
// machine's own internal fields — the engine itself assumes single-
// threaded access, matching §4/§5's resolution of the concurrency open
// question.
type Registry struct {
	mu       sync.Mutex
	machines map[string]*Machine
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{machines: make(map[string]*Machine)}
}

// Create compiles program and registers the resulting Machine under id,
// overwriting any existing machine with that id.
func (r *Registry) Create(id string, program compiler.Program) (*Machine, error) {
	m, err := Create(id, program)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.machines[id] = m
	r.mu.Unlock()
	return m, nil
}

// CreateFromBytecode registers a prebuilt byte stream under id.
func (r *Registry) CreateFromBytecode(id string, data []byte) (*Machine, error) {
	m, err := CreateFromBytecode(id, data)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.machines[id] = m
	r.mu.Unlock()
	return m, nil
}

// Exists reports whether id names a live machine.
func (r *Registry) Exists(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.machines[id]
	return ok
}

// Destroy releases the machine named id, if any. Destroying a suspended
// machine is allowed (§7's cancellation note); any outstanding ContinueRun
// against it afterward returns ErrNotFound.
func (r *Registry) Destroy(id string) {
	r.mu.Lock()
	delete(r.machines, id)
	r.mu.Unlock()
}

func (r *Registry) get(id string) (*Machine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.machines[id]
	return m, ok
}

// Run looks up id and runs its top-level program body.
func (r *Registry) Run(id string) (*Envelope, error) {
	m, ok := r.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return m.Run()
}

// RunFunc looks up id and runs its named function.
func (r *Registry) RunFunc(id, name string, input *value.Value) (*Envelope, error) {
	m, ok := r.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return m.RunFunc(name, input)
}

// ContinueRun looks up id and resumes it with reply.
func (r *Registry) ContinueRun(id string, reply value.Value) (*Envelope, error) {
	m, ok := r.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return m.ContinueRun(reply)
}

// Validate looks up id and re-checks its compiled chunk.
func (r *Registry) Validate(id string) error {
	m, ok := r.get(id)
	if !ok {
		return ErrNotFound
	}
	return m.Validate()
}
