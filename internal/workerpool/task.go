package workerpool

// Task is a unit of work executed by the pool.
type Task struct {
	Err  error
	Data interface{}
	f    func(interface{}) error
}

// NewTask initializes a new task based on a given work function.
func NewTask(f func(interface{}) error, data interface{}) *Task {
	return &Task{f: f, Data: data}
}

// Run executes the task and stores its error.
func (t *Task) Run() error {
	t.Err = t.f(t.Data)

	return t.Err
}
