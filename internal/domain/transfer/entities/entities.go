package entities

// Stats is a snapshot of the scheduler
type Stats struct {
	Limit    int
	Running  int
	Queued   int
	Attached int
}
