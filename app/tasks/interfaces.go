package tasks

// TaskSchedulerInterface is what the HTTP API needs from the scheduler:
// a way to queue background work after a catalog change.
//
//	scheduler := NewScheduler(deps, conf)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewSaveCatalogTask(...))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
