// Package scheduler fires the housekeeping jobs on fixed intervals under a
// suture supervisor.
//
// Every job runs once as soon as the supervisor starts and then on its own
// ticker. A job never overlaps itself: a tick that arrives while the
// previous run is still busy is skipped and counted. Errors and panics are
// logged and recorded in [JobStatus]; the loop keeps going. [Scheduler.RunNow]
// runs a job synchronously, for the command line.
//
// Long-running services such as the HTTP servers can be supervised by the
// same tree through [Scheduler.AddService].
package scheduler
