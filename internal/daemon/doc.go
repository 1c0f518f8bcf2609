// Package daemon wires a tasktimer.Timer into tasktimerd: tasks built
// from config run shell commands, every timer event is logged, run
// results land in the history store, and a cron housekeeping job enforces
// history retention. Config reloads are applied as a diff against the
// running task set.
package daemon
