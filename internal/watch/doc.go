// Package watch turns new files in watched directories into processing
// requests.
//
// The Watcher subscribes to fsnotify events for each configured directory
// and its subdirectories, queues candidate media files on create and write,
// and hands a file to the Handler only after its size has not changed for
// the settle period. Files present at startup are queued the same way.
// Handlers run one at a time on the watcher goroutine.
package watch
