package vault

import "sync"

// Update is the event sent to the observers when the vault content changes.
type Update struct {
	// Consumed holds the references retired by the change.
	Consumed []StateAndRef

	// Created holds the states added by the change.
	Created []StateAndRef
}

// Observer is the interface to implement to watch vault updates.
type Observer interface {
	NotifyCallback(update Update)
}

// watcher fans vault updates out to the registered observers.
type watcher struct {
	sync.RWMutex

	observers map[Observer]struct{}
}

func newWatcher() *watcher {
	return &watcher{
		observers: make(map[Observer]struct{}),
	}
}

// Add adds the observer to the list of observers that will be notified of new
// updates.
func (w *watcher) Add(observer Observer) {
	w.Lock()
	w.observers[observer] = struct{}{}
	w.Unlock()
}

// Remove removes the observer from the list thus stopping it from receiving
// new updates.
func (w *watcher) Remove(observer Observer) {
	w.Lock()
	delete(w.observers, observer)
	w.Unlock()
}

// Notify notifies the observers of a new update.
func (w *watcher) Notify(update Update) {
	w.RLock()
	defer w.RUnlock()

	for observer := range w.observers {
		observer.NotifyCallback(update)
	}
}
