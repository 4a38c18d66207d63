package pdfrender

import "sync"

// registrations tracks in-flight render names. It exists so the renderer
// never holds a hot per-tenant template cache across invocations: each
// Render call registers a fresh name and unregisters it on every exit path,
// success or failure.
var (
	registrationMu sync.Mutex
	registrations  = map[string]struct{}{}
)

func registerRender(name string) {
	registrationMu.Lock()
	defer registrationMu.Unlock()
	registrations[name] = struct{}{}
}

func unregisterRender(name string) {
	registrationMu.Lock()
	defer registrationMu.Unlock()
	delete(registrations, name)
}
