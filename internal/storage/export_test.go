package storage

// setFaultHook makes ReplaceAll fail at the named stage while hook returns an
// error. Passing nil restores normal behavior.
func (r *SQLiteRepository) setFaultHook(hook func(stage string) error) {
	r.faultHook = hook
}
