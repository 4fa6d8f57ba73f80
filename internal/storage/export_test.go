package storage

import "time"

// SetNow pins the clock used to derive trip status.
func SetNow(r *Repository, now func() time.Time) { r.now = now }
