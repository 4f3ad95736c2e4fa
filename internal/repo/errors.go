package repo

import "fmt"

// ErrNotFound is returned by repository lookups that find nothing,
// mirroring the teacher's sentinel-error style in internal/game/table.go.
var ErrNotFound = fmt.Errorf("not found")
