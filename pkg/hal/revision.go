package hal

import "fmt"

// Revision identifies a physical shield variant.
type Revision int

const (
	RevisionUnknown Revision = -1
	Revision0       Revision = 0
	Revision1       Revision = 1
	Revision2       Revision = 2
)

func (r Revision) String() string {
	if r == RevisionUnknown {
		return "unknown"
	}
	return fmt.Sprintf("rev%d", int(r))
}
