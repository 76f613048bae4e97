package nursing

import "context"

// VisitRepository stores the append-only visit log.
type VisitRepository interface {
	// Append assigns v the next Visit_ID (max + 1) and stores it.
	Append(ctx context.Context, v *Visit) error
	// List returns every visit in log order. A missing log is empty.
	List(ctx context.Context) ([]*Visit, error)
}
