package finn

import "context"

// Browser opens sessions able to load a page and hand back its script bodies.
type Browser interface {
	Open(ctx context.Context) (Session, error)
	Name() string
}

// Session is one browsing session. Pages of a single search share it.
type Session interface {
	// Scripts loads url and returns the text of every <script> element in document order.
	Scripts(ctx context.Context, url string) ([]string, error)
	Close() error
}
