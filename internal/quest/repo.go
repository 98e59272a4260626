package quest

import (
	"context"
)

type Repository interface {
	Seed(ctx context.Context, quests []Quest) error

	List(ctx context.Context) ([]Quest, error)
	Get(ctx context.Context, id string) (Quest, bool, error)
	Put(ctx context.Context, q Quest) error
	Delete(ctx context.Context, id string) error

	// ListActiveCapped returns every active quest that carries a participant
	// cap. Used to enforce the one-capped-quest-per-actor invariant.
	ListActiveCapped(ctx context.Context) ([]Quest, error)
}
