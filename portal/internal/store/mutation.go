package store

import (
	"context"
	"strings"

	"github.com/Astemirdum/library-portal/portal/internal/errs"
	"github.com/google/uuid"
)

var errNotInStore = errs.ErrNotFound

type Kind uint8

const (
	KindCreate Kind = iota + 1
	KindUpdate
	KindDelete
)

func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	default:
		return "unknown"
	}
}

type Outcome uint8

const (
	Confirmed Outcome = iota + 1
	RolledBack
)

func (o Outcome) String() string {
	switch o {
	case Confirmed:
		return "confirmed"
	case RolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Rollback is the instruction that undoes one optimistic change.
// Prior and Index are captured before the change is applied.
type Rollback[T Entity] struct {
	Kind  Kind
	ID    string
	Prior T
	Index int
}

// Result of an optimistic mutation. Entity is the authoritative entity on success.
// Rollback is set when the API refused the change and the instruction was executed.
type Result[T Entity] struct {
	Kind     Kind
	Outcome  Outcome
	Entity   T
	Rollback *Rollback[T]
}

// Confirm sends a change to the API.
type Confirm func(ctx context.Context) error

// ConfirmCreate sends a new entity to the API. A nil entity means the API did not echo it back.
type ConfirmCreate[T Entity] func(ctx context.Context) (*T, error)

const provisionalPrefix = "tmp-"

func ProvisionalID() string {
	return provisionalPrefix + uuid.NewString()
}

func IsProvisional(id string) bool {
	return strings.HasPrefix(id, provisionalPrefix)
}

// Create shows provisional at the head of c until the API answers.
// On success it is replaced by the entity the API returned, on failure it is removed.
func Create[T Entity](ctx context.Context, c *Collection[T], provisional T, confirm ConfirmCreate[T]) (Result[T], error) {
	rb := c.applyCreate(provisional)
	created, err := confirm(ctx)
	if err != nil {
		c.Undo(rb)
		return Result[T]{Kind: KindCreate, Outcome: RolledBack, Entity: provisional, Rollback: &rb}, err
	}
	entity := provisional
	if created != nil && (*created).Key() != "" {
		entity = *created
		c.reconcile(rb.ID, entity)
	}
	return Result[T]{Kind: KindCreate, Outcome: Confirmed, Entity: entity}, nil
}

// Update replaces the entity id in place with merge(prior) until the API answers.
// On failure the prior entity is restored at the same position.
func Update[T Entity](ctx context.Context, c *Collection[T], id string, merge func(T) T, confirm Confirm) (Result[T], error) {
	rb, next, err := c.applyUpdate(id, merge)
	if err != nil {
		return Result[T]{Kind: KindUpdate}, err
	}
	if err := confirm(ctx); err != nil {
		c.Undo(rb)
		return Result[T]{Kind: KindUpdate, Outcome: RolledBack, Entity: rb.Prior, Rollback: &rb}, err
	}
	return Result[T]{Kind: KindUpdate, Outcome: Confirmed, Entity: next}, nil
}

// Delete removes the entity id until the API answers.
// On failure it is reinserted at its original index.
func Delete[T Entity](ctx context.Context, c *Collection[T], id string, confirm Confirm) (Result[T], error) {
	rb, err := c.applyDelete(id)
	if err != nil {
		return Result[T]{Kind: KindDelete}, err
	}
	if err := confirm(ctx); err != nil {
		c.Undo(rb)
		return Result[T]{Kind: KindDelete, Outcome: RolledBack, Entity: rb.Prior, Rollback: &rb}, err
	}
	return Result[T]{Kind: KindDelete, Outcome: Confirmed, Entity: rb.Prior}, nil
}
