package memory

import (
	"context"
	"time"

	"docrag-be/internal/entity"
	"docrag-be/internal/repository/contract"

	"github.com/google/uuid"
)

type DeadLetterRepository struct {
	s *Store
}

func NewDeadLetterRepository(s *Store) contract.DeadLetterRepository {
	return &DeadLetterRepository{s: s}
}

func (r *DeadLetterRepository) Create(ctx context.Context, letter *entity.DeadLetter) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if letter.Id == uuid.Nil {
		letter.Id = uuid.New()
	}
	if letter.CreatedAt.IsZero() {
		letter.CreatedAt = time.Now()
	}
	c := *letter
	r.s.deadLetters = append(r.s.deadLetters, &c)
	return nil
}

// FindAll returns newest first.
func (r *DeadLetterRepository) FindAll(ctx context.Context, opts contract.ListOptions) ([]*entity.DeadLetter, error) {
	r.s.mu.RLock()
	out := make([]*entity.DeadLetter, 0, len(r.s.deadLetters))
	for i := len(r.s.deadLetters) - 1; i >= 0; i-- {
		c := *r.s.deadLetters[i]
		out = append(out, &c)
	}
	r.s.mu.RUnlock()
	return paginate(out, opts), nil
}
