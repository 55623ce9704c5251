package services

import (
	"context"
	"sync"
	"time"

	"github.com/username/backoffice/backend/src/models"
)

// CustomerSearch debounces the customer lookup of the receivables filter.
// Only the latest keystroke inside the delay reaches the backend; older calls
// return ErrSuperseded.
type CustomerSearch struct {
	lookups LookupService
	delay   time.Duration

	mu  sync.Mutex
	seq uint64
}

func NewCustomerSearch(lookups LookupService, delay time.Duration) *CustomerSearch {
	return &CustomerSearch{lookups: lookups, delay: delay}
}

func (c *CustomerSearch) next() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

func (c *CustomerSearch) latest(seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq == seq
}

func (c *CustomerSearch) Search(ctx context.Context, term string) ([]models.Contact, error) {
	seq := c.next()

	if c.delay > 0 {
		timer := time.NewTimer(c.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if !c.latest(seq) {
		return nil, ErrSuperseded
	}

	contacts, err := c.lookups.Contacts(ctx, term)
	if err != nil {
		return nil, err
	}
	if !c.latest(seq) {
		return nil, ErrSuperseded
	}
	return contacts, nil
}
