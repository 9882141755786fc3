// Package memory implements the books ports with an in-process store. It
// backs tests and the memory backend; nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"housetab/internal/books"
	"housetab/internal/core"
)

type Store struct {
	mu       sync.RWMutex
	expenses map[string]map[string]core.Expense      // household → id → record
	budgets  map[string]map[string]core.BudgetConfig // household → person → limits
	usedIDs  map[string]struct{}
}

func New() *Store {
	return &Store{
		expenses: make(map[string]map[string]core.Expense),
		budgets:  make(map[string]map[string]core.BudgetConfig),
		usedIDs:  make(map[string]struct{}),
	}
}

// Append stores a new record. Ids are single use: re-appending an id fails
// even after the original record was removed.
func (s *Store) Append(_ context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.usedIDs[e.ID]; taken {
		return books.ErrDuplicateID
	}
	s.usedIDs[e.ID] = struct{}{}
	household := s.expenses[e.Household]
	if household == nil {
		household = make(map[string]core.Expense)
		s.expenses[e.Household] = household
	}
	household[e.ID] = e
	return nil
}

func (s *Store) Get(_ context.Context, household, id string) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.expenses[household][id]
	if !ok {
		return core.Expense{}, books.ErrNotFound
	}
	return e, nil
}

// List returns the household's records with a date in [start, end), sorted
// by date then id.
func (s *Store) List(_ context.Context, household string, start, end core.Date) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Expense, 0)
	for _, e := range s.expenses[household] {
		if e.Date.Before(start) || !e.Date.Before(end) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) Update(_ context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[e.Household][e.ID]; !ok {
		return books.ErrNotFound
	}
	s.expenses[e.Household][e.ID] = e
	return nil
}

// Remove deletes a record. Its id stays burned.
func (s *Store) Remove(_ context.Context, household, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[household][id]; !ok {
		return books.ErrNotFound
	}
	delete(s.expenses[household], id)
	return nil
}

func (s *Store) Budgets(_ context.Context, household, person string) (core.BudgetConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(core.BudgetConfig)
	for category, limit := range s.budgets[household][person] {
		out[category] = limit
	}
	return out, nil
}

func (s *Store) SetBudget(_ context.Context, household string, line core.BudgetLine) error {
	if err := line.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	people := s.budgets[household]
	if people == nil {
		people = make(map[string]core.BudgetConfig)
		s.budgets[household] = people
	}
	limits := people[line.Person]
	if limits == nil {
		limits = make(core.BudgetConfig)
		people[line.Person] = limits
	}
	limits[line.Category] = line.Limit
	return nil
}

func (s *Store) ListBudgets(_ context.Context, household string) ([]core.BudgetLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.BudgetLine, 0)
	for person, limits := range s.budgets[household] {
		for category, limit := range limits {
			out = append(out, core.BudgetLine{Person: person, Category: category, Limit: limit})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Person != out[j].Person {
			return out[i].Person < out[j].Person
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

// Members collects everyone named by a record or a budget line.
func (s *Store) Members(_ context.Context, household string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]struct{}{}
	for _, e := range s.expenses[household] {
		seen[e.Payer] = struct{}{}
		if e.SplitWith != "" {
			seen[e.SplitWith] = struct{}{}
		}
	}
	for person := range s.budgets[household] {
		seen[person] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for person := range seen {
		out = append(out, person)
	}
	sort.Strings(out)
	return out, nil
}

var _ books.Store = (*Store)(nil)
