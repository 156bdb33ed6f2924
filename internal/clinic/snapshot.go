// Package clinic holds the clinic-wide directory: a read-only snapshot of
// branches and services loaded once from the remote API and refreshed on demand.
package clinic

import (
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/clinic-booking/internal/catalog"
)

// Snapshot is an immutable view of the catalog. Callers must not mutate it.
type Snapshot struct {
	Branches []catalog.Branch  `json:"branches"`
	Services []catalog.Service `json:"services"`
	LoadedAt time.Time         `json:"loaded_at"`
}

// Branch finds a branch by slug, or by numeric id when ref parses as one.
func (s *Snapshot) Branch(ref string) (catalog.Branch, error) {
	ref = strings.TrimSpace(ref)
	if s == nil || ref == "" {
		return catalog.Branch{}, ErrBranchNotFound
	}
	id, idErr := strconv.ParseInt(ref, 10, 64)
	for _, b := range s.Branches {
		if strings.EqualFold(b.Slug, ref) || (idErr == nil && b.ID == id) {
			return b, nil
		}
	}
	return catalog.Branch{}, ErrBranchNotFound
}

// BranchByID finds a branch by id.
func (s *Snapshot) BranchByID(id int64) (catalog.Branch, error) {
	if s != nil {
		for _, b := range s.Branches {
			if b.ID == id {
				return b, nil
			}
		}
	}
	return catalog.Branch{}, ErrBranchNotFound
}

// ServiceByID finds a service by id.
func (s *Snapshot) ServiceByID(id int64) (catalog.Service, bool) {
	if s != nil {
		for _, svc := range s.Services {
			if svc.ID == id {
				return svc, true
			}
		}
	}
	return catalog.Service{}, false
}

// FilterServices filters services by category (case-insensitive) and branch.
func (s *Snapshot) FilterServices(filter catalog.ServiceFilter) []catalog.Service {
	if s == nil {
		return nil
	}
	category := strings.TrimSpace(filter.Category)
	out := make([]catalog.Service, 0, len(s.Services))
	for _, svc := range s.Services {
		if category != "" && !strings.EqualFold(svc.Category, category) {
			continue
		}
		if filter.BranchID > 0 && !svc.OfferedAt(filter.BranchID) {
			continue
		}
		out = append(out, svc)
	}
	return out
}

// Categories returns the distinct service categories in first-seen order.
func (s *Snapshot) Categories() []string {
	if s == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, svc := range s.Services {
		c := strings.TrimSpace(svc.Category)
		if c == "" {
			continue
		}
		key := strings.ToLower(c)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
