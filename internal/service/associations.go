package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"line_supervisor/internal/codes"
	"line_supervisor/internal/models"
	"line_supervisor/internal/station"
)

var errAlreadyAssociated = errors.New("pallet already associated")

// associationTable holds pallet to product links for the current shift.
type associationTable struct {
	mu        sync.RWMutex
	byPallet  map[string]models.Association
	byProduct map[string]string
}

func newAssociationTable() *associationTable {
	return &associationTable{
		byPallet:  make(map[string]models.Association),
		byProduct: make(map[string]string),
	}
}

func (t *associationTable) add(a models.Association) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.byPallet[a.PalletCode]; ok {
		return errAlreadyAssociated
	}
	if pallet, ok := t.byProduct[a.ProductCode]; ok {
		return fmt.Errorf("product already on %s: %w", pallet, errAlreadyAssociated)
	}
	t.byPallet[a.PalletCode] = a
	t.byProduct[a.ProductCode] = a.PalletCode
	return nil
}

func (t *associationTable) productOf(pallet string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	a, ok := t.byPallet[pallet]
	return a.ProductCode, ok
}

// releaseProduct frees the pallet carrying product. It reports whether a link existed.
func (t *associationTable) releaseProduct(product string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	pallet, ok := t.byProduct[product]
	if !ok {
		return false
	}
	delete(t.byProduct, product)
	delete(t.byPallet, pallet)
	return true
}

func (t *associationTable) list() []models.Association {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.Association, 0, len(t.byPallet))
	for _, a := range t.byPallet {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out
}

func (t *associationTable) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byPallet = make(map[string]models.Association)
	t.byProduct = make(map[string]string)
}

// Associate links a pallet to a product. The first station adopts both codes.
func (s *Supervisor) Associate(ctx context.Context, p AssociationParams) (models.Association, error) {
	pallet := codes.NormalizePallet(p.PalletCode)
	product := codes.NormalizeProduct(p.ProductCode)

	if s.line.Status() == models.LineOff {
		return models.Association{}, s.done("associate", validationError("production not started"))
	}
	if !codes.ValidProduct(product) {
		return models.Association{}, s.done("associate", validationError("invalid product code"))
	}
	if !codes.ValidPallet(pallet) {
		return models.Association{}, s.done("associate", validationError("invalid pallet code"))
	}

	a := models.Association{PalletCode: pallet, ProductCode: product, At: s.now().UTC()}
	if err := s.assoc.add(a); err != nil {
		return models.Association{}, s.done("associate", &Error{Code: CodeAlreadyAssociated, Message: "pallet already associated", Err: err})
	}

	first := models.StationID(0)
	if st, err := s.stations.Get(first); err == nil {
		if _, err := st.Apply(station.Event{Station: first, PalletCode: &pallet, ProductCode: &product}, s.stationEmitter(first)); err != nil {
			s.warn("association_apply_failed", "station", first.String(), "err", err)
		}
	}
	if err := s.equipment.PublishStationCommand(first, "associated", map[string]any{"pallet": pallet, "product": product}); err != nil {
		s.warn("association_publish_failed", "err", err)
	}
	s.record(ctx, "ASSOCIATE", fmt.Sprintf("%s linked to %s", pallet, product), map[string]any{"pallet": pallet, "product": product})
	return a, s.done("associate", nil)
}

func (s *Supervisor) ListAssociations() []models.Association { return s.assoc.list() }
