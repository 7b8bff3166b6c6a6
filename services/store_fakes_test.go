package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fenilmodi00/ipo-subscription-backend/database"
	"github.com/fenilmodi00/ipo-subscription-backend/models"
	"github.com/fenilmodi00/ipo-subscription-backend/shared"
	"github.com/google/uuid"
)

// memoryDB is an in-memory stand-in for the Postgres schema. Transactions
// are serialized and roll back to a snapshot on error. Methods that take a
// Querier must run inside WithTransaction.
type memoryDB struct {
	mu    sync.Mutex
	clock time.Time

	ipos map[uuid.UUID]models.IPO
	apps map[uuid.UUID]models.Application
	txns map[uuid.UUID]models.Transaction
	logs []models.ApplicationStatusLog

	// skipExistsCheck makes ExistsForUserAndIPO always report false so the
	// unique constraint is the only duplicate guard.
	skipExistsCheck bool
	// failTransactionCreate fails every ledger insert when set.
	failTransactionCreate error
}

func newMemoryDB() *memoryDB {
	return &memoryDB{
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ipos:  make(map[uuid.UUID]models.IPO),
		apps:  make(map[uuid.UUID]models.Application),
		txns:  make(map[uuid.UUID]models.Transaction),
	}
}

func (db *memoryDB) tick() time.Time {
	db.clock = db.clock.Add(time.Millisecond)
	return db.clock
}

func (db *memoryDB) WithTransaction(ctx context.Context, fn func(q database.Querier) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	ipos := cloneMap(db.ipos)
	apps := cloneMap(db.apps)
	txns := cloneMap(db.txns)
	logs := append([]models.ApplicationStatusLog(nil), db.logs...)

	if err := fn(nil); err != nil {
		db.ipos, db.apps, db.txns, db.logs = ipos, apps, txns, logs
		return err
	}
	return nil
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func paginate[T any](items []T, page models.PageRequest) []T {
	start := page.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + page.Normalized().Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func fakeNotFound() error { return shared.NewNotFoundError("record not found") }

// memoryIPOStore implements IPOStore.
type memoryIPOStore struct{ db *memoryDB }

func (s memoryIPOStore) GetByID(_ context.Context, id uuid.UUID) (*models.IPO, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	ipo, ok := s.db.ipos[id]
	if !ok {
		return nil, fakeNotFound()
	}
	return &ipo, nil
}

func (s memoryIPOStore) GetBySymbol(_ context.Context, symbol string) (*models.IPO, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, ipo := range s.db.ipos {
		if ipo.Symbol == symbol {
			found := ipo
			return &found, nil
		}
	}
	return nil, fakeNotFound()
}

func (s memoryIPOStore) sorted(keep func(models.IPO) bool, asc bool) []models.IPO {
	var out []models.IPO
	for _, ipo := range s.db.ipos {
		if keep(ipo) {
			out = append(out, ipo)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if asc {
			return out[i].OpenDate.Before(out[j].OpenDate)
		}
		return out[i].OpenDate.After(out[j].OpenDate)
	})
	return out
}

func (s memoryIPOStore) List(_ context.Context, filter models.IPOFilter) ([]models.IPO, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	search := strings.ToLower(filter.Search)
	all := s.sorted(func(ipo models.IPO) bool {
		if filter.Status != "" && ipo.Status != filter.Status {
			return false
		}
		return search == "" ||
			strings.Contains(strings.ToLower(ipo.CompanyName), search) ||
			strings.Contains(strings.ToLower(ipo.Symbol), search)
	}, false)
	return paginate(all, filter.PageRequest), len(all), nil
}

func (s memoryIPOStore) ListActive(_ context.Context, now time.Time) ([]models.IPO, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.sorted(func(ipo models.IPO) bool {
		return ipo.Status == models.IPOStatusActive && !ipo.OpenDate.After(now) && !ipo.CloseDate.Before(now)
	}, false), nil
}

func (s memoryIPOStore) ListUpcoming(_ context.Context, now time.Time) ([]models.IPO, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.sorted(func(ipo models.IPO) bool {
		return ipo.Status == models.IPOStatusUpcoming && ipo.OpenDate.After(now)
	}, true), nil
}

func (s memoryIPOStore) Create(_ context.Context, ipo *models.IPO) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, existing := range s.db.ipos {
		if existing.Symbol == ipo.Symbol {
			return shared.NewConflictError("An IPO with this symbol already exists", nil)
		}
	}
	if ipo.ID == uuid.Nil {
		ipo.ID = uuid.New()
	}
	ipo.CreatedAt = s.db.tick()
	ipo.UpdatedAt = ipo.CreatedAt
	s.db.ipos[ipo.ID] = *ipo
	return nil
}

func (s memoryIPOStore) Update(_ context.Context, ipo *models.IPO) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.ipos[ipo.ID]; !ok {
		return fakeNotFound()
	}
	ipo.UpdatedAt = s.db.tick()
	s.db.ipos[ipo.ID] = *ipo
	return nil
}

func (s memoryIPOStore) Delete(_ context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.ipos[id]; !ok {
		return fakeNotFound()
	}
	for _, app := range s.db.apps {
		if app.IPOID == id {
			return shared.NewInvalidStateError("record is referenced by other records")
		}
	}
	delete(s.db.ipos, id)
	return nil
}

func (s memoryIPOStore) UpsertBySymbol(_ context.Context, ipo *models.IPO) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for id, existing := range s.db.ipos {
		if existing.Symbol == ipo.Symbol {
			ipo.ID = id
			ipo.CreatedAt = existing.CreatedAt
			ipo.UpdatedAt = s.db.tick()
			s.db.ipos[id] = *ipo
			return false, nil
		}
	}
	ipo.ID = uuid.New()
	ipo.CreatedAt = s.db.tick()
	ipo.UpdatedAt = ipo.CreatedAt
	s.db.ipos[ipo.ID] = *ipo
	return true, nil
}

// memoryApplicationStore implements ApplicationStore.
type memoryApplicationStore struct{ db *memoryDB }

func (s memoryApplicationStore) WithTransaction(ctx context.Context, fn func(q database.Querier) error) error {
	return s.db.WithTransaction(ctx, fn)
}

func (s memoryApplicationStore) enrich(app models.Application) models.Application {
	if ipo, ok := s.db.ipos[app.IPOID]; ok {
		app.IPO = &models.IPOSummary{ID: ipo.ID, CompanyName: ipo.CompanyName, Symbol: ipo.Symbol, Status: ipo.Status}
	}
	return app
}

func (s memoryApplicationStore) GetByID(_ context.Context, id uuid.UUID) (*models.Application, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	app, ok := s.db.apps[id]
	if !ok {
		return nil, fakeNotFound()
	}
	app = s.enrich(app)
	return &app, nil
}

func (s memoryApplicationStore) GetForUpdate(_ context.Context, _ database.Querier, id uuid.UUID) (*models.Application, error) {
	app, ok := s.db.apps[id]
	if !ok {
		return nil, fakeNotFound()
	}
	return &app, nil
}

func (s memoryApplicationStore) ExistsForUserAndIPO(_ context.Context, _ database.Querier, userID string, ipoID uuid.UUID) (bool, error) {
	if s.db.skipExistsCheck {
		return false, nil
	}
	for _, app := range s.db.apps {
		if app.UserID == userID && app.IPOID == ipoID {
			return true, nil
		}
	}
	return false, nil
}

func (s memoryApplicationStore) Create(_ context.Context, _ database.Querier, app *models.Application) error {
	for _, existing := range s.db.apps {
		if existing.UserID == app.UserID && existing.IPOID == app.IPOID {
			return shared.NewConflictError(database.MessageDuplicateApplication, nil)
		}
		if existing.ApplicationNumber == app.ApplicationNumber {
			return shared.NewServiceError(shared.ErrorCategoryConflict, database.CodeIdentifierCollision,
				"generated identifier already in use", "database", "create_application", true, nil)
		}
	}
	app.ID = uuid.New()
	app.CreatedAt = s.db.tick()
	app.UpdatedAt = app.CreatedAt
	s.db.apps[app.ID] = *app
	return nil
}

func (s memoryApplicationStore) UpdateStatus(_ context.Context, _ database.Querier, id uuid.UUID, status models.ApplicationStatus, allottedQuantity int) (*models.Application, error) {
	app, ok := s.db.apps[id]
	if !ok {
		return nil, fakeNotFound()
	}
	app.Status = status
	app.AllottedQuantity = allottedQuantity
	app.UpdatedAt = s.db.tick()
	s.db.apps[id] = app
	app = s.enrich(app)
	return &app, nil
}

func (s memoryApplicationStore) List(_ context.Context, filter models.ApplicationFilter) ([]models.Application, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var all []models.Application
	for _, app := range s.db.apps {
		if filter.UserID != "" && app.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && app.Status != filter.Status {
			continue
		}
		all = append(all, s.enrich(app))
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID.String() > all[j].ID.String()
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return paginate(all, filter.PageRequest), len(all), nil
}

func (s memoryApplicationStore) InsertStatusLog(_ context.Context, _ database.Querier, entry *models.ApplicationStatusLog) error {
	entry.ID = uuid.New()
	entry.Timestamp = s.db.tick()
	s.db.logs = append(s.db.logs, *entry)
	return nil
}

func (s memoryApplicationStore) StatusHistory(_ context.Context, applicationID uuid.UUID) ([]models.ApplicationStatusLog, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.ApplicationStatusLog
	for _, entry := range s.db.logs {
		if entry.ApplicationID == applicationID {
			out = append(out, entry)
		}
	}
	return out, nil
}

// memoryTransactionStore implements TransactionStore.
type memoryTransactionStore struct{ db *memoryDB }

func (s memoryTransactionStore) Create(_ context.Context, _ database.Querier, txn *models.Transaction) error {
	if s.db.failTransactionCreate != nil {
		return s.db.failTransactionCreate
	}
	for _, existing := range s.db.txns {
		if existing.TransactionID == txn.TransactionID {
			return shared.NewServiceError(shared.ErrorCategoryConflict, database.CodeIdentifierCollision,
				"generated identifier already in use", "database", "create_transaction", true, nil)
		}
	}
	txn.ID = uuid.New()
	txn.CreatedAt = s.db.tick()
	txn.UpdatedAt = txn.CreatedAt
	s.db.txns[txn.ID] = *txn
	return nil
}

func (s memoryTransactionStore) GetByID(_ context.Context, id uuid.UUID) (*models.Transaction, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	txn, ok := s.db.txns[id]
	if !ok {
		return nil, fakeNotFound()
	}
	return &txn, nil
}

func (s memoryTransactionStore) List(_ context.Context, filter models.TransactionFilter) ([]models.Transaction, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var all []models.Transaction
	for _, txn := range s.db.txns {
		if filter.UserID != "" && txn.UserID != filter.UserID {
			continue
		}
		if filter.Type != "" && txn.Type != filter.Type {
			continue
		}
		if filter.Status != "" && txn.Status != filter.Status {
			continue
		}
		all = append(all, txn)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID.String() > all[j].ID.String()
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return paginate(all, filter.PageRequest), len(all), nil
}

// transactionsFor returns every ledger entry of an application, oldest first.
func (db *memoryDB) transactionsFor(appID uuid.UUID) []models.Transaction {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.Transaction
	for _, txn := range db.txns {
		if txn.ApplicationID != nil && *txn.ApplicationID == appID {
			out = append(out, txn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// scriptedIDs hands out queued identifiers before falling back to UUIDv7.
type scriptedIDs struct {
	mu    sync.Mutex
	queue []string
}

func (g *scriptedIDs) Generate(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.queue) > 0 {
		id := g.queue[0]
		g.queue = g.queue[1:]
		return id
	}
	return TimeOrderedIdentifierGenerator{}.Generate(prefix)
}

// testWorkflow wires the registry, ledger and workflow over one memoryDB.
type testWorkflow struct {
	db           *memoryDB
	ipos         *IPOService
	ledger       *LedgerService
	applications *ApplicationService
}

func newTestWorkflow(appIDs IdentifierGenerator) *testWorkflow {
	db := newMemoryDB()
	ipos := NewIPOService(memoryIPOStore{db: db}, nil)
	ledger := NewLedgerService(memoryTransactionStore{db: db}, nil, nil)
	return &testWorkflow{
		db:           db,
		ipos:         ipos,
		ledger:       ledger,
		applications: NewApplicationService(memoryApplicationStore{db: db}, ipos, ledger, appIDs, nil),
	}
}
