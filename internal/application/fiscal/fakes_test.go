package fiscal_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-fiscal-api/internal/domain"
	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/repository"
	"github.com/jhoicas/farmacia-fiscal-api/internal/infrastructure/bridge"
	"github.com/jhoicas/farmacia-fiscal-api/internal/infrastructure/nfe"
)

// ── memStore: base en memoria con las mismas reglas que postgres ──────────────

type storedDoc struct {
	seq int
	doc entity.FiscalDocument
}

type memStore struct {
	mu              sync.Mutex
	seq             int
	settings        map[string]*entity.FiscalSettings
	docs            []*storedDoc
	logs            []*entity.InvoiceLog
	orders          map[string]*entity.Order
	failNextCreates int
}

func newMemStore() *memStore {
	return &memStore{
		settings: map[string]*entity.FiscalSettings{},
		orders:   map[string]*entity.Order{},
	}
}

// RunFiscal cumple fiscal.TxRunner.
func (s *memStore) RunFiscal(ctx context.Context, fn func(
	docs repository.FiscalDocumentRepository,
	logs repository.InvoiceLogRepository,
) error) error {
	return fn(docRepo{s}, logRepo{s})
}

func (s *memStore) allDocs() []entity.FiscalDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.FiscalDocument, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d.doc)
	}
	return out
}

func (s *memStore) logsFor(id string) []*entity.InvoiceLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.InvoiceLog
	for _, l := range s.logs {
		if l.InvoiceID == id {
			out = append(out, l)
		}
	}
	return out
}

func (s *memStore) putDoc(d entity.FiscalDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.docs = append(s.docs, &storedDoc{seq: s.seq, doc: d})
}

// ── repos ─────────────────────────────────────────────────────────────────────

type settingsRepo struct{ s *memStore }

func (r settingsRepo) GetByStore(_ context.Context, storeID string) (*entity.FiscalSettings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if v, ok := r.s.settings[storeID]; ok {
		c := *v
		return &c, nil
	}
	return nil, nil
}

func (r settingsRepo) Upsert(_ context.Context, v *entity.FiscalSettings) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if cur, ok := r.s.settings[v.StoreID]; ok {
		v.ID = cur.ID
	}
	c := *v
	r.s.settings[v.StoreID] = &c
	return nil
}

type docRepo struct{ s *memStore }

func (r docRepo) Create(_ context.Context, d *entity.FiscalDocument) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failNextCreates > 0 {
		r.s.failNextCreates--
		return errors.New("insert invoice: conexión cerrada")
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	r.s.seq++
	r.s.docs = append(r.s.docs, &storedDoc{seq: r.s.seq, doc: *d})
	return nil
}

func (r docRepo) Update(_ context.Context, d *entity.FiscalDocument) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sd := range r.s.docs {
		if sd.doc.ID != d.ID {
			continue
		}
		if !entity.CanTransition(sd.doc.Status, d.Status) {
			return fmt.Errorf("%w: %s → %s", domain.ErrInvalidTransition, sd.doc.Status, d.Status)
		}
		created := sd.doc.CreatedAt
		sd.doc = *d
		sd.doc.CreatedAt = created
		return nil
	}
	return domain.ErrNotFound
}

func (r docRepo) GetByID(_ context.Context, id string) (*entity.FiscalDocument, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sd := range r.s.docs {
		if sd.doc.ID == id {
			c := sd.doc
			return &c, nil
		}
	}
	return nil, nil
}

func (r docRepo) ListByOrder(_ context.Context, storeID, orderID string) ([]*entity.FiscalDocument, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var matched []*storedDoc
	for _, sd := range r.s.docs {
		if sd.doc.StoreID == storeID && sd.doc.OrderID == orderID {
			matched = append(matched, sd)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].doc.CreatedAt.Equal(matched[j].doc.CreatedAt) {
			return matched[i].doc.CreatedAt.After(matched[j].doc.CreatedAt)
		}
		return matched[i].seq > matched[j].seq
	})
	out := make([]*entity.FiscalDocument, 0, len(matched))
	for _, sd := range matched {
		c := sd.doc
		out = append(out, &c)
	}
	return out, nil
}

type logRepo struct{ s *memStore }

func (r logRepo) Append(_ context.Context, l *entity.InvoiceLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	c := *l
	r.s.logs = append(r.s.logs, &c)
	return nil
}

func (r logRepo) ListByInvoice(_ context.Context, id string) ([]*entity.InvoiceLog, error) {
	return r.s.logsFor(id), nil
}

type orderRepo struct{ s *memStore }

func (r orderRepo) GetByID(_ context.Context, id string) (*entity.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if o, ok := r.s.orders[id]; ok {
		return o, nil
	}
	return nil, nil
}

// ── fakes de infraestructura ─────────────────────────────────────────────────

type fakeSender struct {
	mu    sync.Mutex
	calls []bridge.SaleRequest
	fn    func(ctx context.Context, endpoint string, req bridge.SaleRequest) (*bridge.SaleResponse, error)
}

func (f *fakeSender) Send(ctx context.Context, endpoint string, req bridge.SaleRequest) (*bridge.SaleResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.fn == nil {
		return nil, errors.New("bridge no configurado en el test")
	}
	return f.fn(ctx, endpoint, req)
}

type fakeIssuer struct {
	calls []nfe.InvoicePayload
	fn    func(ctx context.Context, p nfe.InvoicePayload) (*nfe.IssueResult, error)
}

func (f *fakeIssuer) Issue(ctx context.Context, p nfe.InvoicePayload) (*nfe.IssueResult, error) {
	f.calls = append(f.calls, p)
	return f.fn(ctx, p)
}

// fakeRemote API de NF-e completa: emite con el fakeIssuer y responde estado y cancelación.
type fakeRemote struct {
	fakeIssuer
	statusFn func(id string) (*nfe.IssueResult, error)
	cancels  []string
}

func (f *fakeRemote) Status(_ context.Context, id string) (*nfe.IssueResult, error) {
	return f.statusFn(id)
}

func (f *fakeRemote) Cancel(_ context.Context, id, reason string) (*nfe.IssueResult, error) {
	f.cancels = append(f.cancels, id+":"+reason)
	return &nfe.IssueResult{ID: id, Status: "cancelada"}, nil
}

type fakeLocker struct {
	mu       sync.Mutex
	err      error
	locks    int
	releases int
}

func (f *fakeLocker) Lock(context.Context, string, string) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.locks++
	return func() {
		f.mu.Lock()
		f.releases++
		f.mu.Unlock()
	}, nil
}

type fakeRenderer struct {
	got *entity.PrintableContent
}

func (f *fakeRenderer) RenderCoupon(_ context.Context, c *entity.PrintableContent) ([]byte, error) {
	f.got = c
	return []byte("%PDF-fake"), nil
}

// ── fixtures ──────────────────────────────────────────────────────────────────

const (
	storeID = "store-1"
	orderID = "ord-1"
)

func sampleOrder() *entity.Order {
	return &entity.Order{
		ID:      orderID,
		StoreID: storeID,
		Items: []entity.OrderItem{
			{ProductID: "p1", Name: "Dipirona 500mg", Quantity: 2, PriceAtPurchase: decimal.RequireFromString("12.50"), NCM: "30049099", CFOP: "5102"},
			{ProductID: "p2", Name: "Protetor solar FPS 50", Quantity: 1, PriceAtPurchase: decimal.RequireFromString("45.90")},
		},
		TotalAmount:      decimal.RequireFromString("70.90"),
		PaymentMethod:    entity.PaymentMethodPix,
		CustomerID:       "cus-1",
		CustomerName:     "Maria Silva",
		CustomerDocument: "12345678909",
	}
}

func settingsFor(mode entity.FiscalMode) *entity.FiscalSettings {
	s := entity.NewDefaultFiscalSettings("set-1", storeID, fixedNow)
	s.Mode = mode
	s.StoreName = "Farmácia Central"
	s.CashierNumber = "003"
	return s
}
