package sales

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"salestrack-backend/internal/audit"
	"salestrack-backend/internal/auth"
	"salestrack-backend/internal/config"
	"salestrack-backend/internal/models"
	"salestrack-backend/internal/spreadsheet"
	"salestrack-backend/internal/stock"
	"salestrack-backend/internal/store"
)

const (
	importLockKey = "salestrack:lock:sales-import"
	importLockTTL = 2 * time.Minute
)

// ErrImportInProgress is returned when another import holds the lock.
var ErrImportInProgress = errors.New("another sales import is running")

// Locker is the part of *redislock.Client the import needs.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error)
}

// SaleInput is one sale to append. A nil Total means quantity * price.
type SaleInput struct {
	Product  string
	Category string
	Date     time.Time
	Quantity int
	Price    decimal.Decimal
	Total    *decimal.Decimal
}

// Filter narrows the ledger. From and To are inclusive calendar days.
type Filter struct {
	From     *time.Time
	To       *time.Time
	Product  string
	Category string
	Search   string
	Desc     bool
}

type ImportResult struct {
	Batch   string             `json:"batch"`
	Summary stock.SalesSummary `json:"summary"`
}

type Service struct {
	sales  store.SaleRepository
	audit  *audit.Service
	locker Locker
	cal    stock.Calendar
	logger *logrus.Logger

	// OnLedgerChanged runs after sales were appended, to refresh the stored
	// stock figures of the products. Its failure does not undo the write.
	OnLedgerChanged func(ctx context.Context) error
}

// NewService wires the ledger use cases. auditSvc and locker may be nil;
// without a locker imports are not serialized across instances.
func NewService(sales store.SaleRepository, auditSvc *audit.Service, locker Locker, cal stock.Calendar) *Service {
	return &Service{
		sales:  sales,
		audit:  auditSvc,
		locker: locker,
		cal:    cal,
		logger: config.GetLogger(),
	}
}

func (s *Service) Calendar() stock.Calendar {
	return s.cal
}

// List returns the filtered ledger oldest first, or newest first with f.Desc.
func (s *Service) List(ctx context.Context, f Filter) ([]models.Sale, error) {
	var (
		ledger []models.Sale
		err    error
	)
	if f.From != nil || f.To != nil {
		from := time.Date(1000, 1, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
		if f.From != nil {
			from = s.cal.StartOfDay(*f.From)
		}
		if f.To != nil {
			to = s.cal.EndOfDay(*f.To)
		}
		ledger, err = s.sales.ListRange(ctx, from, to)
	} else {
		ledger, err = s.sales.List(ctx)
	}
	if err != nil {
		return nil, err
	}

	product := stock.Normalize(f.Product)
	category := stock.Normalize(f.Category)
	search := stock.Normalize(f.Search)

	out := make([]models.Sale, 0, len(ledger))
	for _, sale := range ledger {
		key := stock.SaleKey(sale)
		if product != "" && key.Name != product {
			continue
		}
		if category != "" && key.Category != category {
			continue
		}
		if search != "" && !strings.Contains(key.Name, search) && !strings.Contains(key.Category, search) {
			continue
		}
		out = append(out, sale)
	}

	if f.Desc {
		sort.SliceStable(out, func(i, j int) bool {
			if !out[i].Date.Equal(out[j].Date) {
				return out[i].Date.After(out[j].Date)
			}
			return out[i].ID > out[j].ID
		})
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, actor auth.User, in SaleInput) (models.Sale, error) {
	sale := in.sale()
	if err := s.sales.Create(ctx, &sale); err != nil {
		return models.Sale{}, err
	}

	s.writeAudit(ctx, actor, strconv.FormatUint(uint64(sale.ID), 10), models.AuditActionCreate,
		fmt.Sprintf("Sale of %d x %s recorded", sale.Quantity, sale.Product), sale)
	s.ledgerChanged(ctx)
	return sale, nil
}

// Import appends every sale of an xlsx file under one batch id, or none.
func (s *Service) Import(ctx context.Context, actor auth.User, r io.Reader) (ImportResult, error) {
	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, importLockKey, importLockTTL, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			return ImportResult{}, ErrImportInProgress
		} else if err != nil {
			return ImportResult{}, fmt.Errorf("could not obtain import lock: %w", err)
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				config.LogError(s.logger, "sales", "Import", "release lock", importLockKey, err)
			}
		}()
	}

	parsed, err := spreadsheet.ReadSales(r, s.cal)
	if err != nil {
		return ImportResult{}, err
	}

	batch := uuid.NewString()
	for i := range parsed {
		parsed[i].ImportBatch = batch
	}
	if err := s.sales.CreateBatch(ctx, parsed); err != nil {
		return ImportResult{}, err
	}

	res := ImportResult{Batch: batch, Summary: stock.SummarizeSales(parsed)}
	s.writeAudit(ctx, actor, batch, models.AuditActionImport,
		fmt.Sprintf("%d sales imported", res.Summary.Count), res)
	s.logger.WithFields(logrus.Fields{
		"batch":    batch,
		"count":    res.Summary.Count,
		"quantity": res.Summary.Quantity,
		"user_id":  actor.ID,
	}).Info("sales imported")

	s.ledgerChanged(ctx)
	return res, nil
}

func (s *Service) ledgerChanged(ctx context.Context) {
	if s.OnLedgerChanged == nil {
		return
	}
	if err := s.OnLedgerChanged(ctx); err != nil {
		config.LogError(s.logger, "sales", "ledgerChanged", "refresh stock figures", nil, err)
	}
}

func (s *Service) writeAudit(ctx context.Context, actor auth.User, id string, action models.AuditAction, desc string, after any) {
	if s.audit == nil {
		return
	}
	err := s.audit.WriteLog(ctx, audit.LogOptions{
		UserID:      actor.ID,
		UserEmail:   actor.Email,
		EntityType:  models.EntitySale,
		EntityID:    id,
		Action:      action,
		Description: desc,
		After:       after,
	})
	if err != nil {
		config.LogError(s.logger, "sales", "writeAudit", "audit", id, err)
	}
}

func (in SaleInput) sale() models.Sale {
	total := in.Price.Mul(decimal.NewFromInt(int64(in.Quantity)))
	if in.Total != nil {
		total = *in.Total
	}
	return models.Sale{
		Product:  strings.TrimSpace(in.Product),
		Category: strings.TrimSpace(in.Category),
		Date:     in.Date,
		Quantity: in.Quantity,
		Price:    in.Price.Round(2),
		Total:    total.Round(2),
	}
}
