package importer

import (
	"context"
	"errors"
	"fmt"

	syncapp "github.com/portal/backend/internal/application/sync"
	"github.com/portal/backend/internal/domain/catalog"
	"github.com/portal/backend/internal/domain/shared"
	"github.com/portal/backend/internal/domain/sync"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductRecord is one product row parsed from the exchange catalog file
type ProductRecord struct {
	OnecID    string
	OnecGUID  string
	Article   string
	Name      string
	ImagePath string
}

// OfferRecord is one offer row carrying stock and price figures keyed by the
// product's 1C identifier
type OfferRecord struct {
	OnecID         string
	Quantity       int
	RetailPrice    decimal.Decimal
	WholesalePrice decimal.Decimal
	HasStock       bool
	HasPrices      bool
}

// ExchangeReader parses staged exchange files into typed records. The staging
// directory layout is the reader's concern; runners only see records.
type ExchangeReader interface {
	ReadProducts(dir string) ([]ProductRecord, error)
	ReadOffers(dir string) ([]OfferRecord, error)
	ReadCustomers(dir string) ([]sync.CustomerPayload, error)
}

// NewRunnerRegistry wires every import type to its runner. Variants and
// attributes ride the catalog runner: the exchange format delivers them
// inside the same catalog file.
func NewRunnerRegistry(
	catalogRunner *CatalogRunner,
	stocksRunner *StocksRunner,
	pricesRunner *PricesRunner,
	imagesRunner *ImagesRunner,
	customersRunner *CustomersRunner,
) RunnerRegistry {
	return RunnerRegistry{
		sync.ImportTypeCatalog:    catalogRunner,
		sync.ImportTypeVariants:   catalogRunner,
		sync.ImportTypeAttributes: catalogRunner,
		sync.ImportTypeStocks:     stocksRunner,
		sync.ImportTypePrices:     pricesRunner,
		sync.ImportTypeImages:     imagesRunner,
		sync.ImportTypeCustomers:  customersRunner,
	}
}

// CatalogRunner creates and updates products from the exchange catalog file.
// The whole batch is written in one transaction.
type CatalogRunner struct {
	reader   ExchangeReader
	products catalog.ProductRepository
	tx       syncapp.TxRunner
	logger   *zap.Logger
}

// NewCatalogRunner creates a new CatalogRunner
func NewCatalogRunner(reader ExchangeReader, products catalog.ProductRepository, tx syncapp.TxRunner, logger *zap.Logger) *CatalogRunner {
	return &CatalogRunner{reader: reader, products: products, tx: tx, logger: logger}
}

func (r *CatalogRunner) Run(ctx context.Context, session *sync.ImportSession, dir string) (sync.ReportDetails, error) {
	records, err := r.reader.ReadProducts(dir)
	if err != nil {
		return sync.ReportDetails{}, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var details sync.ReportDetails
	err = r.tx.InTx(ctx, func(txCtx context.Context) error {
		batch := make([]*catalog.Product, 0, len(records))
		for _, rec := range records {
			if rec.OnecID == "" || rec.Name == "" {
				details.Skipped++
				session.AppendReport(fmt.Sprintf("skipped product without id or name (article %q)", rec.Article))
				continue
			}
			existing, err := r.products.FindByOnecID(txCtx, rec.OnecID)
			switch {
			case err == nil:
				existing.Name = rec.Name
				existing.Article = rec.Article
				existing.OnecGUID = rec.OnecGUID
				if rec.ImagePath != "" {
					existing.SetImage(rec.ImagePath)
				}
				existing.Touch()
				batch = append(batch, existing)
				details.Updated++
			case errors.Is(err, shared.ErrNotFound):
				product, err := catalog.NewProduct(rec.OnecID, rec.Name)
				if err != nil {
					details.Skipped++
					session.AppendReport(fmt.Sprintf("invalid product %s skipped: %v", rec.OnecID, err))
					continue
				}
				product.OnecGUID = rec.OnecGUID
				product.Article = rec.Article
				if rec.ImagePath != "" {
					product.SetImage(rec.ImagePath)
				}
				batch = append(batch, product)
				details.Created++
			default:
				return fmt.Errorf("failed to look up product %s: %w", rec.OnecID, err)
			}
		}
		if len(batch) == 0 {
			return nil
		}
		return r.products.SaveBatch(txCtx, batch)
	})
	if err != nil {
		return details, err
	}

	details.Total = len(records)
	return details, nil
}

// StocksRunner applies offer quantities to existing products. Offers for
// unknown products are counted as skipped, never created.
type StocksRunner struct {
	reader   ExchangeReader
	products catalog.ProductRepository
	tx       syncapp.TxRunner
	logger   *zap.Logger
}

// NewStocksRunner creates a new StocksRunner
func NewStocksRunner(reader ExchangeReader, products catalog.ProductRepository, tx syncapp.TxRunner, logger *zap.Logger) *StocksRunner {
	return &StocksRunner{reader: reader, products: products, tx: tx, logger: logger}
}

func (r *StocksRunner) Run(ctx context.Context, session *sync.ImportSession, dir string) (sync.ReportDetails, error) {
	offers, err := r.reader.ReadOffers(dir)
	if err != nil {
		return sync.ReportDetails{}, fmt.Errorf("failed to read offers file: %w", err)
	}

	var details sync.ReportDetails
	err = r.tx.InTx(ctx, func(txCtx context.Context) error {
		for _, offer := range offers {
			if !offer.HasStock {
				details.Skipped++
				continue
			}
			product, err := r.products.FindByOnecID(txCtx, offer.OnecID)
			if errors.Is(err, shared.ErrNotFound) {
				details.Skipped++
				session.AppendReport(fmt.Sprintf("stock offer for unknown product %s skipped", offer.OnecID))
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to look up product %s: %w", offer.OnecID, err)
			}
			product.SetStock(offer.Quantity)
			if err := r.products.Save(txCtx, product); err != nil {
				return fmt.Errorf("failed to save stock for %s: %w", offer.OnecID, err)
			}
			details.Updated++
		}
		return nil
	})
	if err != nil {
		return details, err
	}

	details.Total = len(offers)
	return details, nil
}

// PricesRunner applies offer prices to existing products
type PricesRunner struct {
	reader   ExchangeReader
	products catalog.ProductRepository
	tx       syncapp.TxRunner
	logger   *zap.Logger
}

// NewPricesRunner creates a new PricesRunner
func NewPricesRunner(reader ExchangeReader, products catalog.ProductRepository, tx syncapp.TxRunner, logger *zap.Logger) *PricesRunner {
	return &PricesRunner{reader: reader, products: products, tx: tx, logger: logger}
}

func (r *PricesRunner) Run(ctx context.Context, session *sync.ImportSession, dir string) (sync.ReportDetails, error) {
	offers, err := r.reader.ReadOffers(dir)
	if err != nil {
		return sync.ReportDetails{}, fmt.Errorf("failed to read offers file: %w", err)
	}

	var details sync.ReportDetails
	err = r.tx.InTx(ctx, func(txCtx context.Context) error {
		for _, offer := range offers {
			if !offer.HasPrices {
				details.Skipped++
				continue
			}
			product, err := r.products.FindByOnecID(txCtx, offer.OnecID)
			if errors.Is(err, shared.ErrNotFound) {
				details.Skipped++
				session.AppendReport(fmt.Sprintf("price offer for unknown product %s skipped", offer.OnecID))
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to look up product %s: %w", offer.OnecID, err)
			}
			product.SetPrices(offer.RetailPrice, offer.WholesalePrice)
			if err := r.products.Save(txCtx, product); err != nil {
				return fmt.Errorf("failed to save prices for %s: %w", offer.OnecID, err)
			}
			details.Updated++
		}
		return nil
	})
	if err != nil {
		return details, err
	}

	details.Total = len(offers)
	return details, nil
}

// ImagesRunner attaches staged image paths to existing products
type ImagesRunner struct {
	reader   ExchangeReader
	products catalog.ProductRepository
	logger   *zap.Logger
}

// NewImagesRunner creates a new ImagesRunner
func NewImagesRunner(reader ExchangeReader, products catalog.ProductRepository, logger *zap.Logger) *ImagesRunner {
	return &ImagesRunner{reader: reader, products: products, logger: logger}
}

func (r *ImagesRunner) Run(ctx context.Context, session *sync.ImportSession, dir string) (sync.ReportDetails, error) {
	records, err := r.reader.ReadProducts(dir)
	if err != nil {
		return sync.ReportDetails{}, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var details sync.ReportDetails
	for _, rec := range records {
		if rec.ImagePath == "" {
			details.Skipped++
			continue
		}
		product, err := r.products.FindByOnecID(ctx, rec.OnecID)
		if errors.Is(err, shared.ErrNotFound) {
			details.Skipped++
			session.AppendReport(fmt.Sprintf("image for unknown product %s skipped", rec.OnecID))
			continue
		}
		if err != nil {
			return details, fmt.Errorf("failed to look up product %s: %w", rec.OnecID, err)
		}
		product.SetImage(rec.ImagePath)
		if err := r.products.Save(ctx, product); err != nil {
			return details, fmt.Errorf("failed to save image for %s: %w", rec.OnecID, err)
		}
		details.Updated++
	}

	details.Total = len(records)
	return details, nil
}

// CustomersRunner feeds parsed customer payloads through the customer sync
// pipeline, which handles identification and conflict resolution per record
type CustomersRunner struct {
	reader ExchangeReader
	sync   *syncapp.CustomerSyncService
	logger *zap.Logger
}

// NewCustomersRunner creates a new CustomersRunner
func NewCustomersRunner(reader ExchangeReader, syncService *syncapp.CustomerSyncService, logger *zap.Logger) *CustomersRunner {
	return &CustomersRunner{reader: reader, sync: syncService, logger: logger}
}

func (r *CustomersRunner) Run(ctx context.Context, session *sync.ImportSession, dir string) (sync.ReportDetails, error) {
	payloads, err := r.reader.ReadCustomers(dir)
	if err != nil {
		return sync.ReportDetails{}, fmt.Errorf("failed to read customers file: %w", err)
	}

	correlationID := syncapp.NewCorrelationID()
	session.AppendReport(fmt.Sprintf("customer batch correlation %s", correlationID))
	return r.sync.ProcessBatch(ctx, payloads, correlationID, false)
}
