package exchange

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/portal/backend/internal/application/importer"
	"github.com/portal/backend/internal/domain/sync"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CommerceML element names are Cyrillic; the structs below mirror the subset
// of the format 1C actually ships for this exchange.

type cmlDocument struct {
	XMLName        xml.Name          `xml:"КоммерческаяИнформация"`
	Catalog        *cmlCatalog       `xml:"Каталог"`
	OfferPackage   *cmlOfferPackage  `xml:"ПакетПредложений"`
	Counterparties []cmlCounterparty `xml:"Контрагенты>Контрагент"`
}

type cmlCatalog struct {
	Products []cmlProduct `xml:"Товары>Товар"`
}

type cmlProduct struct {
	ID      string `xml:"Ид"`
	Article string `xml:"Артикул"`
	Name    string `xml:"Наименование"`
	Image   string `xml:"Картинка"`
}

type cmlOfferPackage struct {
	PriceTypes []cmlPriceType `xml:"ТипыЦен>ТипЦены"`
	Offers     []cmlOffer     `xml:"Предложения>Предложение"`
}

type cmlPriceType struct {
	ID   string `xml:"Ид"`
	Name string `xml:"Наименование"`
}

type cmlOffer struct {
	ID       string     `xml:"Ид"`
	Quantity string     `xml:"Количество"`
	Prices   []cmlPrice `xml:"Цены>Цена"`
}

type cmlPrice struct {
	PriceTypeID string `xml:"ИдТипаЦены"`
	UnitPrice   string `xml:"ЦенаЗаЕдиницу"`
}

type cmlCounterparty struct {
	ID       string       `xml:"Ид"`
	Code     string       `xml:"Код"`
	Name     string       `xml:"Наименование"`
	FullName string       `xml:"ПолноеНаименование"`
	TaxID    string       `xml:"ИНН"`
	Contacts []cmlContact `xml:"Контакты>Контакт"`
}

type cmlContact struct {
	Type  string `xml:"Тип"`
	Value string `xml:"Значение"`
}

// FileReader parses staged CommerceML files into import records
type FileReader struct {
	logger *zap.Logger
}

// NewFileReader creates a new FileReader
func NewFileReader(logger *zap.Logger) *FileReader {
	return &FileReader{logger: logger}
}

// ReadProducts parses every import*.xml in dir into product records
func (r *FileReader) ReadProducts(dir string) ([]importer.ProductRecord, error) {
	docs, err := r.parseGlob(dir, "import*.xml")
	if err != nil {
		return nil, err
	}

	var records []importer.ProductRecord
	for _, doc := range docs {
		if doc.Catalog == nil {
			continue
		}
		for _, p := range doc.Catalog.Products {
			records = append(records, importer.ProductRecord{
				OnecID:    strings.TrimSpace(p.ID),
				OnecGUID:  strings.TrimSpace(p.ID),
				Article:   strings.TrimSpace(p.Article),
				Name:      strings.TrimSpace(p.Name),
				ImagePath: strings.TrimSpace(p.Image),
			})
		}
	}
	r.logger.Debug("Parsed product records", zap.Int("count", len(records)))
	return records, nil
}

// ReadOffers parses every offers*.xml in dir into offer records. Wholesale
// prices are recognized by the price type name; everything else counts as
// retail.
func (r *FileReader) ReadOffers(dir string) ([]importer.OfferRecord, error) {
	docs, err := r.parseGlob(dir, "offers*.xml")
	if err != nil {
		return nil, err
	}

	var records []importer.OfferRecord
	for _, doc := range docs {
		if doc.OfferPackage == nil {
			continue
		}
		wholesaleTypes := make(map[string]bool)
		for _, pt := range doc.OfferPackage.PriceTypes {
			if strings.Contains(strings.ToLower(pt.Name), "опт") {
				wholesaleTypes[pt.ID] = true
			}
		}
		for _, offer := range doc.OfferPackage.Offers {
			rec := importer.OfferRecord{OnecID: strings.TrimSpace(offer.ID)}
			if qty := strings.TrimSpace(offer.Quantity); qty != "" {
				parsed, err := strconv.ParseFloat(qty, 64)
				if err != nil {
					r.logger.Warn("Unparseable offer quantity",
						zap.String("onec_id", rec.OnecID),
						zap.String("quantity", qty),
					)
				} else {
					rec.Quantity = int(parsed)
					rec.HasStock = true
				}
			}
			for _, price := range offer.Prices {
				value, err := decimal.NewFromString(strings.TrimSpace(price.UnitPrice))
				if err != nil {
					r.logger.Warn("Unparseable offer price",
						zap.String("onec_id", rec.OnecID),
						zap.String("price", price.UnitPrice),
					)
					continue
				}
				if wholesaleTypes[price.PriceTypeID] {
					rec.WholesalePrice = value
				} else {
					rec.RetailPrice = value
				}
				rec.HasPrices = true
			}
			records = append(records, rec)
		}
	}
	r.logger.Debug("Parsed offer records", zap.Int("count", len(records)))
	return records, nil
}

// ReadCustomers parses every contragents*.xml in dir into customer payloads
func (r *FileReader) ReadCustomers(dir string) ([]sync.CustomerPayload, error) {
	docs, err := r.parseGlob(dir, "contragents*.xml")
	if err != nil {
		return nil, err
	}

	var payloads []sync.CustomerPayload
	for _, doc := range docs {
		for _, c := range doc.Counterparties {
			payload := sync.CustomerPayload{
				OnecID:   strings.TrimSpace(c.Code),
				OnecGUID: strings.TrimSpace(c.ID),
				TaxID:    strings.TrimSpace(c.TaxID),
				Company:  strings.TrimSpace(c.Name),
			}
			if payload.OnecID == "" {
				payload.OnecID = payload.OnecGUID
			}
			first, last := splitFullName(c.FullName)
			payload.FirstName = first
			payload.LastName = last
			for _, contact := range c.Contacts {
				switch strings.TrimSpace(contact.Type) {
				case "Почта", "ПочтаРабочая":
					if payload.Email == "" {
						payload.Email = strings.TrimSpace(contact.Value)
					}
				case "Телефон", "ТелефонРабочий":
					if payload.Phone == "" {
						payload.Phone = strings.TrimSpace(contact.Value)
					}
				}
			}
			payloads = append(payloads, payload)
		}
	}
	r.logger.Debug("Parsed customer payloads", zap.Int("count", len(payloads)))
	return payloads, nil
}

func (r *FileReader) parseGlob(dir, pattern string) ([]*cmlDocument, error) {
	if dir == "" {
		return nil, fmt.Errorf("no staging directory for exchange files")
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s files: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no %s files found in %s", pattern, dir)
	}

	docs := make([]*cmlDocument, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		var doc cmlDocument
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		docs = append(docs, &doc)
	}
	return docs, nil
}

// splitFullName derives first and last name from the 1C full name field,
// which usually comes as "Last First [Middle]"
func splitFullName(fullName string) (first, last string) {
	parts := strings.Fields(fullName)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return "", parts[0]
	default:
		return parts[1], parts[0]
	}
}

var _ importer.ExchangeReader = (*FileReader)(nil)
