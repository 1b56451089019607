package transport

import (
	"net/http"
	"strings"
	"time"

	"inventory-ledger/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// queryParser reads optional filter parameters and collects one field
// error per malformed value
type queryParser struct {
	r    *http.Request
	verr domain.ValidationError
}

func newQueryParser(r *http.Request) *queryParser {
	return &queryParser{r: r}
}

func (p *queryParser) str(name string) string {
	return strings.TrimSpace(p.r.URL.Query().Get(name))
}

func (p *queryParser) decimalParam(name string) *decimal.Decimal {
	raw := p.str(name)
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		p.verr.Add(name, "Enter a number.")
		return nil
	}
	return &d
}

// boolean treats "true" in any case as true and every other value as false
func (p *queryParser) boolean(name string) *bool {
	raw := p.str(name)
	if raw == "" {
		return nil
	}
	v := strings.EqualFold(raw, "true")
	return &v
}

func (p *queryParser) uuidParam(name string) *uuid.UUID {
	raw := p.str(name)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		p.verr.Add(name, "Enter a valid UUID.")
		return nil
	}
	return &id
}

// date accepts RFC3339 timestamps or a bare date meaning midnight UTC
func (p *queryParser) date(name string) *time.Time {
	raw := p.str(name)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	if t, err := time.ParseInLocation(dateLayout, raw, time.UTC); err == nil {
		return &t
	}
	p.verr.Add(name, "Enter a valid date/time.")
	return nil
}

func (p *queryParser) err() error {
	if p.verr.HasErrors() {
		return &p.verr
	}
	return nil
}

func parseCategoryFilter(r *http.Request) (domain.CategoryFilter, error) {
	p := newQueryParser(r)
	return domain.CategoryFilter{Name: p.str("name")}, p.err()
}

func parseProductFilter(r *http.Request) (domain.ProductFilter, error) {
	p := newQueryParser(r)
	filter := domain.ProductFilter{
		CategorySlug: p.str("category"),
		Name:         p.str("name"),
		Search:       p.str("search"),
		MinPrice:     p.decimalParam("min_price"),
		MaxPrice:     p.decimalParam("max_price"),
		Available:    p.boolean("available"),
	}
	return filter, p.err()
}

func parseTransactionFilter(r *http.Request) (domain.TransactionFilter, error) {
	p := newQueryParser(r)
	filter := domain.TransactionFilter{
		Type:     domain.TransactionType(p.str("transaction_type")),
		Status:   domain.TransactionStatus(p.str("status")),
		DateFrom: p.date("date_from"),
		DateTo:   p.date("date_to"),
		Search:   p.str("search"),
		Ordering: domain.TransactionOrdering(p.str("ordering")),
	}
	if filter.Ordering != "" && !filter.Ordering.Valid() {
		p.verr.Add("ordering", "Select a valid choice. "+string(filter.Ordering)+" is not one of the available choices.")
	}
	return filter, p.err()
}

func parseItemFilter(r *http.Request) (domain.TransactionItemFilter, error) {
	p := newQueryParser(r)
	filter := domain.TransactionItemFilter{
		TransactionIdentifier: p.str("transaction_id"),
		ProductID:             p.uuidParam("product_id"),
	}
	return filter, p.err()
}

func parseMovementFilter(r *http.Request) (domain.MovementFilter, error) {
	p := newQueryParser(r)
	filter := domain.MovementFilter{
		ProductID:             p.uuidParam("product_id"),
		TransactionIdentifier: p.str("transaction_id"),
	}
	return filter, p.err()
}

// pathID parses the {id} route parameter. A malformed id can never match a
// row, so callers answer 404.
func pathID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}
