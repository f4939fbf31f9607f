package catalog

import (
	"context"

	"github.com/mscykler/storefront/internal/domain"
	"golang.org/x/sync/errgroup"
)

// SearchResult tags a match with the product type it came from so the client
// can link to the right detail page.
type SearchResult struct {
	Type    domain.ProductType `json:"type"`
	Product *domain.Product    `json:"product"`
}

type Service struct {
	repo RepoInterface
}

func NewService(repo RepoInterface) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, typ domain.ProductType, category string, sort Sort) ([]*domain.Product, error) {
	return s.repo.ListProducts(ctx, typ, category, sort)
}

func (s *Service) Get(ctx context.Context, typ domain.ProductType, id int64) (*domain.Product, error) {
	return s.repo.GetProduct(ctx, typ, id)
}

// Related returns up to RelatedLimit products sharing the category of the
// given product, excluding the product itself.
func (s *Service) Related(ctx context.Context, typ domain.ProductType, id int64) ([]*domain.Product, error) {
	p, err := s.repo.GetProduct(ctx, typ, id)
	if err != nil {
		return nil, err
	}
	return s.repo.GetRelated(ctx, typ, p.Category, p.ID, RelatedLimit)
}

func (s *Service) Categories(ctx context.Context, typ domain.ProductType) ([]string, error) {
	return s.repo.ListCategories(ctx, typ)
}

// Search runs a case-insensitive substring match on name over bikes and parts
// concurrently and merges the results tagged by type, bikes first.
func (s *Service) Search(ctx context.Context, query string) ([]SearchResult, error) {
	var bikes, parts []*domain.Product

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bikes, err = s.repo.SearchByName(ctx, domain.ProductTypeBike, query)
		return err
	})
	g.Go(func() error {
		var err error
		parts, err = s.repo.SearchByName(ctx, domain.ProductTypePart, query)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(bikes)+len(parts))
	for _, b := range bikes {
		results = append(results, SearchResult{Type: domain.ProductTypeBike, Product: b})
	}
	for _, p := range parts {
		results = append(results, SearchResult{Type: domain.ProductTypePart, Product: p})
	}
	return results, nil
}

func (s *Service) Create(ctx context.Context, typ domain.ProductType, p *domain.Product) (int64, error) {
	return s.repo.CreateProduct(ctx, typ, p)
}

func (s *Service) Update(ctx context.Context, typ domain.ProductType, p *domain.Product) error {
	return s.repo.UpdateProduct(ctx, typ, p)
}

func (s *Service) Delete(ctx context.Context, typ domain.ProductType, id int64) error {
	return s.repo.DeleteProduct(ctx, typ, id)
}
