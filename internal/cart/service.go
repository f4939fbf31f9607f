package cart

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/mscykler/storefront/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Service owns one cart per browser session. Mutations follow a
// load-merge-upsert cycle: the session cookie gives each cart a single
// writer, so there is no concurrent-writer conflict to guard against.
type Service struct {
	repo  Repository
	cache Cache
	sfg   singleflight.Group // Prevents cache stampede
}

func NewService(repo Repository, cache Cache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
	}
}

// GetCart returns the session's cart, reading through the cache. A missing or
// corrupt stored cart degrades to an empty cart, never an error.
func (s *Service) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {
		cached, err := s.cache.Get(ctx, sessionID)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		cart, errGet := s.repo.GetCart(ctx, sessionID)
		if errGet != nil {
			if errors.Is(errGet, ErrCartNotFound) || errors.Is(errGet, ErrCartCorrupt) {
				if errors.Is(errGet, ErrCartCorrupt) {
					log.Printf("corrupt cart for session %s, resetting to empty", sessionID)
				}
				return emptyCart(sessionID), nil
			}
			return nil, errGet
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), sessionID, cart); errSet != nil {
				log.Printf("cache set error: %v", errSet)
			}
		}()

		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddItem merges the product into the cart, snapshotting name, price and
// image at call time. Repeated adds of the same product accumulate quantity.
func (s *Service) AddItem(ctx context.Context, sessionID string, p *domain.Product, typ domain.ProductType) (*domain.Cart, error) {
	return s.mutate(ctx, sessionID, func(c *domain.Cart) {
		c.AddProduct(p, typ, time.Now())
	})
}

// UpdateQuantity sets the item's quantity, clamped to a minimum of 1.
func (s *Service) UpdateQuantity(ctx context.Context, sessionID string, productID int64, quantity int) (*domain.Cart, error) {
	return s.mutate(ctx, sessionID, func(c *domain.Cart) {
		c.SetQuantity(productID, quantity)
	})
}

func (s *Service) RemoveItem(ctx context.Context, sessionID string, productID int64) (*domain.Cart, error) {
	return s.mutate(ctx, sessionID, func(c *domain.Cart) {
		c.RemoveProduct(productID)
	})
}

// Clear deletes the persisted cart entirely.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if err := s.repo.DeleteCart(ctx, sessionID); err != nil {
		log.Printf("repo delete cart error: %v", err)
		return err
	}
	s.invalidateCache(sessionID)
	return nil
}

func (s *Service) mutate(ctx context.Context, sessionID string, fn func(*domain.Cart)) (*domain.Cart, error) {
	cart, err := s.repo.GetCart(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, ErrCartNotFound) && !errors.Is(err, ErrCartCorrupt) {
			log.Printf("repo get cart error: %v", err)
			return nil, err
		}
		cart = emptyCart(sessionID)
	}

	fn(cart)

	if errUpsert := s.repo.UpsertCart(ctx, cart); errUpsert != nil {
		log.Printf("repo upsert cart error: %v", errUpsert)
		return nil, errUpsert
	}

	s.invalidateCache(sessionID)
	return cart, nil
}

func (s *Service) invalidateCache(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, sessionID); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}

func emptyCart(sessionID string) *domain.Cart {
	now := time.Now()
	return &domain.Cart{
		SessionID: sessionID,
		Items:     nil,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
