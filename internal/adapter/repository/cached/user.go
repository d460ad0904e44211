package cached

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"room-user-service/internal/adapter/cache"
	domain "room-user-service/internal/domain/user"
	"room-user-service/internal/usecase/user"
)

// CachedUserRepository implements user.Repository with caching support.
// It wraps a persistent repository (DB) and a cache implementation.
type CachedUserRepository struct {
	dbRepo user.Repository
	cache  cache.UserCache
	log    *zap.Logger
	group  singleflight.Group
}

// NewCachedUserRepository creates a new instance of CachedUserRepository.
func NewCachedUserRepository(dbRepo user.Repository, cache cache.UserCache, log *zap.Logger) user.Repository {
	return &CachedUserRepository{
		dbRepo: dbRepo,
		cache:  cache,
		log:    log,
	}
}

// Create delegates to the DB repository.
func (r *CachedUserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	return r.dbRepo.Create(ctx, u)
}

// GetByID retrieves a user by ID using Cache-Aside pattern. The fill is
// guarded by the entry's invalidation counter, read before the database.
func (r *CachedUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	version, fill := "", false
	if r.cache != nil {
		cachedUser, err := r.cache.Get(ctx, id)
		if err != nil {
			r.log.Warn("cache get error, falling back to database", zap.String("id", id.String()), zap.Error(err))
		} else if cachedUser != nil {
			r.log.Debug("user retrieved from cache", zap.String("id", id.String()))
			return cachedUser, nil
		}

		if err == nil {
			if version, err = r.cache.Version(ctx, id); err != nil {
				r.log.Warn("cache version error, result will not be cached", zap.String("id", id.String()), zap.Error(err))
			} else {
				fill = true
			}
		}
	}

	// Reads that start after an invalidation see a new counter and never
	// join a flight that began before it.
	result, err, _ := r.group.Do("user:"+id.String()+":"+version, func() (any, error) {
		u, err := r.dbRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if fill {
			if _, err := r.cache.SetIfVersion(ctx, u, version); err != nil {
				r.log.Warn("failed to cache user", zap.String("id", id.String()), zap.Error(err))
			}
		}

		return u, nil
	})
	if err != nil {
		return nil, err
	}

	// Callers mutate the returned record; hand out a copy so waiters sharing
	// a single-flight result never alias each other.
	u := *result.(*domain.User)
	return &u, nil
}

// GetByEmail delegates to the DB repository.
func (r *CachedUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.dbRepo.GetByEmail(ctx, email)
}

// Update patches the user in DB and invalidates the cache.
func (r *CachedUserRepository) Update(ctx context.Context, id uuid.UUID, p domain.Patch) (*domain.User, error) {
	updated, err := r.dbRepo.Update(ctx, id, p)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.Invalidate(ctx, id); err != nil {
			r.log.Warn("failed to invalidate cache after update", zap.String("id", id.String()), zap.Error(err))
		}
	}

	return updated, nil
}

// List delegates to the DB repository.
func (r *CachedUserRepository) List(ctx context.Context, skip, limit int) ([]domain.User, error) {
	return r.dbRepo.List(ctx, skip, limit)
}
