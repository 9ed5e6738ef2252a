// Package identity maps opaque user ids to human-readable names via the AWS
// Identity Store. Resolution never fails outward: any lookup problem degrades
// to the id itself so the dashboard can always render.
package identity

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/identitystore"

	"usage-report/internal/cache"
)

const cacheNamespace = "identity"

// IdentityStoreAPI is the subset of the Identity Store client the resolver needs.
type IdentityStoreAPI interface {
	DescribeUser(ctx context.Context, params *identitystore.DescribeUserInput, optFns ...func(*identitystore.Options)) (*identitystore.DescribeUserOutput, error)
}

// Resolver resolves user ids to display names with per-id caching. An empty
// store id puts the resolver in pass-through mode: ids are returned unchanged
// without any backend call.
type Resolver struct {
	client  IdentityStoreAPI
	storeID string
	store   *cache.Store
	ttl     time.Duration
	logger  *slog.Logger
}

// NewResolver creates a Resolver backed by the given cache store.
func NewResolver(client IdentityStoreAPI, storeID string, store *cache.Store, ttl time.Duration, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{client: client, storeID: storeID, store: store, ttl: ttl, logger: logger}
}

// ResolveOne returns the display name for a user id. Results are cached per
// id for the configured window.
func (r *Resolver) ResolveOne(ctx context.Context, userID string) string {
	if r.storeID == "" {
		return userID
	}
	name, _ := cache.Fetch(ctx, r.store, cacheNamespace, userID, r.ttl, func(ctx context.Context) (string, error) {
		return r.lookup(ctx, userID), nil
	})
	return name
}

// ResolveBatch resolves every id in ids. "Batch" is pointwise: each id goes
// through the per-id cache, so ids repeated across calls are not re-resolved.
// The returned map contains an entry for every requested id.
func (r *Resolver) ResolveBatch(ctx context.Context, ids []string) map[string]string {
	names := make(map[string]string, len(ids))
	for _, id := range ids {
		names[id] = r.ResolveOne(ctx, id)
	}
	return names
}

// lookup fetches the user's profile and picks the best display field:
// username, then display name, then the first listed email, then the id.
func (r *Resolver) lookup(ctx context.Context, userID string) string {
	out, err := r.client.DescribeUser(ctx, &identitystore.DescribeUserInput{
		IdentityStoreId: aws.String(r.storeID),
		UserId:          aws.String(userID),
	})
	if err != nil {
		r.logger.Debug("identity lookup failed", "user_id", userID, "error", err)
		return userID
	}
	if v := aws.ToString(out.UserName); v != "" {
		return v
	}
	if v := aws.ToString(out.DisplayName); v != "" {
		return v
	}
	if len(out.Emails) > 0 {
		if v := aws.ToString(out.Emails[0].Value); v != "" {
			return v
		}
	}
	return userID
}
