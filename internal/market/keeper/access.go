package keeper

import "github.com/agora-market/agora/internal/market/types"

// Stateless authorization predicates. Every mutating operation consults the
// relevant predicate before touching state; a failed predicate always yields
// ErrUnauthorized, never a silent no-op.

// IsOwner reports whether who owns the listing.
func IsOwner(listing types.Listing, who string) bool {
	return listing.Owner == who
}

// IsBuyer reports whether who is the buyer on the request.
func IsBuyer(request types.Request, who string) bool {
	return request.Buyer == who
}

// IsProvider reports whether who is the provider on the request.
func IsProvider(request types.Request, who string) bool {
	return request.Provider == who
}

// IsSelfService reports whether who would be buying their own listing.
func IsSelfService(listing types.Listing, who string) bool {
	return listing.Owner == who
}
