package service

import (
	"context"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/support-agent/internal/domain"
	"github.com/spec-kit/support-agent/internal/repository"
)

// IdentityResolver maps raw mail addresses onto tenant and customer
// records, creating them lazily on first sight. Its methods take the
// repositories as arguments so callers can pass transaction-scoped ones
// and keep resolution atomic with the rest of the ingest write.
type IdentityResolver struct {
	watchAddress string
	logger       *zap.Logger
}

// NewIdentityResolver builds a resolver. watchAddress is the tenant
// fallback used when a message carries no receiver address.
func NewIdentityResolver(watchAddress string, logger *zap.Logger) *IdentityResolver {
	return &IdentityResolver{watchAddress: normalizeAddress(watchAddress), logger: logger}
}

// ResolveTenant returns the tenant owning the receiving address,
// creating it if unseen. A concurrent create is absorbed by the upsert.
func (r *IdentityResolver) ResolveTenant(ctx context.Context, tenants repository.TenantRepository, receiver string) (*domain.Tenant, error) {
	address := normalizeAddress(receiver)
	if address == "" {
		address = r.watchAddress
		r.logger.Debug("empty receiver address, using watch address",
			zap.String("address", address))
	}

	tenant := &domain.Tenant{
		Name:  displayNameFor(receiver, address),
		Email: address,
	}
	if err := tenants.Upsert(ctx, tenant); err != nil {
		return nil, err
	}
	return tenant, nil
}

// ResolveCustomer returns the customer behind the sending address,
// creating them if unseen.
func (r *IdentityResolver) ResolveCustomer(ctx context.Context, customers repository.CustomerRepository, sender string) (*domain.Customer, error) {
	address := normalizeAddress(sender)

	customer := &domain.Customer{
		Email: address,
		Name:  displayNameFor(sender, address),
	}
	if err := customers.Upsert(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// normalizeAddress extracts the bare lowercase address from a raw
// header value such as `"Jane Doe" <jane@example.com>`.
func normalizeAddress(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if parsed, err := mail.ParseAddress(raw); err == nil {
		return strings.ToLower(parsed.Address)
	}
	return strings.ToLower(strings.Trim(raw, "<>"))
}

// displayNameFor derives a human name from the header display name,
// falling back to the address local part.
func displayNameFor(raw, address string) string {
	if parsed, err := mail.ParseAddress(strings.TrimSpace(raw)); err == nil && parsed.Name != "" {
		return parsed.Name
	}
	if at := strings.Index(address, "@"); at > 0 {
		return address[:at]
	}
	return address
}
