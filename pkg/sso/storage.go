package sso

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/idp-redirect/pkg/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/platinummonkey/idp-redirect/pkg/sso")

// Storage reads and administers domain mappings in the domain_to_idp table
type Storage struct {
	db      *sql.DB
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewStorage creates a new mapping storage
func NewStorage(db *sql.DB, logger *observability.Logger) *Storage {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Storage{db: db, logger: logger}
}

// WithMetrics records lookup latency and failures
func (s *Storage) WithMetrics(metrics *observability.Metrics) *Storage {
	s.metrics = metrics
	return s
}

// FindEnabledIdpAlias returns the alias of the enabled mapping for domain.
// The connection is held only for this lookup and released on every path.
// More than one enabled row violates the uniqueness invariant; the lowest id wins.
func (s *Storage) FindEnabledIdpAlias(ctx context.Context, domain string) (alias string, err error) {
	ctx, span := tracer.Start(ctx, "sso.Storage.FindEnabledIdpAlias")
	span.SetAttributes(attribute.String("email_domain", domain))
	start := time.Now()
	defer func() {
		failed := err != nil && !errors.Is(err, ErrMappingNotFound)
		if failed {
			span.RecordError(err)
			span.SetStatus(codes.Error, "lookup failed")
		}
		s.metrics.ObserveLookup("sql", start, failed)
		span.End()
	}()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, `
		SELECT idp_alias
		FROM domain_to_idp
		WHERE email_domain = $1 AND enabled = true
		ORDER BY id
		LIMIT 2
	`, domain)
	if err != nil {
		return "", fmt.Errorf("failed to query domain mapping: %w", err)
	}
	defer rows.Close()

	var aliases []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return "", fmt.Errorf("failed to scan domain mapping: %w", err)
		}
		aliases = append(aliases, a)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to read domain mappings: %w", err)
	}

	switch len(aliases) {
	case 0:
		return "", ErrMappingNotFound
	case 1:
		return aliases[0], nil
	default:
		s.logger.WithField("domain", domain).
			WithField("idp_alias", aliases[0]).
			Warn("Multiple enabled IdP mappings for domain, using the first")
		return aliases[0], nil
	}
}

const mappingColumns = `id, email_domain, idp_alias, enabled, created_at, updated_at`

func scanMapping(row interface{ Scan(...interface{}) error }) (*DomainMapping, error) {
	m := &DomainMapping{}
	if err := row.Scan(&m.ID, &m.EmailDomain, &m.IdpAlias, &m.Enabled, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return m, nil
}

// NormalizeDomain lower-cases and trims a domain for storage and lookup
func NormalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

// CreateMapping inserts a new mapping; the domain is normalized first
func (s *Storage) CreateMapping(ctx context.Context, m *DomainMapping) error {
	m.EmailDomain = NormalizeDomain(m.EmailDomain)

	exists, err := s.MappingExists(ctx, m.EmailDomain)
	if err != nil {
		return err
	}
	if exists {
		return ErrMappingExists
	}

	now := time.Now().UTC()
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO domain_to_idp (email_domain, idp_alias, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, m.EmailDomain, m.IdpAlias, m.Enabled, now, now).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("failed to create domain mapping: %w", err)
	}

	m.CreatedAt = now
	m.UpdatedAt = now
	return nil
}

// GetMapping retrieves the mapping for a domain regardless of its enabled flag
func (s *Storage) GetMapping(ctx context.Context, domain string) (*DomainMapping, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+mappingColumns+`
		FROM domain_to_idp
		WHERE email_domain = $1
	`, NormalizeDomain(domain))

	m, err := scanMapping(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMappingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get domain mapping: %w", err)
	}
	return m, nil
}

// ListMappings lists mappings ordered by domain
func (s *Storage) ListMappings(ctx context.Context, enabledOnly bool) ([]*DomainMapping, error) {
	query := `SELECT ` + mappingColumns + ` FROM domain_to_idp`
	if enabledOnly {
		query += " WHERE enabled = true"
	}
	query += " ORDER BY email_domain"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list domain mappings: %w", err)
	}
	defer rows.Close()

	mappings := []*DomainMapping{}
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan domain mapping: %w", err)
		}
		mappings = append(mappings, m)
	}

	return mappings, rows.Err()
}

// UpdateMapping changes the alias and enabled flag of an existing mapping
func (s *Storage) UpdateMapping(ctx context.Context, m *DomainMapping) error {
	m.EmailDomain = NormalizeDomain(m.EmailDomain)
	now := time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE domain_to_idp
		SET idp_alias = $1, enabled = $2, updated_at = $3
		WHERE email_domain = $4
	`, m.IdpAlias, m.Enabled, now, m.EmailDomain)
	if err != nil {
		return fmt.Errorf("failed to update domain mapping: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update domain mapping: %w", err)
	}
	if affected == 0 {
		return ErrMappingNotFound
	}

	m.UpdatedAt = now
	return nil
}

// DeleteMapping removes the mapping for a domain
func (s *Storage) DeleteMapping(ctx context.Context, domain string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM domain_to_idp WHERE email_domain = $1`, NormalizeDomain(domain))
	if err != nil {
		return fmt.Errorf("failed to delete domain mapping: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete domain mapping: %w", err)
	}
	if affected == 0 {
		return ErrMappingNotFound
	}
	return nil
}

// MappingExists checks if a mapping for the domain exists
func (s *Storage) MappingExists(ctx context.Context, domain string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM domain_to_idp WHERE email_domain = $1)`,
		NormalizeDomain(domain)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check domain mapping: %w", err)
	}
	return exists, nil
}

// CountEnabled returns the number of enabled mappings
func (s *Storage) CountEnabled(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM domain_to_idp WHERE enabled = true`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count domain mappings: %w", err)
	}
	return count, nil
}
