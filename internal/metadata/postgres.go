package metadata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/swapkit/internal/domain"
)

const uniqueViolation = "23505"

// PgStore implements Store with PostgreSQL.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PostgreSQL registry.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const tokenColumns = `id::text, name, symbol, coin_type, icon, decimals,
	treasury_cap_holder_id, collateral_id, metadata_id, pool_id,
	total_supply::text, collected_sui::text, status,
	amm_pool_id, position_id, tick_lower, tick_upper, liquidity::text`

func (s *PgStore) CreateToken(ctx context.Context, t domain.Token) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tokens (name, symbol, coin_type, icon, decimals,
		   treasury_cap_holder_id, collateral_id, metadata_id, pool_id,
		   total_supply, collected_sui, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::numeric, $11::numeric, $12)`,
		t.Name, t.Symbol, string(t.Type.Canonical()), t.Icon, t.Decimals,
		t.TreasuryCapHolderID, t.CollateralID, t.MetadataID, t.PoolID,
		amountString(t.TotalSupply), amountString(t.CollectedSUI), string(statusOrFunding(t.Status)))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("token %s: %w", t.Type, ErrExists)
		}
		return fmt.Errorf("saving token %s: %w", t.Type, err)
	}
	return nil
}

func (s *PgStore) ListTokens(ctx context.Context) ([]domain.Token, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+tokenColumns+` FROM tokens ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing tokens: %w", err)
	}
	defer rows.Close()

	var tokens []domain.Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *PgStore) GetToken(ctx context.Context, coinType domain.CoinType) (domain.Token, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tokenColumns+` FROM tokens WHERE coin_type = $1`, string(coinType.Canonical()))
	t, err := scanToken(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Token{}, fmt.Errorf("token %s: %w", coinType, ErrNotFound)
		}
		return domain.Token{}, err
	}
	return t, nil
}

func (s *PgStore) UpdateTokenStatus(ctx context.Context, coinType domain.CoinType, state domain.TokenState) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tokens SET total_supply = $2::numeric, collected_sui = $3::numeric, status = $4, updated_at = NOW()
		 WHERE coin_type = $1`,
		string(coinType.Canonical()), amountString(state.TotalSupply), amountString(state.CollectedSUI), string(state.Status))
	if err != nil {
		return fmt.Errorf("updating status of %s: %w", coinType, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("token %s: %w", coinType, ErrNotFound)
	}
	return nil
}

func (s *PgStore) UpdateTokenPool(ctx context.Context, coinType domain.CoinType, pool domain.PoolInfo) error {
	liquidity := pool.Liquidity
	if liquidity == "" {
		liquidity = "0"
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE tokens SET amm_pool_id = $2, position_id = $3, tick_lower = $4, tick_upper = $5,
		   liquidity = $6::numeric, updated_at = NOW()
		 WHERE coin_type = $1`,
		string(coinType.Canonical()), pool.PoolID, pool.PositionID, pool.TickLower, pool.TickUpper, liquidity)
	if err != nil {
		return fmt.Errorf("updating pool of %s: %w", coinType, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("token %s: %w", coinType, ErrNotFound)
	}
	return nil
}

func (s *PgStore) GetTokenPool(ctx context.Context, coinType domain.CoinType) (domain.PoolInfo, error) {
	var (
		p         domain.PoolInfo
		poolID    *string
		position  *string
		lower     *int32
		upper     *int32
		liquidity *string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT amm_pool_id, position_id, tick_lower, tick_upper, liquidity::text
		 FROM tokens WHERE coin_type = $1`, string(coinType.Canonical())).
		Scan(&poolID, &position, &lower, &upper, &liquidity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PoolInfo{}, fmt.Errorf("token %s: %w", coinType, ErrNotFound)
		}
		return domain.PoolInfo{}, fmt.Errorf("getting pool of %s: %w", coinType, err)
	}
	if poolID == nil || *poolID == "" {
		return domain.PoolInfo{}, fmt.Errorf("pool of %s: %w", coinType, ErrNotFound)
	}
	p.PoolID = *poolID
	if position != nil {
		p.PositionID = *position
	}
	if lower != nil {
		p.TickLower = *lower
	}
	if upper != nil {
		p.TickUpper = *upper
	}
	if liquidity != nil {
		p.Liquidity = *liquidity
	}
	return p, nil
}

func (s *PgStore) CreateLending(ctx context.Context, l domain.Lending) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO lendings (name, symbol, coin_type, icon, decimals, metadata_id,
		   lending_pool_id, ltv, liquidation_threshold)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		l.Name, l.Symbol, string(l.Type.Canonical()), l.Icon, l.Decimals, l.MetadataID,
		l.LendingPoolID, l.LTV, l.LiquidationThreshold)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("lending %s: %w", l.Type, ErrExists)
		}
		return fmt.Errorf("saving lending %s: %w", l.Type, err)
	}
	return nil
}

const lendingColumns = `id::text, name, symbol, coin_type, icon, decimals, metadata_id,
	lending_pool_id, ltv, liquidation_threshold`

func (s *PgStore) ListLendings(ctx context.Context) ([]domain.Lending, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+lendingColumns+` FROM lendings ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing lendings: %w", err)
	}
	defer rows.Close()

	var lendings []domain.Lending
	for rows.Next() {
		l, err := scanLending(rows)
		if err != nil {
			return nil, err
		}
		lendings = append(lendings, l)
	}
	return lendings, rows.Err()
}

func (s *PgStore) GetLending(ctx context.Context, coinType domain.CoinType) (domain.Lending, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+lendingColumns+` FROM lendings WHERE coin_type = $1`, string(coinType.Canonical()))
	l, err := scanLending(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Lending{}, fmt.Errorf("lending %s: %w", coinType, ErrNotFound)
		}
		return domain.Lending{}, err
	}
	return l, nil
}

func scanToken(row pgx.Row) (domain.Token, error) {
	var (
		r         tokenRecord
		coinType  string
		ammPool   *string
		liquidity *string
	)
	err := row.Scan(&r.ID, &r.Name, &r.Symbol, &coinType, &r.Icon, &r.Decimals,
		&r.TreasuryCapHolderID, &r.CollateralID, &r.MetadataID, &r.PoolID,
		&r.TotalSupply, &r.CollectedSUI, &r.Status,
		&ammPool, &r.PositionID, &r.TickLower, &r.TickUpper, &liquidity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Token{}, err
		}
		return domain.Token{}, fmt.Errorf("scanning token: %w", err)
	}
	r.Type = coinType
	r.Liquidity = liquidity
	t, err := r.token()
	if err != nil {
		return domain.Token{}, err
	}
	if t.Liquidity != nil && ammPool != nil {
		t.Liquidity.PoolID = *ammPool
	}
	return t, nil
}

func scanLending(row pgx.Row) (domain.Lending, error) {
	var (
		l        domain.Lending
		coinType string
	)
	err := row.Scan(&l.ID, &l.Name, &l.Symbol, &coinType, &l.Icon, &l.Decimals, &l.MetadataID,
		&l.LendingPoolID, &l.LTV, &l.LiquidationThreshold)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Lending{}, err
		}
		return domain.Lending{}, fmt.Errorf("scanning lending: %w", err)
	}
	l.Type = domain.CoinType(coinType)
	return l, nil
}

func statusOrFunding(s domain.TokenStatus) domain.TokenStatus {
	if s == "" {
		return domain.TokenStatusFunding
	}
	return s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
