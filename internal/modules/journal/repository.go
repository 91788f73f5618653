package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/tradejournal/internal/database"
	"github.com/aristath/tradejournal/internal/events"
)

// ConnectionProvider hands out the shared journal connection, opening it on first use
type ConnectionProvider interface {
	EnsureConnection(ctx context.Context) (*database.DB, error)
}

// Emitter publishes journal change notifications
type Emitter interface {
	EmitTyped(eventType events.EventType, module string, data events.EventData)
}

// Repository handles buy and sell persistence
type Repository struct {
	conns     ConnectionProvider
	emitter   Emitter
	validator *Validator
	now       func() time.Time
	newID     func() string
	log       zerolog.Logger
}

// buysColumns must match scanBuy
const buysColumns = `id, symbol, buy_date, quantity, buy_price, note, created_at, updated_at`

// sellsColumns must match scanSell
const sellsColumns = `id, buy_id, sell_date, quantity, sell_price, created_at, updated_at`

// NewRepository creates a trade repository. emitter may be nil.
func NewRepository(conns ConnectionProvider, emitter Emitter, log zerolog.Logger) *Repository {
	return &Repository{
		conns:     conns,
		emitter:   emitter,
		validator: NewValidator(),
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
		log:       log.With().Str("repo", "journal").Logger(),
	}
}

// RecordBuy validates and inserts a new buy
func (r *Repository) RecordBuy(ctx context.Context, in BuyInput) (Buy, error) {
	in = in.Normalize()
	if err := r.validator.ValidateBuy(in); err != nil {
		r.log.Warn().Err(err).Str("symbol", in.Symbol).Msg("Rejected buy")
		return Buy{}, err
	}

	db, err := r.conns.EnsureConnection(ctx)
	if err != nil {
		return Buy{}, err
	}

	buy := Buy{
		ID:        r.newID(),
		Symbol:    in.Symbol,
		BuyDate:   in.BuyDate,
		Quantity:  in.Quantity,
		BuyPrice:  in.BuyPrice,
		Note:      in.Note,
		CreatedAt: r.now().UTC(),
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO buys (id, symbol, buy_date, quantity, buy_price, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL)
	`,
		buy.ID,
		buy.Symbol,
		buy.BuyDate.Format(DateLayout),
		buy.Quantity,
		buy.BuyPrice,
		nullString(buy.Note),
		formatTimestamp(buy.CreatedAt),
	)
	if err != nil {
		r.log.Error().Err(err).Str("symbol", buy.Symbol).Msg("Failed to insert buy")
		return Buy{}, fmt.Errorf("%w: buy %s: %w", ErrInsertFailed, buy.Symbol, err)
	}

	r.log.Info().
		Str("id", buy.ID).
		Str("symbol", buy.Symbol).
		Float64("quantity", buy.Quantity).
		Float64("price", buy.BuyPrice).
		Msg("Buy recorded")

	r.emit(events.BuyRecorded, &events.BuyRecordedData{
		BuyID:    buy.ID,
		Symbol:   buy.Symbol,
		BuyDate:  buy.BuyDate.Format(DateLayout),
		Quantity: buy.Quantity,
		Price:    buy.BuyPrice,
	})

	return buy, nil
}

// RecordSell validates and inserts a sell against an existing buy. The buy
// must exist and still have at least the requested quantity available; the
// check and the insert run in one transaction.
func (r *Repository) RecordSell(ctx context.Context, in SellInput) (Sell, error) {
	in = in.Normalize()
	if err := r.validator.ValidateSell(in); err != nil {
		r.log.Warn().Err(err).Str("buy_id", in.BuyID).Msg("Rejected sell")
		return Sell{}, err
	}

	db, err := r.conns.EnsureConnection(ctx)
	if err != nil {
		return Sell{}, err
	}

	sell := Sell{
		ID:        r.newID(),
		BuyID:     in.BuyID,
		SellDate:  in.SellDate,
		Quantity:  in.Quantity,
		SellPrice: in.SellPrice,
		CreatedAt: r.now().UTC(),
	}

	var (
		symbol    string
		available float64
	)
	err = database.WithTransaction(ctx, db.Conn(), func(tx *sql.Tx) error {
		var (
			buyDate  string
			quantity float64
			sold     float64
		)
		err := tx.QueryRowContext(ctx, `
			SELECT b.symbol, b.buy_date, b.quantity,
			       COALESCE((SELECT SUM(s.quantity) FROM sells s WHERE s.buy_id = b.id), 0)
			FROM buys b
			WHERE b.id = ?
		`, sell.BuyID).Scan(&symbol, &buyDate, &quantity, &sold)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrBuyNotFound, sell.BuyID)
		}
		if err != nil {
			return err
		}

		if sell.SellDate.Format(DateLayout) < buyDate {
			return &ValidationError{Fields: []FieldError{{
				Field:   "sell_date",
				Tag:     "gtefield",
				Message: fmt.Sprintf("sell_date must not be before the buy date %s", buyDate),
			}}}
		}

		available = quantity - sold
		if sell.Quantity > available+quantityEpsilon {
			return fmt.Errorf("%w: requested %g, available %g", ErrInsufficientQuantity, sell.Quantity, available)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO sells (id, buy_id, sell_date, quantity, sell_price, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, NULL)
		`,
			sell.ID,
			sell.BuyID,
			sell.SellDate.Format(DateLayout),
			sell.Quantity,
			sell.SellPrice,
			formatTimestamp(sell.CreatedAt),
		)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrBuyNotFound) || errors.Is(err, ErrInsufficientQuantity) || errors.Is(err, ErrValidation) {
			r.log.Warn().Err(err).Str("buy_id", sell.BuyID).Float64("quantity", sell.Quantity).Msg("Rejected sell")
			return Sell{}, err
		}
		r.log.Error().Err(err).Str("buy_id", sell.BuyID).Msg("Failed to insert sell")
		return Sell{}, fmt.Errorf("%w: sell for buy %s: %w", ErrInsertFailed, sell.BuyID, err)
	}

	r.log.Info().
		Str("id", sell.ID).
		Str("buy_id", sell.BuyID).
		Str("symbol", symbol).
		Float64("quantity", sell.Quantity).
		Float64("price", sell.SellPrice).
		Msg("Sell recorded")

	r.emit(events.SellRecorded, &events.SellRecordedData{
		SellID:    sell.ID,
		BuyID:     sell.BuyID,
		Symbol:    symbol,
		SellDate:  sell.SellDate.Format(DateLayout),
		Quantity:  sell.Quantity,
		Price:     sell.SellPrice,
		Remaining: available - sell.Quantity,
	})

	return sell, nil
}

// UpdateBuyNote replaces the note of a buy and stamps updated_at.
// A nil or blank note clears it.
func (r *Repository) UpdateBuyNote(ctx context.Context, buyID string, note *string) (Buy, error) {
	normalized := BuyInput{Note: note}.Normalize().Note
	if err := r.validator.ValidateNote(normalized); err != nil {
		return Buy{}, err
	}

	db, err := r.conns.EnsureConnection(ctx)
	if err != nil {
		return Buy{}, err
	}

	res, err := db.ExecContext(ctx,
		"UPDATE buys SET note = ?, updated_at = ? WHERE id = ?",
		nullString(normalized), formatTimestamp(r.now().UTC()), buyID,
	)
	if err != nil {
		r.log.Error().Err(err).Str("buy_id", buyID).Msg("Failed to update buy note")
		return Buy{}, fmt.Errorf("%w: buy %s: %w", ErrUpdateFailed, buyID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Buy{}, fmt.Errorf("%w: buy %s: %w", ErrUpdateFailed, buyID, err)
	}
	if affected == 0 {
		return Buy{}, fmt.Errorf("%w: %s", ErrBuyNotFound, buyID)
	}

	buy, err := r.GetBuy(ctx, buyID)
	if err != nil {
		return Buy{}, err
	}

	r.log.Info().Str("id", buyID).Msg("Buy note updated")
	r.emit(events.BuyUpdated, &events.BuyUpdatedData{BuyID: buy.ID, Symbol: buy.Symbol})

	return buy, nil
}

// GetBuy retrieves one buy by id
func (r *Repository) GetBuy(ctx context.Context, id string) (Buy, error) {
	db, err := r.conns.EnsureConnection(ctx)
	if err != nil {
		return Buy{}, err
	}

	row := db.QueryRowContext(ctx, "SELECT "+buysColumns+" FROM buys WHERE id = ?", id)
	buy, err := scanBuy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Buy{}, fmt.Errorf("%w: %s", ErrBuyNotFound, id)
	}
	if err != nil {
		return Buy{}, fmt.Errorf("%w: get buy %s: %w", ErrQueryFailed, id, err)
	}

	return buy, nil
}

// ListBuys returns every buy, most recent buy date first, ties in insertion order
func (r *Repository) ListBuys(ctx context.Context) ([]Buy, error) {
	db, err := r.conns.EnsureConnection(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+buysColumns+` FROM buys
		ORDER BY buy_date DESC, rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: list buys: %w", ErrQueryFailed, err)
	}
	defer rows.Close()

	buys := make([]Buy, 0)
	for rows.Next() {
		buy, err := scanBuy(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan buy: %w", ErrQueryFailed, err)
		}
		buys = append(buys, buy)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate buys: %w", ErrQueryFailed, err)
	}

	return buys, nil
}

// ListSells returns the sells recorded against one buy, oldest first
func (r *Repository) ListSells(ctx context.Context, buyID string) ([]Sell, error) {
	return r.querySells(ctx, `
		SELECT `+sellsColumns+` FROM sells
		WHERE buy_id = ?
		ORDER BY sell_date ASC, rowid ASC
	`, buyID)
}

// ListAllSells returns every sell, oldest first
func (r *Repository) ListAllSells(ctx context.Context) ([]Sell, error) {
	return r.querySells(ctx, `
		SELECT `+sellsColumns+` FROM sells
		ORDER BY sell_date ASC, rowid ASC
	`)
}

func (r *Repository) querySells(ctx context.Context, query string, args ...interface{}) ([]Sell, error) {
	db, err := r.conns.EnsureConnection(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list sells: %w", ErrQueryFailed, err)
	}
	defer rows.Close()

	sells := make([]Sell, 0)
	for rows.Next() {
		sell, err := scanSell(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan sell: %w", ErrQueryFailed, err)
		}
		sells = append(sells, sell)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate sells: %w", ErrQueryFailed, err)
	}

	return sells, nil
}

// ListAvailableForSell returns buys with quantity left to sell, most recent
// buy date first. A buy without sells is fully available.
func (r *Repository) ListAvailableForSell(ctx context.Context) ([]AvailableLot, error) {
	db, err := r.conns.EnsureConnection(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT b.id, b.symbol, b.buy_date, b.buy_price, b.quantity,
		       b.quantity - COALESCE(s.sold, 0) AS available
		FROM buys b
		LEFT JOIN (
			SELECT buy_id, SUM(quantity) AS sold
			FROM sells
			GROUP BY buy_id
		) s ON s.buy_id = b.id
		WHERE b.quantity - COALESCE(s.sold, 0) > ?
		ORDER BY b.buy_date DESC, b.rowid ASC
	`, quantityEpsilon)
	if err != nil {
		return nil, fmt.Errorf("%w: list available: %w", ErrQueryFailed, err)
	}
	defer rows.Close()

	lots := make([]AvailableLot, 0)
	for rows.Next() {
		var (
			lot     AvailableLot
			buyDate string
		)
		if err := rows.Scan(&lot.BuyID, &lot.Symbol, &buyDate, &lot.BuyPrice, &lot.Quantity, &lot.AvailableQuantity); err != nil {
			return nil, fmt.Errorf("%w: scan available lot: %w", ErrQueryFailed, err)
		}
		if lot.BuyDate, err = time.Parse(DateLayout, buyDate); err != nil {
			return nil, fmt.Errorf("%w: buy %s has malformed date %q: %w", ErrQueryFailed, lot.BuyID, buyDate, err)
		}
		lots = append(lots, lot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate available lots: %w", ErrQueryFailed, err)
	}

	return lots, nil
}

// SeedSample records a sample buy so a fresh install has something to show
func (r *Repository) SeedSample(ctx context.Context) (Buy, error) {
	note := "Sample trade"
	return r.RecordBuy(ctx, BuyInput{
		Symbol:   "NET",
		BuyDate:  r.now(),
		Quantity: 10,
		BuyPrice: 150.00,
		Note:     &note,
	})
}

func (r *Repository) emit(eventType events.EventType, data events.EventData) {
	if r.emitter == nil {
		return
	}
	r.emitter.EmitTyped(eventType, "journal", data)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBuy(row rowScanner) (Buy, error) {
	var (
		buy       Buy
		buyDate   string
		note      sql.NullString
		createdAt string
		updatedAt sql.NullString
	)
	if err := row.Scan(&buy.ID, &buy.Symbol, &buyDate, &buy.Quantity, &buy.BuyPrice, &note, &createdAt, &updatedAt); err != nil {
		return Buy{}, err
	}

	var err error
	if buy.BuyDate, err = time.Parse(DateLayout, buyDate); err != nil {
		return Buy{}, fmt.Errorf("malformed buy_date %q: %w", buyDate, err)
	}
	if buy.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return Buy{}, err
	}
	if note.Valid {
		buy.Note = &note.String
	}
	if buy.UpdatedAt, err = parseNullTimestamp(updatedAt); err != nil {
		return Buy{}, err
	}

	return buy, nil
}

func scanSell(row rowScanner) (Sell, error) {
	var (
		sell      Sell
		sellDate  string
		createdAt string
		updatedAt sql.NullString
	)
	if err := row.Scan(&sell.ID, &sell.BuyID, &sellDate, &sell.Quantity, &sell.SellPrice, &createdAt, &updatedAt); err != nil {
		return Sell{}, err
	}

	var err error
	if sell.SellDate, err = time.Parse(DateLayout, sellDate); err != nil {
		return Sell{}, fmt.Errorf("malformed sell_date %q: %w", sellDate, err)
	}
	if sell.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return Sell{}, err
	}
	if sell.UpdatedAt, err = parseNullTimestamp(updatedAt); err != nil {
		return Sell{}, err
	}

	return sell, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseNullTimestamp(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTimestamp(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
