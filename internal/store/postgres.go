package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/iurnickita/campaignadmin/internal/model"
)

const pgUniqueViolation = "23505"

type postgres struct {
	database *sql.DB
}

var schema = []string{
	// Пользователи админки
	"CREATE TABLE IF NOT EXISTS users (" +
		" id SERIAL PRIMARY KEY," +
		" username VARCHAR (64) NOT NULL UNIQUE," +
		" password_hash TEXT NOT NULL" +
		" );",
	"CREATE TABLE IF NOT EXISTS campaigns (" +
		" id VARCHAR (32) PRIMARY KEY," +
		" name TEXT NOT NULL," +
		" type VARCHAR (20) NOT NULL," +
		" status VARCHAR (20) NOT NULL," +
		" program_id VARCHAR (32) NOT NULL DEFAULT ''," +
		" trigger_event TEXT NOT NULL DEFAULT ''," +
		" created_at TIMESTAMPTZ NOT NULL," +
		" updated_at TIMESTAMPTZ NOT NULL" +
		" );",
	// Одно правило сгорания на кампанию
	"CREATE TABLE IF NOT EXISTS burn_rules (" +
		" id SERIAL UNIQUE," +
		" campaign_id VARCHAR (32) PRIMARY KEY REFERENCES campaigns (id) ON DELETE CASCADE," +
		" expiry_days INTEGER NOT NULL," +
		" expiry_period VARCHAR (20) NOT NULL," +
		" minimum_order_value DOUBLE PRECISION" +
		" );",
	// Строки загруженного CSV. processed не меняется
	"CREATE TABLE IF NOT EXISTS customers (" +
		" id SERIAL PRIMARY KEY," +
		" campaign_id VARCHAR (32) NOT NULL REFERENCES campaigns (id) ON DELETE CASCADE," +
		" partner_user_id TEXT NOT NULL DEFAULT ''," +
		" contact TEXT NOT NULL DEFAULT ''," +
		" amount DOUBLE PRECISION NOT NULL DEFAULT 0," +
		" load_id VARCHAR (20) NOT NULL," +
		" error_reason TEXT NOT NULL DEFAULT ''," +
		" processed BOOLEAN NOT NULL DEFAULT FALSE," +
		" created_at TIMESTAMPTZ NOT NULL" +
		" );",
	"CREATE INDEX IF NOT EXISTS customers_campaign_idx ON customers (campaign_id);",
	"CREATE INDEX IF NOT EXISTS customers_partner_user_idx ON customers (partner_user_id);",
	"CREATE TABLE IF NOT EXISTS programs (" +
		" id VARCHAR (32) PRIMARY KEY," +
		" name TEXT NOT NULL," +
		" purpose VARCHAR (20) NOT NULL," +
		" input_type VARCHAR (10) NOT NULL," +
		" expiry_days INTEGER NOT NULL," +
		" minimum_order_value DOUBLE PRECISION," +
		" file_format_id VARCHAR (32) NOT NULL DEFAULT ''," +
		" user_limits TEXT," +
		" status VARCHAR (10) NOT NULL," +
		" created_at TIMESTAMPTZ NOT NULL," +
		" updated_at TIMESTAMPTZ NOT NULL" +
		" );",
	// Один кошелёк на partner_user_id
	"CREATE TABLE IF NOT EXISTS wallets (" +
		" id VARCHAR (32) PRIMARY KEY," +
		" partner_user_id TEXT NOT NULL UNIQUE," +
		" balance DOUBLE PRECISION NOT NULL," +
		" campaign_id VARCHAR (32) NOT NULL," +
		" created_at TIMESTAMPTZ NOT NULL," +
		" updated_at TIMESTAMPTZ NOT NULL" +
		" );",
}

// NewPostgres открывает базу через драйвер pgx и создаёт таблицы.
func NewPostgres(ctx context.Context, dsn string) (Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	for _, stmt := range schema {
		if _, err = db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &postgres{database: db}, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (store *postgres) UserCreate(ctx context.Context, user model.User) (model.User, error) {
	row := store.database.QueryRowContext(ctx,
		"INSERT INTO users (username, password_hash)"+
			" VALUES ($1, $2)"+
			" RETURNING id",
		user.Username,
		user.PasswordHash)
	if err := row.Scan(&user.ID); err != nil {
		if isUniqueViolation(err) {
			return model.User{}, ErrAlreadyExists
		}
		return model.User{}, err
	}
	return user, nil
}

func (store *postgres) UserGet(ctx context.Context, id int) (model.User, error) {
	row := store.database.QueryRowContext(ctx,
		"SELECT id, username, password_hash FROM users WHERE id = $1", id)
	return scanUser(row)
}

func (store *postgres) UserGetByUsername(ctx context.Context, username string) (model.User, error) {
	row := store.database.QueryRowContext(ctx,
		"SELECT id, username, password_hash FROM users WHERE username = $1", username)
	return scanUser(row)
}

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash); err != nil {
		return model.User{}, noRows(err)
	}
	return u, nil
}

func (store *postgres) CampaignCreate(ctx context.Context, c model.Campaign) (model.Campaign, error) {
	_, err := store.database.ExecContext(ctx,
		"INSERT INTO campaigns (id, name, type, status, program_id, trigger_event, created_at, updated_at)"+
			" VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		c.ID, c.Name, c.Type, c.Status, c.ProgramID, c.TriggerEvent, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Campaign{}, ErrAlreadyExists
		}
		return model.Campaign{}, err
	}
	return c, nil
}

const campaignColumns = "id, name, type, status, program_id, trigger_event, created_at, updated_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row scanner) (model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(&c.ID, &c.Name, &c.Type, &c.Status, &c.ProgramID, &c.TriggerEvent, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (store *postgres) CampaignGet(ctx context.Context, id string) (model.Campaign, error) {
	row := store.database.QueryRowContext(ctx,
		"SELECT "+campaignColumns+" FROM campaigns WHERE id = $1", id)
	c, err := scanCampaign(row)
	if err != nil {
		return model.Campaign{}, noRows(err)
	}
	return c, nil
}

func (store *postgres) CampaignList(ctx context.Context) ([]model.Campaign, error) {
	rows, err := store.database.QueryContext(ctx,
		"SELECT "+campaignColumns+" FROM campaigns ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (store *postgres) BurnRuleCreate(ctx context.Context, rule model.BurnRule) (model.BurnRule, error) {
	row := store.database.QueryRowContext(ctx,
		"INSERT INTO burn_rules (campaign_id, expiry_days, expiry_period, minimum_order_value)"+
			" VALUES ($1, $2, $3, $4)"+
			" RETURNING id",
		rule.CampaignID, rule.ExpiryDays, rule.ExpiryPeriod, rule.MinimumOrderValue)
	if err := row.Scan(&rule.ID); err != nil {
		if isUniqueViolation(err) {
			return model.BurnRule{}, ErrAlreadyExists
		}
		return model.BurnRule{}, err
	}
	return rule, nil
}

func (store *postgres) BurnRuleGetByCampaign(ctx context.Context, campaignID string) (model.BurnRule, error) {
	var r model.BurnRule
	row := store.database.QueryRowContext(ctx,
		"SELECT id, campaign_id, expiry_days, expiry_period, minimum_order_value"+
			" FROM burn_rules WHERE campaign_id = $1", campaignID)
	if err := row.Scan(&r.ID, &r.CampaignID, &r.ExpiryDays, &r.ExpiryPeriod, &r.MinimumOrderValue); err != nil {
		return model.BurnRule{}, noRows(err)
	}
	return r, nil
}

func (store *postgres) CustomerCreate(ctx context.Context, c model.Customer) (model.Customer, error) {
	c.Processed = false
	row := store.database.QueryRowContext(ctx,
		"INSERT INTO customers (campaign_id, partner_user_id, contact, amount, load_id, error_reason, processed, created_at)"+
			" VALUES ($1, $2, $3, $4, $5, $6, $7, $8)"+
			" RETURNING id",
		c.CampaignID, c.PartnerUserID, c.Contact, c.Amount, c.LoadID, c.ErrorReason, c.Processed, c.CreatedAt)
	if err := row.Scan(&c.ID); err != nil {
		return model.Customer{}, err
	}
	return c, nil
}

func (store *postgres) customerList(ctx context.Context, where string, arg any) ([]model.Customer, error) {
	rows, err := store.database.QueryContext(ctx,
		"SELECT id, campaign_id, partner_user_id, contact, amount, load_id, error_reason, processed, created_at"+
			" FROM customers WHERE "+where+" = $1 ORDER BY id", arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := []model.Customer{}
	for rows.Next() {
		var c model.Customer
		err := rows.Scan(&c.ID, &c.CampaignID, &c.PartnerUserID, &c.Contact, &c.Amount,
			&c.LoadID, &c.ErrorReason, &c.Processed, &c.CreatedAt)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (store *postgres) CustomerListByCampaign(ctx context.Context, campaignID string) ([]model.Customer, error) {
	return store.customerList(ctx, "campaign_id", campaignID)
}

func (store *postgres) CustomerListByPartnerUser(ctx context.Context, partnerUserID string) ([]model.Customer, error) {
	return store.customerList(ctx, "partner_user_id", partnerUserID)
}

const programColumns = "id, name, purpose, input_type, expiry_days, minimum_order_value, file_format_id, user_limits, status, created_at, updated_at"

func marshalLimits(limits *model.UserLimits) (sql.NullString, error) {
	if limits == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(limits)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func scanProgram(row scanner) (model.Program, error) {
	var p model.Program
	var limits sql.NullString
	err := row.Scan(&p.ID, &p.Name, &p.Purpose, &p.InputType, &p.ExpiryDays, &p.MinimumOrderValue,
		&p.FileFormatID, &limits, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.Program{}, err
	}
	if limits.Valid {
		p.UserLimits = &model.UserLimits{}
		if err = json.Unmarshal([]byte(limits.String), p.UserLimits); err != nil {
			return model.Program{}, fmt.Errorf("program %s user limits: %w", p.ID, err)
		}
	}
	return p, nil
}

func (store *postgres) ProgramCreate(ctx context.Context, p model.Program) (model.Program, error) {
	limits, err := marshalLimits(p.UserLimits)
	if err != nil {
		return model.Program{}, err
	}
	_, err = store.database.ExecContext(ctx,
		"INSERT INTO programs ("+programColumns+")"+
			" VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)",
		p.ID, p.Name, p.Purpose, p.InputType, p.ExpiryDays, p.MinimumOrderValue,
		p.FileFormatID, limits, p.Status, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Program{}, ErrAlreadyExists
		}
		return model.Program{}, err
	}
	return p, nil
}

func (store *postgres) ProgramGet(ctx context.Context, id string) (model.Program, error) {
	row := store.database.QueryRowContext(ctx,
		"SELECT "+programColumns+" FROM programs WHERE id = $1", id)
	p, err := scanProgram(row)
	if err != nil {
		return model.Program{}, noRows(err)
	}
	return p, nil
}

func (store *postgres) ProgramList(ctx context.Context) ([]model.Program, error) {
	rows, err := store.database.QueryContext(ctx,
		"SELECT "+programColumns+" FROM programs ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	programs := []model.Program{}
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		programs = append(programs, p)
	}
	return programs, rows.Err()
}

func (store *postgres) ProgramPut(ctx context.Context, p model.Program) (model.Program, error) {
	limits, err := marshalLimits(p.UserLimits)
	if err != nil {
		return model.Program{}, err
	}
	res, err := store.database.ExecContext(ctx,
		"UPDATE programs"+
			" SET name = $2, purpose = $3, input_type = $4, expiry_days = $5, minimum_order_value = $6,"+
			"   file_format_id = $7, user_limits = $8, status = $9, updated_at = $10"+
			" WHERE id = $1",
		p.ID, p.Name, p.Purpose, p.InputType, p.ExpiryDays, p.MinimumOrderValue,
		p.FileFormatID, limits, p.Status, p.UpdatedAt)
	if err != nil {
		return model.Program{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Program{}, ErrNoRows
	}
	return p, nil
}

func (store *postgres) ProgramDelete(ctx context.Context, id string) error {
	res, err := store.database.ExecContext(ctx, "DELETE FROM programs WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoRows
	}
	return nil
}

const walletColumns = "id, partner_user_id, balance, campaign_id, created_at, updated_at"

func scanWallet(row scanner) (model.Wallet, error) {
	var w model.Wallet
	err := row.Scan(&w.ID, &w.PartnerUserID, &w.Balance, &w.CampaignID, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

func (store *postgres) WalletCreate(ctx context.Context, w model.Wallet) (model.Wallet, error) {
	_, err := store.database.ExecContext(ctx,
		"INSERT INTO wallets ("+walletColumns+")"+
			" VALUES ($1, $2, $3, $4, $5, $6)",
		w.ID, w.PartnerUserID, w.Balance, w.CampaignID, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Wallet{}, ErrAlreadyExists
		}
		return model.Wallet{}, err
	}
	return w, nil
}

func (store *postgres) WalletGet(ctx context.Context, id string) (model.Wallet, error) {
	row := store.database.QueryRowContext(ctx,
		"SELECT "+walletColumns+" FROM wallets WHERE id = $1", id)
	w, err := scanWallet(row)
	if err != nil {
		return model.Wallet{}, noRows(err)
	}
	return w, nil
}

func (store *postgres) WalletGetByPartnerUser(ctx context.Context, partnerUserID string) (model.Wallet, error) {
	row := store.database.QueryRowContext(ctx,
		"SELECT "+walletColumns+" FROM wallets WHERE partner_user_id = $1", partnerUserID)
	w, err := scanWallet(row)
	if err != nil {
		return model.Wallet{}, noRows(err)
	}
	return w, nil
}

func (store *postgres) WalletPutBalance(ctx context.Context, id string, balance float64, updatedAt time.Time) error {
	res, err := store.database.ExecContext(ctx,
		"UPDATE wallets SET balance = $2, updated_at = $3 WHERE id = $1",
		id, balance, updatedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoRows
	}
	return nil
}

func (store *postgres) walletList(ctx context.Context, query string, args ...any) ([]model.Wallet, error) {
	rows, err := store.database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	wallets := []model.Wallet{}
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

func (store *postgres) WalletList(ctx context.Context) ([]model.Wallet, error) {
	return store.walletList(ctx, "SELECT "+walletColumns+" FROM wallets ORDER BY created_at")
}

func (store *postgres) WalletListByCampaign(ctx context.Context, campaignID string) ([]model.Wallet, error) {
	return store.walletList(ctx,
		"SELECT "+walletColumns+" FROM wallets WHERE campaign_id = $1 ORDER BY created_at", campaignID)
}

func (store *postgres) Clear(ctx context.Context) error {
	_, err := store.database.ExecContext(ctx,
		"TRUNCATE users, campaigns, burn_rules, customers, programs, wallets RESTART IDENTITY CASCADE")
	return err
}

func (store *postgres) Close() error {
	return store.database.Close()
}

func noRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRows
	}
	return err
}
