package store

import (
	"context"
	"errors"
	"time"

	"github.com/iurnickita/campaignadmin/internal/model"
	"github.com/iurnickita/campaignadmin/internal/store/config"
)

type Store interface {
	UserCreate(ctx context.Context, user model.User) (model.User, error)
	UserGet(ctx context.Context, id int) (model.User, error)
	UserGetByUsername(ctx context.Context, username string) (model.User, error)

	CampaignCreate(ctx context.Context, campaign model.Campaign) (model.Campaign, error)
	CampaignGet(ctx context.Context, id string) (model.Campaign, error)
	CampaignList(ctx context.Context) ([]model.Campaign, error)

	BurnRuleCreate(ctx context.Context, rule model.BurnRule) (model.BurnRule, error)
	BurnRuleGetByCampaign(ctx context.Context, campaignID string) (model.BurnRule, error)

	CustomerCreate(ctx context.Context, customer model.Customer) (model.Customer, error)
	CustomerListByCampaign(ctx context.Context, campaignID string) ([]model.Customer, error)
	CustomerListByPartnerUser(ctx context.Context, partnerUserID string) ([]model.Customer, error)

	ProgramCreate(ctx context.Context, program model.Program) (model.Program, error)
	ProgramGet(ctx context.Context, id string) (model.Program, error)
	ProgramList(ctx context.Context) ([]model.Program, error)
	ProgramPut(ctx context.Context, program model.Program) (model.Program, error)
	ProgramDelete(ctx context.Context, id string) error

	WalletCreate(ctx context.Context, wallet model.Wallet) (model.Wallet, error)
	WalletGet(ctx context.Context, id string) (model.Wallet, error)
	WalletGetByPartnerUser(ctx context.Context, partnerUserID string) (model.Wallet, error)
	WalletPutBalance(ctx context.Context, id string, balance float64, updatedAt time.Time) error
	WalletList(ctx context.Context) ([]model.Wallet, error)
	WalletListByCampaign(ctx context.Context, campaignID string) ([]model.Wallet, error)

	// Clear удаляет данные всех коллекций
	Clear(ctx context.Context) error
	Close() error
}

var (
	ErrNoRows        = errors.New("no rows")
	ErrAlreadyExists = errors.New("already exists")
)

// NewStore выбирает хранилище: Postgres при заданном DSN, иначе память процесса.
func NewStore(ctx context.Context, cfg config.Config) (Store, error) {
	if cfg.DBDsn == "" {
		return NewMemory(), nil
	}
	return NewPostgres(ctx, cfg.DBDsn)
}
