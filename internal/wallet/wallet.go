// Package wallet начисляет баллы на кошельки пользователей партнёра.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/iurnickita/campaignadmin/internal/idgen"
	"github.com/iurnickita/campaignadmin/internal/model"
	"github.com/iurnickita/campaignadmin/internal/store"
)

type Wallet interface {
	Credit(ctx context.Context, partnerUserID string, campaignID string, amount float64) (model.Wallet, error)
	Get(ctx context.Context, id string) (model.Wallet, error)
	List(ctx context.Context) ([]model.Wallet, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]model.Wallet, error)
	GetHistory(ctx context.Context, id string) ([]model.WalletTransaction, error)
}

var ErrNoPartnerUser = errors.New("partner user id is empty")

type wallet struct {
	store store.Store

	// блокировки на partnerUserId
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

func NewWallet(store store.Store) Wallet {
	return &wallet{
		store: store,
		locks: make(map[string]*keyLock),
	}
}

func (w *wallet) lock(key string) (unlock func()) {
	w.mu.Lock()
	l, ok := w.locks[key]
	if !ok {
		l = &keyLock{}
		w.locks[key] = l
	}
	l.refs++
	w.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()

		w.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(w.locks, key)
		}
		w.mu.Unlock()
	}
}

// Credit прибавляет amount к кошельку пользователя или создаёт кошелёк.
// campaignID существующего кошелька не меняется: это кампания, создавшая его.
func (w *wallet) Credit(ctx context.Context, partnerUserID string, campaignID string, amount float64) (model.Wallet, error) {
	if partnerUserID == "" {
		return model.Wallet{}, ErrNoPartnerUser
	}

	unlock := w.lock(partnerUserID)
	defer unlock()

	now := time.Now().UTC()

	existing, err := w.store.WalletGetByPartnerUser(ctx, partnerUserID)
	switch {
	case err == nil:
		existing.Balance += amount
		existing.UpdatedAt = now
		if err = w.store.WalletPutBalance(ctx, existing.ID, existing.Balance, now); err != nil {
			return model.Wallet{}, fmt.Errorf("update wallet %s: %w", existing.ID, err)
		}
		return existing, nil
	case errors.Is(err, store.ErrNoRows):
		created, err := w.store.WalletCreate(ctx, model.Wallet{
			ID:            idgen.WalletID(),
			PartnerUserID: partnerUserID,
			Balance:       amount,
			CampaignID:    campaignID,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		if err != nil {
			return model.Wallet{}, fmt.Errorf("create wallet for %s: %w", partnerUserID, err)
		}
		return created, nil
	default:
		return model.Wallet{}, fmt.Errorf("get wallet for %s: %w", partnerUserID, err)
	}
}

func (w *wallet) Get(ctx context.Context, id string) (model.Wallet, error) {
	return w.store.WalletGet(ctx, id)
}

func (w *wallet) List(ctx context.Context) ([]model.Wallet, error) {
	return w.store.WalletList(ctx)
}

func (w *wallet) ListByCampaign(ctx context.Context, campaignID string) ([]model.Wallet, error) {
	return w.store.WalletListByCampaign(ctx, campaignID)
}

// GetHistory начисления на кошелёк: строки разовых кампаний без ошибок.
func (w *wallet) GetHistory(ctx context.Context, id string) ([]model.WalletTransaction, error) {
	wlt, err := w.store.WalletGet(ctx, id)
	if err != nil {
		return nil, err
	}

	customers, err := w.store.CustomerListByPartnerUser(ctx, wlt.PartnerUserID)
	if err != nil {
		return nil, err
	}

	campaigns := make(map[string]model.Campaign)
	history := []model.WalletTransaction{}
	for _, c := range customers {
		if c.ErrorReason != "" {
			continue
		}
		campaign, ok := campaigns[c.CampaignID]
		if !ok {
			campaign, err = w.store.CampaignGet(ctx, c.CampaignID)
			if err != nil {
				if errors.Is(err, store.ErrNoRows) {
					continue
				}
				return nil, err
			}
			campaigns[c.CampaignID] = campaign
		}
		if campaign.Type != model.CampaignTypeOneTime {
			continue
		}
		history = append(history, model.WalletTransaction{
			ID:           c.ID,
			CampaignID:   c.CampaignID,
			CampaignName: campaign.Name,
			Amount:       c.Amount,
			LoadID:       c.LoadID,
			CreatedAt:    c.CreatedAt,
			Type:         model.WalletTransactionTypeCredit,
		})
	}
	return history, nil
}
