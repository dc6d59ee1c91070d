package store

import (
	"context"
	"sync"
	"time"

	"github.com/iurnickita/campaignadmin/internal/model"
)

// collection хранит записи в порядке добавления.
// clone, если задан, копирует указатели записи на входе и на выходе.
type collection[K comparable, V any] struct {
	items map[K]V
	order []K
	clone func(V) V
}

func newCollection[K comparable, V any]() collection[K, V] {
	return collection[K, V]{items: make(map[K]V)}
}

func newCloningCollection[K comparable, V any](clone func(V) V) collection[K, V] {
	return collection[K, V]{items: make(map[K]V), clone: clone}
}

func (c *collection[K, V]) copyOf(v V) V {
	if c.clone == nil {
		return v
	}
	return c.clone(v)
}

func (c *collection[K, V]) get(key K) (V, bool) {
	v, ok := c.items[key]
	if !ok {
		return v, false
	}
	return c.copyOf(v), true
}

func (c *collection[K, V]) set(key K, v V) {
	if _, ok := c.items[key]; !ok {
		c.order = append(c.order, key)
	}
	c.items[key] = c.copyOf(v)
}

func (c *collection[K, V]) delete(key K) bool {
	if _, ok := c.items[key]; !ok {
		return false
	}
	delete(c.items, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

func (c *collection[K, V]) filter(keep func(V) bool) []V {
	res := make([]V, 0, len(c.order))
	for _, k := range c.order {
		v := c.items[k]
		if keep == nil || keep(v) {
			res = append(res, c.copyOf(v))
		}
	}
	return res
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneBurnRule(r model.BurnRule) model.BurnRule {
	r.MinimumOrderValue = cloneFloat(r.MinimumOrderValue)
	return r
}

func cloneProgram(p model.Program) model.Program {
	p.MinimumOrderValue = cloneFloat(p.MinimumOrderValue)
	if p.UserLimits != nil {
		limits := *p.UserLimits
		p.UserLimits = &limits
	}
	return p
}

type memory struct {
	mu sync.RWMutex

	users     collection[int, model.User]
	campaigns collection[string, model.Campaign]
	burnRules collection[string, model.BurnRule] // по campaignId
	customers collection[int, model.Customer]
	programs  collection[string, model.Program]
	wallets   collection[string, model.Wallet]

	walletByPartner map[string]string

	userSeq     int
	burnRuleSeq int
	customerSeq int
}

// NewMemory хранилище в памяти процесса.
func NewMemory() Store {
	m := &memory{}
	m.reset()
	return m
}

func (m *memory) reset() {
	m.users = newCollection[int, model.User]()
	m.campaigns = newCollection[string, model.Campaign]()
	m.burnRules = newCloningCollection[string, model.BurnRule](cloneBurnRule)
	m.customers = newCollection[int, model.Customer]()
	m.programs = newCloningCollection[string, model.Program](cloneProgram)
	m.wallets = newCollection[string, model.Wallet]()
	m.walletByPartner = make(map[string]string)
	m.userSeq = 0
	m.burnRuleSeq = 0
	m.customerSeq = 0
}

func (m *memory) UserCreate(_ context.Context, user model.User) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users.items {
		if u.Username == user.Username {
			return model.User{}, ErrAlreadyExists
		}
	}
	m.userSeq++
	user.ID = m.userSeq
	m.users.set(user.ID, user)
	return user, nil
}

func (m *memory) UserGet(_ context.Context, id int) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users.get(id)
	if !ok {
		return model.User{}, ErrNoRows
	}
	return u, nil
}

func (m *memory) UserGetByUsername(_ context.Context, username string) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	found := m.users.filter(func(u model.User) bool { return u.Username == username })
	if len(found) == 0 {
		return model.User{}, ErrNoRows
	}
	return found[0], nil
}

func (m *memory) CampaignCreate(_ context.Context, campaign model.Campaign) (model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.campaigns.get(campaign.ID); ok {
		return model.Campaign{}, ErrAlreadyExists
	}
	m.campaigns.set(campaign.ID, campaign)
	return campaign, nil
}

func (m *memory) CampaignGet(_ context.Context, id string) (model.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.campaigns.get(id)
	if !ok {
		return model.Campaign{}, ErrNoRows
	}
	return c, nil
}

func (m *memory) CampaignList(_ context.Context) ([]model.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.campaigns.filter(nil), nil
}

func (m *memory) BurnRuleCreate(_ context.Context, rule model.BurnRule) (model.BurnRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.burnRules.get(rule.CampaignID); ok {
		return model.BurnRule{}, ErrAlreadyExists
	}
	m.burnRuleSeq++
	rule.ID = m.burnRuleSeq
	m.burnRules.set(rule.CampaignID, rule)
	return cloneBurnRule(rule), nil
}

func (m *memory) BurnRuleGetByCampaign(_ context.Context, campaignID string) (model.BurnRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.burnRules.get(campaignID)
	if !ok {
		return model.BurnRule{}, ErrNoRows
	}
	return r, nil
}

func (m *memory) CustomerCreate(_ context.Context, customer model.Customer) (model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.customerSeq++
	customer.ID = m.customerSeq
	customer.Processed = false
	m.customers.set(customer.ID, customer)
	return customer, nil
}

func (m *memory) CustomerListByCampaign(_ context.Context, campaignID string) ([]model.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.customers.filter(func(c model.Customer) bool { return c.CampaignID == campaignID }), nil
}

func (m *memory) CustomerListByPartnerUser(_ context.Context, partnerUserID string) ([]model.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.customers.filter(func(c model.Customer) bool { return c.PartnerUserID == partnerUserID }), nil
}

func (m *memory) ProgramCreate(_ context.Context, program model.Program) (model.Program, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.programs.get(program.ID); ok {
		return model.Program{}, ErrAlreadyExists
	}
	m.programs.set(program.ID, program)
	return cloneProgram(program), nil
}

func (m *memory) ProgramGet(_ context.Context, id string) (model.Program, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.programs.get(id)
	if !ok {
		return model.Program{}, ErrNoRows
	}
	return p, nil
}

func (m *memory) ProgramList(_ context.Context) ([]model.Program, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.programs.filter(nil), nil
}

func (m *memory) ProgramPut(_ context.Context, program model.Program) (model.Program, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.programs.get(program.ID); !ok {
		return model.Program{}, ErrNoRows
	}
	m.programs.set(program.ID, program)
	return cloneProgram(program), nil
}

func (m *memory) ProgramDelete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.programs.delete(id) {
		return ErrNoRows
	}
	return nil
}

func (m *memory) WalletCreate(_ context.Context, wallet model.Wallet) (model.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.walletByPartner[wallet.PartnerUserID]; ok {
		return model.Wallet{}, ErrAlreadyExists
	}
	if _, ok := m.wallets.get(wallet.ID); ok {
		return model.Wallet{}, ErrAlreadyExists
	}
	m.wallets.set(wallet.ID, wallet)
	m.walletByPartner[wallet.PartnerUserID] = wallet.ID
	return wallet, nil
}

func (m *memory) WalletGet(_ context.Context, id string) (model.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.wallets.get(id)
	if !ok {
		return model.Wallet{}, ErrNoRows
	}
	return w, nil
}

func (m *memory) WalletGetByPartnerUser(_ context.Context, partnerUserID string) (model.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.walletByPartner[partnerUserID]
	if !ok {
		return model.Wallet{}, ErrNoRows
	}
	return m.wallets.items[id], nil
}

func (m *memory) WalletPutBalance(_ context.Context, id string, balance float64, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.wallets.get(id)
	if !ok {
		return ErrNoRows
	}
	w.Balance = balance
	w.UpdatedAt = updatedAt
	m.wallets.set(id, w)
	return nil
}

func (m *memory) WalletList(_ context.Context) ([]model.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.wallets.filter(nil), nil
}

func (m *memory) WalletListByCampaign(_ context.Context, campaignID string) ([]model.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.wallets.filter(func(w model.Wallet) bool { return w.CampaignID == campaignID }), nil
}

func (m *memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reset()
	return nil
}

func (m *memory) Close() error {
	return nil
}
