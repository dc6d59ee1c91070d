package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iurnickita/campaignadmin/internal/csvrow"
	"github.com/iurnickita/campaignadmin/internal/model"
	"github.com/iurnickita/campaignadmin/internal/service/config"
	"github.com/iurnickita/campaignadmin/internal/store"
)

const burnRules = `{"expiryDays":30,"expiryPeriod":"days","minimumOrderValue":499}`

func newTestService(t *testing.T, s store.Store) Service {
	t.Helper()
	service, err := NewService(config.Config{MetricsNamespace: "campaignadmin_test"}, s, nil)
	require.NoError(t, err)
	return service
}

func publishRequest(campaignType, walletAction, csv string) PublishRequest {
	return PublishRequest{
		Name:         "Diwali cashback",
		Type:         campaignType,
		BurnRules:    burnRules,
		WalletAction: walletAction,
		CSV:          strings.NewReader(csv),
	}
}

func TestPublishFlatCreditsAccumulate(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	service := newTestService(t, s)

	campaign, err := service.Publish(ctx, publishRequest(model.CampaignTypeOneTime,
		`{"creditType":"flat","creditAmount":100}`,
		"partner_user_id,contact\nu1,\nu1,9876543210\n"))
	require.NoError(t, err)
	require.Len(t, campaign.ID, 12)
	require.Equal(t, model.CampaignStatusCampaignEnded, campaign.Status)

	wallets, err := service.Wallets(ctx)
	require.NoError(t, err)
	require.Len(t, wallets, 1)
	require.Equal(t, "u1", wallets[0].PartnerUserID)
	require.Equal(t, 200.0, wallets[0].Balance)
	require.Equal(t, campaign.ID, wallets[0].CampaignID)

	rule, err := s.BurnRuleGetByCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	require.Equal(t, 30, rule.ExpiryDays)
	require.NotNil(t, rule.MinimumOrderValue)

	history, err := service.WalletTransactions(ctx, wallets[0].ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "Diwali cashback", history[0].CampaignName)
}

func TestPublishContactOnlyRowHasNoWallet(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	service := newTestService(t, s)

	campaign, err := service.Publish(ctx, publishRequest(model.CampaignTypeOneTime,
		`{"creditType":"flat","creditAmount":50}`,
		"partner_user_id,contact\n,9876543210\n"))
	require.NoError(t, err)

	customers, err := s.CustomerListByCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	require.Equal(t, "9876543210", customers[0].Contact)
	require.Equal(t, 50.0, customers[0].Amount)
	require.Empty(t, customers[0].ErrorReason)
	require.False(t, customers[0].Processed)
	require.Regexp(t, `^LD\d{12}$`, customers[0].LoadID)

	wallets, err := service.Wallets(ctx)
	require.NoError(t, err)
	require.Empty(t, wallets)
}

func TestPublishMalformedContactStillCredits(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	service := newTestService(t, s)

	campaign, err := service.Publish(ctx, publishRequest(model.CampaignTypeOneTime,
		`{"creditType":"flat","creditAmount":100}`,
		"partner_user_id,contact\nu1,12345\n"))
	require.NoError(t, err)

	// формат contact проверяет загрузчик, сервер пишет строку как есть
	results, err := service.Results(ctx, campaign.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "12345", results[0].Contact)
	require.Equal(t, model.CustomerStatusPending, results[0].Status)
	require.Empty(t, results[0].ErrorReason)

	wallets, err := service.Wallets(ctx)
	require.NoError(t, err)
	require.Len(t, wallets, 1)
	require.Equal(t, "u1", wallets[0].PartnerUserID)
	require.Equal(t, 100.0, wallets[0].Balance)
}

func TestPublishPercentage(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, store.NewMemory())

	_, err := service.Publish(ctx, publishRequest(model.CampaignTypeOneTime,
		`{"creditType":"percentage","creditPercentage":10,"percentageField":"amount_field"}`,
		"partner_user_id,contact,amount_field\nu1,,1000\n"))
	require.NoError(t, err)

	wallets, err := service.Wallets(ctx)
	require.NoError(t, err)
	require.Len(t, wallets, 1)
	require.Equal(t, "u1", wallets[0].PartnerUserID)
	require.Equal(t, 100.0, wallets[0].Balance)
}

func TestPublishTriggerBased(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	service := newTestService(t, s)

	campaign, err := service.Publish(ctx, publishRequest(model.CampaignTypeTriggerBased,
		`{"creditType":"flat","creditAmount":100}`,
		"partner_user_id\nu1\n"))
	require.NoError(t, err)
	require.Equal(t, model.CampaignStatusActive, campaign.Status)

	customers, err := s.CustomerListByCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	require.Len(t, customers, 1)

	wallets, err := service.Wallets(ctx)
	require.NoError(t, err)
	require.Empty(t, wallets)

	_, err = service.Results(ctx, campaign.ID)
	require.ErrorIs(t, err, ErrNotOneTime)
}

func TestPublishValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*PublishRequest)
	}{
		{name: "no name", modify: func(r *PublishRequest) { r.Name = "" }},
		{name: "no type", modify: func(r *PublishRequest) { r.Type = "" }},
		{name: "bad type", modify: func(r *PublishRequest) { r.Type = "weekly" }},
		{name: "no burn rules", modify: func(r *PublishRequest) { r.BurnRules = "" }},
		{name: "burn rules not json", modify: func(r *PublishRequest) { r.BurnRules = "{expiry" }},
		{name: "negative expiry", modify: func(r *PublishRequest) { r.BurnRules = `{"expiryDays":-1}` }},
		{name: "wallet action not json", modify: func(r *PublishRequest) { r.WalletAction = "flat" }},
		{name: "bad forced status", modify: func(r *PublishRequest) { r.ForceStatus = "Archived" }},
		{name: "no file", modify: func(r *PublishRequest) { r.CSV = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			service := newTestService(t, store.NewMemory())

			req := publishRequest(model.CampaignTypeOneTime, "", "partner_user_id\nu1\n")
			tt.modify(&req)

			_, err := service.Publish(ctx, req)
			require.ErrorIs(t, err, ErrValidation)

			// до первой записи
			campaigns, err := service.ListCampaigns(ctx)
			require.NoError(t, err)
			require.Empty(t, campaigns)
		})
	}
}

func TestPublishMissingIdentifierColumns(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, store.NewMemory())

	_, err := service.Publish(ctx, publishRequest(model.CampaignTypeOneTime, "", "email\na@b.c\n"))
	require.ErrorIs(t, err, ErrValidation)
	require.ErrorIs(t, err, csvrow.ErrMissingColumns)

	// кампания и правило сгорания остаются
	campaigns, err := service.ListCampaigns(ctx)
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
}

func TestPublishMalformedCSV(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	service := newTestService(t, s)

	_, err := service.Publish(ctx, publishRequest(model.CampaignTypeOneTime, "",
		"partner_user_id,contact\nu1,\"98765\n"))
	var parseErr *csvrow.ParseError
	require.ErrorAs(t, err, &parseErr)
	require.NotErrorIs(t, err, ErrValidation)

	campaigns, err := service.ListCampaigns(ctx)
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	_, err = s.BurnRuleGetByCampaign(ctx, campaigns[0].ID)
	require.NoError(t, err)
}

func TestPublishForceStatus(t *testing.T) {
	service := newTestService(t, store.NewMemory())

	req := publishRequest(model.CampaignTypeOneTime, "", "partner_user_id\nu1\n")
	req.ForceStatus = model.CampaignStatusPaused
	campaign, err := service.Publish(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, model.CampaignStatusPaused, campaign.Status)
}

func TestResults(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, store.NewMemory())

	campaign, err := service.Publish(ctx, publishRequest(model.CampaignTypeOneTime,
		`{"creditType":"flat","creditAmount":25}`,
		"partner_user_id,contact\nu1,9876543210\n,\nu2,12345\n"))
	require.NoError(t, err)

	results, err := service.Results(ctx, campaign.ID)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "u1", results[0].PartnerUserID)
	assert.Equal(t, model.CustomerStatusPending, results[0].Status)
	assert.Empty(t, results[0].ErrorReason)
	assert.Equal(t, 25.0, results[0].Amount)

	assert.Equal(t, model.CustomerStatusFailed, results[1].Status)
	assert.NotEmpty(t, results[1].ErrorReason)

	assert.Equal(t, "u2", results[2].PartnerUserID)
	assert.Equal(t, model.CustomerStatusPending, results[2].Status)
	assert.Empty(t, results[2].ErrorReason)

	// строка без идентификаторов на кошелёк не зачисляется
	wallets, err := service.CampaignWallets(ctx, campaign.ID)
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	require.Equal(t, "u1", wallets[0].PartnerUserID)
	require.Equal(t, "u2", wallets[1].PartnerUserID)

	_, err = service.Results(ctx, "UNKNOWN")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = service.CampaignWallets(ctx, "UNKNOWN")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateCampaign(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, store.NewMemory())

	campaign, err := service.CreateCampaign(ctx, CampaignRequest{Name: "Signup bonus",
		Type: model.CampaignTypeTriggerBased, TriggerEvent: "signup"})
	require.NoError(t, err)
	require.Equal(t, model.CampaignStatusActive, campaign.Status)

	got, err := service.GetCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	require.Equal(t, "signup", got.TriggerEvent)

	_, err = service.CreateCampaign(ctx, CampaignRequest{Type: model.CampaignTypeOneTime})
	require.ErrorIs(t, err, ErrValidation)
	require.Contains(t, err.Error(), "name is required")

	_, err = service.GetCampaign(ctx, "UNKNOWN")
	require.ErrorIs(t, err, ErrNotFound)
}

// failingStore отдаёт ошибку записи клиента по выбранным пользователям.
type failingStore struct {
	store.Store
	mock.Mock
}

func (s *failingStore) CustomerCreate(ctx context.Context, customer model.Customer) (model.Customer, error) {
	args := s.Called(customer.PartnerUserID)
	if err := args.Error(0); err != nil {
		return model.Customer{}, err
	}
	return s.Store.CustomerCreate(ctx, customer)
}

func TestPublishStoreFailureKeepsWrittenRecords(t *testing.T) {
	ctx := context.Background()
	errDisk := errors.New("disk full")

	s := &failingStore{Store: store.NewMemory()}
	s.On("CustomerCreate", "u1").Return(nil).Once()
	s.On("CustomerCreate", "u2").Return(errDisk).Once()
	service := newTestService(t, s)

	_, err := service.Publish(ctx, publishRequest(model.CampaignTypeOneTime,
		`{"creditType":"flat","creditAmount":10}`,
		"partner_user_id\nu1\nu2\nu3\n"))
	require.ErrorIs(t, err, errDisk)
	s.AssertExpectations(t)

	// записанное до ошибки остаётся, дальше обработка не идёт
	wallets, err := service.Wallets(ctx)
	require.NoError(t, err)
	require.Len(t, wallets, 1)
	require.Equal(t, "u1", wallets[0].PartnerUserID)

	campaigns, err := service.ListCampaigns(ctx)
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
}
