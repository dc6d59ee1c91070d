package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/iurnickita/campaignadmin/internal/credit"
	"github.com/iurnickita/campaignadmin/internal/csvrow"
	"github.com/iurnickita/campaignadmin/internal/fileformat"
	"github.com/iurnickita/campaignadmin/internal/idgen"
	"github.com/iurnickita/campaignadmin/internal/metrics"
	"github.com/iurnickita/campaignadmin/internal/model"
	"github.com/iurnickita/campaignadmin/internal/service/config"
	"github.com/iurnickita/campaignadmin/internal/store"
	"github.com/iurnickita/campaignadmin/internal/wallet"
)

type Service interface {
	CreateCampaign(ctx context.Context, req CampaignRequest) (model.Campaign, error)
	GetCampaign(ctx context.Context, id string) (model.Campaign, error)
	ListCampaigns(ctx context.Context) ([]model.Campaign, error)
	Publish(ctx context.Context, req PublishRequest) (model.Campaign, error)
	Results(ctx context.Context, campaignID string) ([]Result, error)
	CampaignWallets(ctx context.Context, campaignID string) ([]model.Wallet, error)

	CreateProgram(ctx context.Context, req ProgramRequest) (model.Program, error)
	GetProgram(ctx context.Context, id string) (model.Program, error)
	ListPrograms(ctx context.Context) ([]model.Program, error)
	UpdateProgram(ctx context.Context, id string, patch ProgramPatch) (model.Program, error)
	DeleteProgram(ctx context.Context, id string) error
	FileFormats() []fileformat.Format
	SampleFile(formatID string) ([]byte, error)

	Wallets(ctx context.Context) ([]model.Wallet, error)
	WalletTransactions(ctx context.Context, walletID string) ([]model.WalletTransaction, error)
}

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrNotOneTime = errors.New("results are available only for one-time campaigns")
)

// Колонки идентификаторов пользователя в загружаемом CSV
const (
	ColumnPartnerUserID = "partner_user_id"
	ColumnContact       = "contact"
)

type service struct {
	cfg     config.Config
	store   store.Store
	wallet  wallet.Wallet
	metrics *metrics.Metrics
	zaplog  *zap.Logger
}

func NewService(cfg config.Config, store store.Store, zaplog *zap.Logger) (Service, error) {
	if zaplog == nil {
		zaplog = zap.NewNop()
	}

	service := service{
		cfg:     cfg,
		store:   store,
		wallet:  wallet.NewWallet(store),
		metrics: metrics.Registry(cfg.MetricsNamespace),
		zaplog:  zaplog,
	}

	return &service, nil
}

// Кампании

type CampaignRequest struct {
	Name         string `json:"name" validate:"required"`
	Type         string `json:"type" validate:"required,campaign_type"`
	ProgramID    string `json:"programId"`
	TriggerEvent string `json:"triggerEvent"`
	ForceStatus  string `json:"forceStatus" validate:"omitempty,campaign_status"`
}

func (service *service) CreateCampaign(ctx context.Context, req CampaignRequest) (model.Campaign, error) {
	if err := validateStruct(req); err != nil {
		return model.Campaign{}, err
	}
	return service.createCampaign(ctx, req)
}

func (service *service) createCampaign(ctx context.Context, req CampaignRequest) (model.Campaign, error) {
	status := req.ForceStatus
	if status == "" {
		status = model.DefaultCampaignStatus(req.Type)
	}

	now := time.Now().UTC()
	campaign, err := service.store.CampaignCreate(ctx, model.Campaign{
		ID:           idgen.CampaignID(),
		Name:         req.Name,
		Type:         req.Type,
		Status:       status,
		ProgramID:    req.ProgramID,
		TriggerEvent: req.TriggerEvent,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return model.Campaign{}, fmt.Errorf("create campaign: %w", err)
	}
	return campaign, nil
}

func (service *service) GetCampaign(ctx context.Context, id string) (model.Campaign, error) {
	campaign, err := service.store.CampaignGet(ctx, id)
	if err != nil {
		return model.Campaign{}, notFound(err, "campaign", id)
	}
	return campaign, nil
}

func (service *service) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	return service.store.CampaignList(ctx)
}

// Публикация кампании с загрузкой файла

type PublishRequest struct {
	Name         string    `json:"name" validate:"required"`
	Type         string    `json:"type" validate:"required,campaign_type"`
	BurnRules    string    `json:"burnRules" validate:"required"`
	WalletAction string    `json:"walletAction"`
	ForceStatus  string    `json:"forceStatus" validate:"omitempty,campaign_status"`
	CSV          io.Reader `json:"-"`
}

type BurnRules struct {
	ExpiryDays        int      `json:"expiryDays" validate:"gte=0"`
	ExpiryPeriod      string   `json:"expiryPeriod"`
	MinimumOrderValue *float64 `json:"minimumOrderValue" validate:"omitempty,gte=0"`
}

// Publish создаёт кампанию и правило сгорания, затем разбирает файл и по каждой
// строке пишет клиента и, для разовой кампании, начисляет на кошелёк.
// Уже записанное при ошибке не откатывается.
func (service *service) Publish(ctx context.Context, req PublishRequest) (campaign model.Campaign, err error) {
	start := time.Now()
	defer func() {
		service.observePublish(req.Type, start, err)
	}()

	// проверки до первой записи
	if err = validateStruct(req); err != nil {
		return model.Campaign{}, err
	}
	if req.CSV == nil {
		return model.Campaign{}, fmt.Errorf("%w: csvFile is required", ErrValidation)
	}
	var rules BurnRules
	if err = json.Unmarshal([]byte(req.BurnRules), &rules); err != nil {
		return model.Campaign{}, fmt.Errorf("%w: burnRules: %v", ErrValidation, err)
	}
	if err = validateStruct(rules); err != nil {
		return model.Campaign{}, err
	}
	var action credit.WalletAction
	if strings.TrimSpace(req.WalletAction) != "" {
		if err = json.Unmarshal([]byte(req.WalletAction), &action); err != nil {
			return model.Campaign{}, fmt.Errorf("%w: walletAction: %v", ErrValidation, err)
		}
	}

	campaign, err = service.createCampaign(ctx, CampaignRequest{
		Name:        req.Name,
		Type:        req.Type,
		ForceStatus: req.ForceStatus,
	})
	if err != nil {
		return model.Campaign{}, err
	}

	_, err = service.store.BurnRuleCreate(ctx, model.BurnRule{
		CampaignID:        campaign.ID,
		ExpiryDays:        rules.ExpiryDays,
		ExpiryPeriod:      rules.ExpiryPeriod,
		MinimumOrderValue: rules.MinimumOrderValue,
	})
	if err != nil {
		return model.Campaign{}, fmt.Errorf("create burn rule for %s: %w", campaign.ID, err)
	}

	rows, header, err := csvrow.Parse(req.CSV)
	if err != nil {
		return model.Campaign{}, fmt.Errorf("campaign %s: %w", campaign.ID, err)
	}
	if err = csvrow.RequireAny(header, ColumnPartnerUserID, ColumnContact); err != nil {
		return model.Campaign{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	var credited float64
	for _, row := range rows {
		amount, err := service.ingestRow(ctx, campaign, action, row)
		if err != nil {
			return model.Campaign{}, fmt.Errorf("campaign %s, line %d: %w", campaign.ID, row.Line(), err)
		}
		credited += amount
	}

	service.zaplog.Info("campaign published",
		zap.String("campaign", campaign.ID),
		zap.String("type", campaign.Type),
		zap.Int("rows", len(rows)),
		zap.Float64("credited", credited),
	)

	return campaign, nil
}

// ingestRow записывает клиента и возвращает сумму, зачисленную на кошелёк.
func (service *service) ingestRow(ctx context.Context, campaign model.Campaign, action credit.WalletAction, row csvrow.Row) (float64, error) {
	partnerUserID := strings.TrimSpace(row.Get(ColumnPartnerUserID))
	contact := strings.TrimSpace(row.Get(ColumnContact))

	customer := model.Customer{
		CampaignID:    campaign.ID,
		PartnerUserID: partnerUserID,
		Contact:       contact,
		Amount:        credit.Calculate(action, row),
		LoadID:        idgen.LoadID(),
		CreatedAt:     time.Now().UTC(),
	}
	if partnerUserID == "" && contact == "" {
		customer.ErrorReason = "either partner_user_id or contact is required"
	}

	if _, err := service.store.CustomerCreate(ctx, customer); err != nil {
		return 0, fmt.Errorf("create customer: %w", err)
	}

	switch {
	case customer.ErrorReason != "":
		service.metrics.RowsProcessed.WithLabelValues(metrics.RowFailed).Inc()
		return 0, nil
	case campaign.Type != model.CampaignTypeOneTime || partnerUserID == "":
		service.metrics.RowsProcessed.WithLabelValues(metrics.RowRecorded).Inc()
		return 0, nil
	}

	if _, err := service.wallet.Credit(ctx, partnerUserID, campaign.ID, customer.Amount); err != nil {
		return 0, err
	}
	service.metrics.RowsProcessed.WithLabelValues(metrics.RowCredited).Inc()
	if customer.Amount > 0 {
		service.metrics.CreditedAmount.Add(customer.Amount)
	}
	return customer.Amount, nil
}

func (service *service) observePublish(campaignType string, start time.Time, err error) {
	outcome := metrics.OutcomeOK
	switch {
	case errors.Is(err, ErrValidation):
		outcome = metrics.OutcomeValidation
	case err != nil:
		outcome = metrics.OutcomeError
	}
	if !model.ValidCampaignType(campaignType) {
		campaignType = "unknown"
	}
	service.metrics.PublishRequests.WithLabelValues(campaignType, outcome).Inc()
	service.metrics.PublishDuration.WithLabelValues(campaignType).Observe(time.Since(start).Seconds())
}

// Result строка выгрузки результатов разовой кампании.
type Result struct {
	PartnerUserID string  `json:"partner_user_id"`
	Contact       string  `json:"contact"`
	Amount        float64 `json:"amount"`
	LoadID        string  `json:"load_id"`
	Status        string  `json:"status"`
	ErrorReason   string  `json:"error_reason"`
}

func (service *service) Results(ctx context.Context, campaignID string) ([]Result, error) {
	campaign, err := service.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Type != model.CampaignTypeOneTime {
		return nil, ErrNotOneTime
	}

	customers, err := service.store.CustomerListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(customers))
	for _, c := range customers {
		results = append(results, Result{
			PartnerUserID: c.PartnerUserID,
			Contact:       c.Contact,
			Amount:        c.Amount,
			LoadID:        c.LoadID,
			Status:        c.Status(),
			ErrorReason:   c.ErrorReason,
		})
	}
	return results, nil
}

func (service *service) CampaignWallets(ctx context.Context, campaignID string) ([]model.Wallet, error) {
	if _, err := service.GetCampaign(ctx, campaignID); err != nil {
		return nil, err
	}
	return service.wallet.ListByCampaign(ctx, campaignID)
}

// Кошельки

func (service *service) Wallets(ctx context.Context) ([]model.Wallet, error) {
	return service.wallet.List(ctx)
}

func (service *service) WalletTransactions(ctx context.Context, walletID string) ([]model.WalletTransaction, error) {
	history, err := service.wallet.GetHistory(ctx, walletID)
	if err != nil {
		return nil, notFound(err, "wallet", walletID)
	}
	return history, nil
}

// Проверка запросов

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// в сообщениях имена полей как в JSON
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	v.RegisterValidation("campaign_type", func(fl validator.FieldLevel) bool {
		return model.ValidCampaignType(fl.Field().String())
	})
	v.RegisterValidation("campaign_status", func(fl validator.FieldLevel) bool {
		return model.ValidCampaignStatus(fl.Field().String())
	})
	return v
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		case "campaign_type", "campaign_status":
			msgs = append(msgs, fmt.Sprintf("%s %q is not valid", fe.Field(), fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s%s check", fe.Field(), fe.Tag(), paramSuffix(fe.Param())))
		}
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

func paramSuffix(param string) string {
	if param == "" {
		return ""
	}
	return "=" + param
}

func notFound(err error, what, id string) error {
	if errors.Is(err, store.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, what, id)
	}
	return err
}
