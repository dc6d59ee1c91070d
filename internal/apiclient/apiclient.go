// Package apiclient клиент HTTP API администрирования кампаний.
package apiclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/iurnickita/campaignadmin/internal/fileformat"
	"github.com/iurnickita/campaignadmin/internal/model"
	"github.com/iurnickita/campaignadmin/internal/service"
)

// APIError ответ сервера с кодом не 2xx.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api request status: %d: %s", e.StatusCode, e.Message)
}

type errorBody struct {
	Message string `json:"message"`
}

type Client struct {
	rc *resty.Client
}

// New клиент с хранилищем cookie: после Login запросы идут в сессии.
func New(serviceAddr string) *Client {
	if !strings.Contains(serviceAddr, "://") {
		serviceAddr = "http://" + serviceAddr
	}
	return &Client{rc: resty.New().SetBaseURL(strings.TrimRight(serviceAddr, "/"))}
}

func (c *Client) do(ctx context.Context, method, path string, body any, result any) error {
	req := c.rc.R().SetContext(ctx).SetError(&errorBody{})
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	return checkResponse(resp)
}

func checkResponse(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	apiErr := &APIError{StatusCode: resp.StatusCode()}
	if e, ok := resp.Error().(*errorBody); ok && e.Message != "" {
		apiErr.Message = e.Message
	} else {
		apiErr.Message = strings.TrimSpace(resp.String())
	}
	return apiErr
}

func escape(id string) string {
	return url.PathEscape(id)
}

// Сессия

type LoginResult struct {
	Success bool       `json:"success"`
	User    model.User `json:"user"`
}

type LogoutResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (c *Client) Login(ctx context.Context, username, password string) (model.User, error) {
	var res LoginResult
	err := c.do(ctx, http.MethodPost, "/api/auth/login",
		map[string]string{"username": username, "password": password}, &res)
	return res.User, err
}

func (c *Client) Logout(ctx context.Context) (LogoutResult, error) {
	var res LogoutResult
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, &res)
	return res, err
}

// Кампании

func (c *Client) Campaigns(ctx context.Context) ([]model.Campaign, error) {
	var res []model.Campaign
	err := c.do(ctx, http.MethodGet, "/api/campaigns", nil, &res)
	return res, err
}

func (c *Client) Campaign(ctx context.Context, id string) (model.Campaign, error) {
	var res model.Campaign
	err := c.do(ctx, http.MethodGet, "/api/campaigns/"+escape(id), nil, &res)
	return res, err
}

func (c *Client) CreateCampaign(ctx context.Context, req service.CampaignRequest) (model.Campaign, error) {
	var res model.Campaign
	err := c.do(ctx, http.MethodPost, "/api/campaigns", req, &res)
	return res, err
}

// PublishParams поля формы публикации. BurnRules и WalletAction - JSON.
type PublishParams struct {
	Name         string
	Type         string
	BurnRules    string
	WalletAction string
	ForceStatus  string
	FileName     string
	CSV          io.Reader
}

func (c *Client) Publish(ctx context.Context, p PublishParams) (model.Campaign, error) {
	form := map[string]string{
		"name":      p.Name,
		"type":      p.Type,
		"burnRules": p.BurnRules,
	}
	if p.WalletAction != "" {
		form["walletAction"] = p.WalletAction
	}
	if p.ForceStatus != "" {
		form["forceStatus"] = p.ForceStatus
	}

	var res model.Campaign
	req := c.rc.R().
		SetContext(ctx).
		SetMultipartFormData(form).
		SetResult(&res).
		SetError(&errorBody{})
	if p.CSV != nil {
		name := p.FileName
		if name == "" {
			name = "customers.csv"
		}
		req.SetFileReader("csvFile", name, p.CSV)
	}

	resp, err := req.Post("/api/campaigns/publish")
	if err != nil {
		return model.Campaign{}, err
	}
	return res, checkResponse(resp)
}

func (c *Client) Results(ctx context.Context, campaignID string) ([]service.Result, error) {
	var res []service.Result
	err := c.do(ctx, http.MethodGet, "/api/campaigns/"+escape(campaignID)+"/results", nil, &res)
	return res, err
}

// ResultsCSV выгрузка результатов файлом.
func (c *Client) ResultsCSV(ctx context.Context, campaignID string) ([]byte, error) {
	return c.download(ctx, "/api/campaigns/"+escape(campaignID)+"/results?format=csv")
}

func (c *Client) CampaignWallets(ctx context.Context, campaignID string) ([]model.Wallet, error) {
	var res []model.Wallet
	err := c.do(ctx, http.MethodGet, "/api/campaigns/"+escape(campaignID)+"/wallets", nil, &res)
	return res, err
}

// Программы

func (c *Client) Programs(ctx context.Context) ([]model.Program, error) {
	var res []model.Program
	err := c.do(ctx, http.MethodGet, "/api/programs", nil, &res)
	return res, err
}

func (c *Client) Program(ctx context.Context, id string) (model.Program, error) {
	var res model.Program
	err := c.do(ctx, http.MethodGet, "/api/programs/"+escape(id), nil, &res)
	return res, err
}

func (c *Client) CreateProgram(ctx context.Context, req service.ProgramRequest) (model.Program, error) {
	var res model.Program
	err := c.do(ctx, http.MethodPost, "/api/programs", req, &res)
	return res, err
}

func (c *Client) UpdateProgram(ctx context.Context, id string, patch service.ProgramPatch) (model.Program, error) {
	var res model.Program
	err := c.do(ctx, http.MethodPut, "/api/programs/"+escape(id), patch, &res)
	return res, err
}

func (c *Client) DeleteProgram(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/programs/"+escape(id), nil, nil)
}

func (c *Client) FileFormats(ctx context.Context) ([]fileformat.Format, error) {
	var res []fileformat.Format
	err := c.do(ctx, http.MethodGet, "/api/programs/file-formats", nil, &res)
	return res, err
}

func (c *Client) SampleFile(ctx context.Context, formatID string) ([]byte, error) {
	return c.download(ctx, "/api/programs/sample-file/"+escape(formatID))
}

// Кошельки

func (c *Client) Wallets(ctx context.Context) ([]model.Wallet, error) {
	var res []model.Wallet
	err := c.do(ctx, http.MethodGet, "/api/wallets", nil, &res)
	return res, err
}

func (c *Client) WalletTransactions(ctx context.Context, walletID string) ([]model.WalletTransaction, error) {
	var res []model.WalletTransaction
	err := c.do(ctx, http.MethodGet, "/api/wallets/"+escape(walletID)+"/transactions", nil, &res)
	return res, err
}

func (c *Client) download(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.rc.R().SetContext(ctx).SetError(&errorBody{}).Get(path)
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}
