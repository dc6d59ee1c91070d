package handler

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/iurnickita/campaignadmin/internal/auth"
	"github.com/iurnickita/campaignadmin/internal/gzip"
	"github.com/iurnickita/campaignadmin/internal/handler/config"
	"github.com/iurnickita/campaignadmin/internal/logger"
	"github.com/iurnickita/campaignadmin/internal/metrics"
	"github.com/iurnickita/campaignadmin/internal/service"
)

// Serve обслуживает API до отмены ctx, затем останавливает сервер.
func Serve(ctx context.Context, cfg config.Config, auth auth.Auth, service service.Service, zaplog *zap.Logger) error {
	h := newHandler(cfg, auth, service, zaplog)
	router := h.newRouter()

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zaplog.Info("server started", zap.String("addr", cfg.ServerAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	zaplog.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type handler struct {
	cfg     config.Config
	auth    auth.Auth
	service service.Service
	zaplog  *zap.Logger
}

func newHandler(cfg config.Config, auth auth.Auth, service service.Service, zaplog *zap.Logger) *handler {
	if zaplog == nil {
		zaplog = zap.NewNop()
	}
	return &handler{
		cfg:     cfg,
		auth:    auth,
		service: service,
		zaplog:  zaplog,
	}
}

// mdlw цепочка middleware для API
func (h *handler) mdlw(fn http.HandlerFunc) http.HandlerFunc {
	return gzip.GzipMiddleware(logger.RequestLogMdlw(h.auth.Middleware(fn), h.zaplog))
}

func (h *handler) newRouter() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", gzip.GzipMiddleware(logger.RequestLogMdlw(h.auth.Login, h.zaplog)))
	mux.HandleFunc("POST /api/auth/logout", h.mdlw(h.auth.Logout))

	mux.HandleFunc("GET /api/campaigns", h.mdlw(h.ListCampaigns))
	mux.HandleFunc("POST /api/campaigns", h.mdlw(h.CreateCampaign))
	mux.HandleFunc("POST /api/campaigns/publish", h.mdlw(h.PublishCampaign))
	mux.HandleFunc("GET /api/campaigns/{id}", h.mdlw(h.GetCampaign))
	mux.HandleFunc("GET /api/campaigns/{id}/results", h.mdlw(h.GetResults))
	mux.HandleFunc("GET /api/campaigns/{id}/wallets", h.mdlw(h.GetCampaignWallets))

	mux.HandleFunc("GET /api/programs", h.mdlw(h.ListPrograms))
	mux.HandleFunc("POST /api/programs", h.mdlw(h.CreateProgram))
	mux.HandleFunc("GET /api/programs/file-formats", h.mdlw(h.GetFileFormats))
	mux.HandleFunc("GET /api/programs/sample-file/{formatId}", h.mdlw(h.GetSampleFile))
	mux.HandleFunc("GET /api/programs/{id}", h.mdlw(h.GetProgram))
	mux.HandleFunc("PUT /api/programs/{id}", h.mdlw(h.UpdateProgram))
	mux.HandleFunc("DELETE /api/programs/{id}", h.mdlw(h.DeleteProgram))

	mux.HandleFunc("GET /api/wallets", h.mdlw(h.ListWallets))
	mux.HandleFunc("GET /api/wallets/{walletId}/transactions", h.mdlw(h.GetWalletTransactions))

	mux.HandleFunc("GET /healthz", h.Health)
	mux.Handle("GET /metrics", metrics.Handler())

	return mux
}

// Ответы

type ErrorJSONResponse struct {
	Message string `json:"message"`
}

func (h *handler) writeJSON(w http.ResponseWriter, code int, v any) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(responseJSON)
}

func (h *handler) writeError(w http.ResponseWriter, message string, code int) {
	responseJSON, _ := json.Marshal(ErrorJSONResponse{Message: message})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(responseJSON)
}

// writeServiceError переводит ошибку сервиса в код ответа.
func (h *handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrNotOneTime):
		h.writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrNotFound):
		h.writeError(w, err.Error(), http.StatusNotFound)
	default:
		h.zaplog.Error("request failed", zap.Error(err))
		h.writeError(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *handler) readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func attachment(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(data)
}

// Кампании

func (h *handler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.service.ListCampaigns(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, campaigns)
}

func (h *handler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req service.CampaignRequest
	if !h.readJSON(w, r, &req) {
		return
	}

	campaign, err := h.service.CreateCampaign(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, campaign)
}

// PublishCampaign multipart: name, type, burnRules, walletAction, forceStatus, файл csvFile.
func (h *handler) PublishCampaign(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(w, fmt.Sprintf("upload exceeds %d bytes", maxErr.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := service.PublishRequest{
		Name:         r.FormValue("name"),
		Type:         r.FormValue("type"),
		BurnRules:    r.FormValue("burnRules"),
		WalletAction: r.FormValue("walletAction"),
		ForceStatus:  r.FormValue("forceStatus"),
	}

	file, _, err := r.FormFile("csvFile")
	switch {
	case err == nil:
		defer file.Close()
		req.CSV = file
	case !errors.Is(err, http.ErrMissingFile):
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	campaign, err := h.service.Publish(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, campaign)
}

func (h *handler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := h.service.GetCampaign(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, campaign)
}

var resultsCSVHeader = []string{"partner_user_id", "contact", "amount", "load_id", "status", "error_reason"}

// GetResults результаты разовой кампании; ?format=csv - файлом.
func (h *handler) GetResults(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	results, err := h.service.Results(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if r.URL.Query().Get("format") != "csv" {
		h.writeJSON(w, http.StatusOK, results)
		return
	}

	data, err := resultsCSV(results)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	attachment(w, "campaign_"+id+"_results.csv", data)
}

func resultsCSV(results []service.Result) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(resultsCSVHeader); err != nil {
		return nil, err
	}
	for _, res := range results {
		err := cw.Write([]string{
			res.PartnerUserID,
			res.Contact,
			strconv.FormatFloat(res.Amount, 'f', -1, 64),
			res.LoadID,
			res.Status,
			res.ErrorReason,
		})
		if err != nil {
			return nil, err
		}
	}
	cw.Flush()
	return buf.Bytes(), cw.Error()
}

func (h *handler) GetCampaignWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := h.service.CampaignWallets(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, wallets)
}

// Программы

func (h *handler) ListPrograms(w http.ResponseWriter, r *http.Request) {
	programs, err := h.service.ListPrograms(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, programs)
}

func (h *handler) CreateProgram(w http.ResponseWriter, r *http.Request) {
	var req service.ProgramRequest
	if !h.readJSON(w, r, &req) {
		return
	}

	program, err := h.service.CreateProgram(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, program)
}

func (h *handler) GetProgram(w http.ResponseWriter, r *http.Request) {
	program, err := h.service.GetProgram(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, program)
}

func (h *handler) UpdateProgram(w http.ResponseWriter, r *http.Request) {
	var patch service.ProgramPatch
	if !h.readJSON(w, r, &patch) {
		return
	}

	program, err := h.service.UpdateProgram(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, program)
}

func (h *handler) DeleteProgram(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProgram(r.Context(), r.PathValue("id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) GetFileFormats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.FileFormats())
}

func (h *handler) GetSampleFile(w http.ResponseWriter, r *http.Request) {
	formatID := r.PathValue("formatId")

	data, err := h.service.SampleFile(formatID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	attachment(w, "sample_"+formatID+".csv", data)
}

// Кошельки

func (h *handler) ListWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := h.service.Wallets(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, wallets)
}

func (h *handler) GetWalletTransactions(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.WalletTransactions(r.Context(), r.PathValue("walletId"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, history)
}

func (h *handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
